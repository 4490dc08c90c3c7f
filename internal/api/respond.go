package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"tradecatalog/internal"
)

type ProblemDetail struct {
	Type   string   `json:"type,omitempty"`
	Title  string   `json:"title"`
	Status int      `json:"status"`
	Detail string   `json:"detail,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func Problem(w http.ResponseWriter, status int, title, detail string) {
	writeProblem(w, ProblemDetail{Title: title, Status: status, Detail: detail})
}

func writeProblem(w http.ResponseWriter, p ProblemDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return &badRequestError{err: err}
	}
	return nil
}

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return "malformed request: " + e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

// RespondError maps catalog errors to problem responses.
func RespondError(w http.ResponseWriter, err error) {
	var (
		verr   *internal.ValidationError
		perr   *internal.ParseError
		bad    *badRequestError
		tooBig *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verr):
		writeProblem(w, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: verr.Error(),
			Errors: verr.Messages,
		})
	case errors.As(err, &tooBig):
		Problem(w, http.StatusRequestEntityTooLarge, "Upload Too Large", err.Error())
	case errors.As(err, &perr):
		Problem(w, http.StatusBadRequest, "Invalid Sheet", perr.Error())
	case errors.As(err, &bad):
		Problem(w, http.StatusBadRequest, "Bad Request", bad.Error())
	case errors.Is(err, internal.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, internal.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, internal.ErrUnknownField):
		Problem(w, http.StatusBadRequest, "Unknown Field", err.Error())
	case errors.Is(err, internal.ErrEmptySelection):
		Problem(w, http.StatusBadRequest, "Empty Selection", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
