package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tradecatalog/internal"
	"tradecatalog/internal/catalog"
	"tradecatalog/internal/pipeline"
	"tradecatalog/internal/util"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	lastImportKey = "import.last_commit"
)

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	c, spec, err := parseView(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	products, err := h.catalog.View(r.Context(), c, spec)
	if err != nil {
		RespondError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"items": products, "total": len(products)})
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, err)
		return
	}
	JSON(w, http.StatusOK, p)
}

func (h *handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var p internal.Product
	if err := DecodeJSON(r, &p); err != nil {
		RespondError(w, err)
		return
	}
	id, err := h.catalog.Create(r.Context(), p)
	if err != nil {
		RespondError(w, err)
		return
	}
	h.respondProduct(w, r, http.StatusCreated, id)
}

func (h *handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var p internal.Product
	if err := DecodeJSON(r, &p); err != nil {
		RespondError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.catalog.Update(r.Context(), id, p); err != nil {
		RespondError(w, err)
		return
	}
	h.respondProduct(w, r, http.StatusOK, id)
}

type fieldRequest struct {
	Value *string `json:"value"`
}

func (h *handler) setField(w http.ResponseWriter, r *http.Request) {
	var req fieldRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if req.Value == nil {
		RespondError(w, fmt.Errorf("%w: value is required", internal.ErrValidation))
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.catalog.SetField(r.Context(), id, chi.URLParam(r, "field"), *req.Value); err != nil {
		RespondError(w, err)
		return
	}
	h.respondProduct(w, r, http.StatusOK, id)
}

func (h *handler) respondProduct(w http.ResponseWriter, r *http.Request, status int, id string) {
	p, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	JSON(w, status, p)
}

func (h *handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkRequest struct {
	IDs []string `json:"ids"`
}

func (h *handler) bulkProducts(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}

	var (
		res internal.BatchResult
		err error
	)
	switch action := chi.URLParam(r, "action"); action {
	case "delete":
		res, err = h.catalog.BulkDelete(r.Context(), req.IDs)
	case "activate":
		res, err = h.catalog.BulkSetActive(r.Context(), req.IDs, true)
	case "deactivate":
		res, err = h.catalog.BulkSetActive(r.Context(), req.IDs, false)
	default:
		Problem(w, http.StatusNotFound, "Not Found", fmt.Sprintf("unknown bulk action %q", action))
		return
	}
	if err != nil {
		RespondError(w, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

func (h *handler) facets(w http.ResponseWriter, r *http.Request) {
	f, err := h.catalog.Facets(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	JSON(w, http.StatusOK, f)
}

func (h *handler) previewImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		RespondError(w, &badRequestError{err: err})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		RespondError(w, &badRequestError{err: err})
		return
	}

	opts := h.opts.Import
	if v := r.FormValue("autoReference"); v != "" {
		auto, err := strconv.ParseBool(v)
		if err != nil {
			RespondError(w, fmt.Errorf("%w: autoReference: %v", internal.ErrValidation, err))
			return
		}
		opts.AutoReference = auto
	}

	res, err := h.catalog.PrepareImport(r.Context(), content, opts)
	if err != nil {
		RespondError(w, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

type commitRequest struct {
	Candidates    []internal.Candidate `json:"candidates"`
	AutoReference *bool                `json:"autoReference,omitempty"`
}

func (h *handler) commitImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	var req commitRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	opts := h.opts.Import
	if req.AutoReference != nil {
		opts.AutoReference = *req.AutoReference
	}

	res, err := h.catalog.CommitImport(r.Context(), req.Candidates, opts)
	if err != nil {
		RespondError(w, err)
		return
	}
	if res.Succeeded > 0 && h.meta != nil {
		if err := h.meta.SetMetadata(lastImportKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
			h.log.Warn().Err(err).Msg("record import time")
		}
	}
	JSON(w, http.StatusOK, res)
}

func (h *handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	products, ok := h.viewForExport(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := pipeline.WriteCSV(&buf, products, h.opts.CSV); err != nil {
		h.log.Error().Err(err).Msg("encode csv")
		RespondError(w, err)
		return
	}
	sendAttachment(w, "text/csv; charset=utf-8", exportName("csv"), buf.Bytes())
}

func (h *handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	products, ok := h.viewForExport(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.xlsx.Write(r.Context(), &buf, products); err != nil {
		h.log.Error().Err(err).Msg("encode xlsx")
		RespondError(w, err)
		return
	}
	sendAttachment(w, xlsxContentType, exportName("xlsx"), buf.Bytes())
}

func (h *handler) importTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := pipeline.WriteTemplate(&buf); err != nil {
		h.log.Error().Err(err).Msg("encode template")
		RespondError(w, err)
		return
	}
	sendAttachment(w, xlsxContentType, "modelo_importacao_produtos.xlsx", buf.Bytes())
}

func (h *handler) viewForExport(w http.ResponseWriter, r *http.Request) ([]internal.Product, bool) {
	c, spec, err := parseView(r)
	if err != nil {
		RespondError(w, err)
		return nil, false
	}
	products, err := h.catalog.View(r.Context(), c, spec)
	if err != nil {
		RespondError(w, err)
		return nil, false
	}
	return products, true
}

func exportName(ext string) string {
	return fmt.Sprintf("produtos_%s.%s", time.Now().Format("2006-01-02"), ext)
}

func sendAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// parseView reads the list criteria and sort state from the query string.
// Column filters use the col.<field> form, e.g. col.marca=ravi.
func parseView(r *http.Request) (internal.Criteria, internal.SortSpec, error) {
	q := r.URL.Query()
	c := internal.Criteria{
		Search:  q.Get("search"),
		Fabrica: strings.TrimSpace(q.Get("fabrica")),
		Marca:   strings.TrimSpace(q.Get("marca")),
	}

	var err error
	if c.MinPrice, err = parsePrice("minPrice", q.Get("minPrice")); err != nil {
		return c, internal.SortSpec{}, err
	}
	if c.MaxPrice, err = parsePrice("maxPrice", q.Get("maxPrice")); err != nil {
		return c, internal.SortSpec{}, err
	}

	for key, values := range q {
		field, ok := strings.CutPrefix(key, "col.")
		if !ok || len(values) == 0 {
			continue
		}
		if _, known := internal.LookupField(field); !known {
			return c, internal.SortSpec{}, fmt.Errorf("%w: %s", internal.ErrUnknownField, field)
		}
		if c.Columns == nil {
			c.Columns = map[string]string{}
		}
		c.Columns[field] = values[0]
	}

	spec := internal.SortSpec{Column: strings.TrimSpace(q.Get("sort"))}
	if spec.Column == "" {
		return c, spec, nil
	}
	if _, known := internal.LookupField(spec.Column); !known {
		return c, internal.SortSpec{}, fmt.Errorf("%w: %s", internal.ErrUnknownField, spec.Column)
	}
	if spec.Direction, err = catalog.ParseDirection(q.Get("dir")); err != nil {
		return c, internal.SortSpec{}, err
	}
	if spec.Direction == internal.SortNone {
		spec.Direction = internal.SortAsc
	}
	return c, spec, nil
}

func parsePrice(name, raw string) (*float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := util.ParseNumber(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", internal.ErrValidation, name, err)
	}
	return &v, nil
}
