package pipeline

import (
	"fmt"
	"strings"

	"tradecatalog/internal"
)

type ImportOptions struct {
	// AutoReference generates a referencia for rows that lack one instead of
	// rejecting them.
	AutoReference bool `json:"autoReference"`
}

type ImportResult struct {
	Candidates []internal.Candidate `json:"candidates"`
	Errors     []string             `json:"errors"`
}

func (r ImportResult) Valid() []internal.Candidate {
	out := make([]internal.Candidate, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		if c.Valid() {
			out = append(out, c)
		}
	}
	return out
}

var headerFields = func() map[string]internal.Field {
	m := map[string]internal.Field{}
	for _, f := range internal.DataFields() {
		m[strings.ToLower(f.Key)] = f
	}
	return m
}()

type mappedColumn struct {
	index int
	field internal.Field
}

func mapHeader(header []string) []mappedColumn {
	out := []mappedColumn{}
	for i, h := range header {
		if f, ok := headerFields[strings.ToLower(strings.TrimSpace(h))]; ok {
			out = append(out, mappedColumn{index: i, field: f})
		}
	}
	return out
}

// ParseSheet turns an uploaded spreadsheet into validated candidates. Invalid
// rows are returned too, carrying their messages. A file that cannot be
// decoded, or has no data row, fails as a whole with *internal.ParseError.
func ParseSheet(content []byte, opts ImportOptions) (ImportResult, error) {
	rows, err := ReadSheet(content)
	if err != nil {
		return ImportResult{}, &internal.ParseError{Kind: internal.ParseMalformed, Err: err}
	}
	if len(rows) < 2 {
		return ImportResult{}, &internal.ParseError{Kind: internal.ParseEmptySheet}
	}

	columns := mapHeader(rows[0])
	res := ImportResult{Candidates: []internal.Candidate{}, Errors: []string{}}
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		cand := internal.Candidate{Row: i + 2}
		for _, col := range columns {
			if col.index >= len(row) {
				continue
			}
			if err := col.field.SetString(&cand.Product, row[col.index]); err != nil {
				cand.Errors = append(cand.Errors, fmt.Sprintf("%s is not a number: %q", col.field.Key, strings.TrimSpace(row[col.index])))
			}
		}
		cand.Errors = append(cand.Errors, Validate(cand.Product, opts)...)
		res.Candidates = append(res.Candidates, cand)
	}
	res.collectErrors()
	return res, nil
}

// MarkDuplicates flags candidates whose referencia is already used by an
// active product or by an earlier row of the same file.
func (r *ImportResult) MarkDuplicates(existing map[string]struct{}) {
	seen := map[string]int{}
	for i := range r.Candidates {
		c := &r.Candidates[i]
		ref := c.Referencia
		if ref == "" {
			continue
		}
		if _, ok := existing[ref]; ok {
			c.Errors = append(c.Errors, fmt.Sprintf("referencia %s already exists", ref))
		}
		if first, ok := seen[ref]; ok {
			c.Errors = append(c.Errors, fmt.Sprintf("referencia %s repeats row %d", ref, first))
			continue
		}
		seen[ref] = c.Row
	}
	r.collectErrors()
}

func (r *ImportResult) collectErrors() {
	r.Errors = []string{}
	for _, c := range r.Candidates {
		if len(c.Errors) > 0 {
			r.Errors = append(r.Errors, RowError(c.Row, c.Errors))
		}
	}
}

func RowError(row int, msgs []string) string {
	return fmt.Sprintf("row %d: %s", row, strings.Join(msgs, ", "))
}
