package pipeline

import (
	"encoding/csv"
	"io"
	"time"

	"tradecatalog/internal"
	"tradecatalog/internal/images"
)

type CSVOptions struct {
	ImageBaseURL string
	Location     *time.Location
}

func csvHeader() []string {
	header := []string{"ID", "Image-URL"}
	for _, c := range dataColumns {
		header = append(header, c.label)
	}
	return append(header, "Ativo", "Data Criação", "Data Atualização")
}

// WriteCSV writes products, in the given order, as UTF-8 CSV with a BOM so
// spreadsheet tools detect the encoding.
func WriteCSV(w io.Writer, products []internal.Product, opts CSVOptions) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader()); err != nil {
		return err
	}
	for _, p := range products {
		record := make([]string, 0, len(dataColumns)+5)
		record = append(record, p.ID, images.URL(opts.ImageBaseURL, p.Referencia))
		for _, c := range dataColumns {
			record = append(record, c.field.Display(p))
		}
		record = append(record,
			activeLabel(p),
			FormatDate(p.CreatedAt, opts.Location),
			FormatDate(p.UpdatedAt, opts.Location),
		)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
