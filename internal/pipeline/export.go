package pipeline

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"tradecatalog/internal"
)

const (
	exportSheet     = "Produtos"
	headerFill      = "0175A6"
	imageRowHeight  = 60
	imageColWidth   = 16
	defaultColWidth = 18
)

type ImageFetcher interface {
	Fetch(ctx context.Context, referencia string) ([]byte, error)
}

type XLSXExporter struct {
	images      ImageFetcher
	concurrency int
	loc         *time.Location
	log         zerolog.Logger
}

func NewXLSXExporter(images ImageFetcher, concurrency int, loc *time.Location, log zerolog.Logger) *XLSXExporter {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &XLSXExporter{images: images, concurrency: concurrency, loc: loc, log: log}
}

// Write renders products as a workbook with one photo per row in column A.
// Photos that cannot be fetched or embedded leave their cell empty.
func (e *XLSXExporter) Write(ctx context.Context, w io.Writer, products []internal.Product) error {
	photos, err := e.fetchPhotos(ctx, products)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return err
	}
	if err := e.writeHeader(f); err != nil {
		return err
	}

	for i, p := range products {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(exportSheet, cell, value)
		}

		for j, c := range dataColumns {
			if c.field.Kind == internal.KindNumber {
				set(j+2, c.field.Number(p))
				continue
			}
			set(j+2, c.field.Display(p))
		}
		n := len(dataColumns) + 2
		set(n, activeLabel(p))
		set(n+1, FormatDate(p.CreatedAt, e.loc))
		set(n+2, FormatDate(p.UpdatedAt, e.loc))

		if err := f.SetRowHeight(exportSheet, r, imageRowHeight); err != nil {
			return err
		}
		if len(photos[i]) > 0 {
			e.embedPhoto(f, r, p.Referencia, photos[i])
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	return f.Write(w)
}

func (e *XLSXExporter) SaveXLSX(ctx context.Context, outputPath string, products []internal.Product) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := e.Write(ctx, out, products); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (e *XLSXExporter) writeHeader(f *excelize.File) error {
	headers := []string{"Imagem"}
	for _, c := range dataColumns {
		headers = append(headers, c.label)
	}
	headers = append(headers, "Ativo", "Data Criação", "Data Atualização")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(exportSheet, "A1", last, style); err != nil {
		return err
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(exportSheet, "B", lastCol, defaultColWidth); err != nil {
		return err
	}
	return f.SetColWidth(exportSheet, "A", "A", imageColWidth)
}

func (e *XLSXExporter) fetchPhotos(ctx context.Context, products []internal.Product) ([][]byte, error) {
	photos := make([][]byte, len(products))
	if e.images == nil {
		return photos, nil
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, p := range products {
		i, p := i, p
		if p.Referencia == "" {
			continue
		}
		g.Go(func() error {
			b, err := e.images.Fetch(ctx, p.Referencia)
			if err != nil {
				e.log.Debug().Err(err).Str("referencia", p.Referencia).Msg("photo skipped")
				return nil
			}
			photos[i] = b
			return nil
		})
	}
	_ = g.Wait()
	return photos, ctx.Err()
}

func (e *XLSXExporter) embedPhoto(f *excelize.File, row int, referencia string, b []byte) {
	ext := pictureExtension(b)
	if ext == "" {
		e.log.Debug().Str("referencia", referencia).Msg("photo has unsupported format")
		return
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	err := f.AddPictureFromBytes(exportSheet, cell, &excelize.Picture{
		Extension: ext,
		File:      b,
		Format: &excelize.GraphicOptions{
			AutoFit:         true,
			OffsetX:         2,
			OffsetY:         2,
			LockAspectRatio: true,
			Positioning:     "oneCell",
		},
	})
	if err != nil {
		e.log.Debug().Err(err).Str("referencia", referencia).Msg("photo not embedded")
	}
}

func pictureExtension(b []byte) string {
	switch http.DetectContentType(b) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	}
	return ""
}
