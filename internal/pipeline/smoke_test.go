package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"tradecatalog/internal"
	"tradecatalog/internal/storage"
)

func TestSmokeSheetToStoreToXLSX(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	blob := mkXLSX([][]any{
		{"referencia", "fabrica", "unitPriceRmb", "name", "cbm"},
		{"A11", "Settup", 12, "Arm", "0,05"},
		{"A20", "Settup", 3.5, "Leg", nil},
	})
	res, err := ParseSheet(blob, ImportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("errors: %v", res.Errors)
	}

	ctx := context.Background()
	for _, c := range res.Valid() {
		if _, err := db.Create(ctx, c.Product); err != nil {
			t.Fatal(err)
		}
	}
	products, err := db.ListAll(ctx, internal.StoreFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 2 {
		t.Fatalf("stored=%d", len(products))
	}

	var csvOut bytes.Buffer
	if err := WriteCSV(&csvOut, products, CSVOptions{Location: time.UTC}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(csvOut.Bytes(), []byte("0.05")) {
		t.Fatal("cbm missing from csv")
	}

	out := filepath.Join(tmp, "out", "produtos.xlsx")
	exporter := NewXLSXExporter(nil, 2, time.UTC, zerolog.Nop())
	if err := exporter.SaveXLSX(ctx, out, products); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("xlsx rows=%d", len(rows))
	}
}
