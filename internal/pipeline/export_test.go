package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tradecatalog/internal"
	"tradecatalog/internal/logger"
)

type fakeFetcher struct {
	mu     sync.Mutex
	photos map[string][]byte
	calls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ref)
	b, ok := f.photos[ref]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 1, G: 117, B: 166, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestXLSXExporterEmbedsAvailablePhotos(t *testing.T) {
	fetcher := &fakeFetcher{photos: map[string][]byte{
		"A11": tinyPNG(t),
		"BAD": []byte("not an image"),
	}}
	products := []internal.Product{
		{Referencia: "A11", Name: "Arm", Fabrica: "Settup", UnitPriceRmb: 12},
		{Referencia: "MISSING", Name: "Stand", UnitPriceRmb: 3.5},
		{Referencia: "BAD", Name: "Broken"},
		{Name: "No ref"},
	}

	var buf bytes.Buffer
	exp := NewXLSXExporter(fetcher, 2, time.UTC, logger.Nop())
	require.NoError(t, exp.Write(context.Background(), &buf, products))
	assert.ElementsMatch(t, []string{"A11", "MISSING", "BAD"}, fetcher.calls)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{exportSheet}, f.GetSheetList())
	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1+len(products))
	assert.Equal(t, "Imagem", rows[0][0])
	assert.Equal(t, "Referência", rows[0][1])
	assert.Equal(t, "A11", rows[1][1])
	assert.Equal(t, "Arm", rows[1][3])

	price, err := f.GetCellValue(exportSheet, "J2")
	require.NoError(t, err)
	assert.Equal(t, "12", price)

	pics, err := f.GetPictures(exportSheet, "A2")
	require.NoError(t, err)
	assert.Len(t, pics, 1)
	for _, cell := range []string{"A3", "A4", "A5"} {
		pics, err := f.GetPictures(exportSheet, cell)
		require.NoError(t, err)
		assert.Empty(t, pics, cell)
	}

	panes, err := f.GetPanes(exportSheet)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)
}

func TestXLSXExporterStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exp := NewXLSXExporter(&fakeFetcher{}, 1, time.UTC, logger.Nop())
	err := exp.Write(ctx, &bytes.Buffer{}, []internal.Product{{Referencia: "A11"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestTemplateRoundTripsThroughImporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	res, err := ParseSheet(buf.Bytes(), ImportOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Candidates, len(templateExamples))
	assert.Equal(t, "A11", res.Candidates[0].Referencia)
	assert.Equal(t, "A20", res.Candidates[1].Referencia)
	assert.Equal(t, 25.0, res.Candidates[1].UnitPriceRmb)
}
