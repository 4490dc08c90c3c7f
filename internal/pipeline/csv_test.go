package pipeline

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecatalog/internal"
	"tradecatalog/internal/util"
)

func TestWriteCSV(t *testing.T) {
	created := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	products := []internal.Product{
		{
			ID:           "p1",
			Referencia:   "A11",
			Name:         `Braço "fixo", 30cm`,
			Fabrica:      "Settup",
			UnitPriceRmb: 12,
			CBM:          0.00075,
			Obs:          "line one\nline two",
			CreatedAt:    &created,
		},
		{ID: "p2", Fabrica: "Other", Active: util.BoolPtr(false)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, products, CSVOptions{
		ImageBaseURL: "https://nyc3.digitaloceanspaces.com/moribr",
		Location:     time.UTC,
	}))

	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(raw[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1+len(products))

	header := records[0]
	assert.Len(t, header, 36)
	assert.Equal(t, "ID", header[0])
	assert.Equal(t, "Image-URL", header[1])
	assert.Equal(t, "Referência", header[2])
	assert.Equal(t, "Data Atualização", header[35])

	first := records[1]
	assert.Equal(t, "p1", first[0])
	assert.Equal(t, "https://nyc3.digitaloceanspaces.com/moribr/base-fotos/A11.jpg", first[1])
	assert.Equal(t, `Braço "fixo", 30cm`, first[4])
	assert.Equal(t, "12", first[10])
	assert.Equal(t, "0.00075", first[19])
	assert.Equal(t, "line one\nline two", first[31])
	assert.Equal(t, "Sim", first[33])
	assert.Equal(t, "05/03/2024", first[34])
	assert.Equal(t, "N/A", first[35])

	second := records[2]
	assert.Equal(t, "", second[1])
	assert.Equal(t, "Não", second[33])
}

func TestWriteCSVEmptyView(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, CSVOptions{}))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes()[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
