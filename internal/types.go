package internal

import "time"

type Product struct {
	ID string `json:"id,omitempty"`

	Name           string `json:"name" validate:"required_without=Description"`
	Description    string `json:"description"`
	Referencia     string `json:"referencia" validate:"required"`
	Fabrica        string `json:"fabrica" validate:"required"`
	Marca          string `json:"marca"`
	ItemNo         string `json:"itemNo"`
	LinhaCotacoes  string `json:"linhaCotacoes"`
	Unit           string `json:"unit"`
	CodRavi        string `json:"codRavi"`
	EAN            string `json:"ean"`
	DUN            string `json:"dun"`
	NCM            string `json:"ncm"`
	CEST           string `json:"cest"`
	NomeInvoiceEn  string `json:"nomeInvoiceEn"`
	NomeDiNb       string `json:"nomeDiNb"`
	NomeRaviProfit string `json:"nomeRaviProfit"`
	Remark         string `json:"remark"`
	Obs            string `json:"obs"`
	ObsPedido      string `json:"obsPedido"`

	Moq             float64 `json:"moq"`
	UnitCtn         float64 `json:"unitCtn"`
	QtMinVenda      float64 `json:"qtMinVenda"`
	UnitPriceRmb    float64 `json:"unitPriceRmb" validate:"gt=0"`
	ValorInvoiceUsd float64 `json:"valorInvoiceUsd"`
	L               float64 `json:"l"`
	W               float64 `json:"w"`
	H               float64 `json:"h"`
	CBM             float64 `json:"cbm"`
	GW              float64 `json:"gw"`
	NW              float64 `json:"nw"`
	PesoUnitario    float64 `json:"pesoUnitario"`

	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Active    *bool      `json:"active,omitempty"`
}

// IsActive treats an unset flag as active.
func (p Product) IsActive() bool {
	return p.Active == nil || *p.Active
}

type Criteria struct {
	Search   string            `json:"search,omitempty"`
	Fabrica  string            `json:"fabrica,omitempty"`
	Marca    string            `json:"marca,omitempty"`
	MinPrice *float64          `json:"minPrice,omitempty"`
	MaxPrice *float64          `json:"maxPrice,omitempty"`
	Columns  map[string]string `json:"columns,omitempty"`
}

type Direction string

const (
	SortNone Direction = ""
	SortAsc  Direction = "asc"
	SortDesc Direction = "desc"
)

type SortSpec struct {
	Column    string    `json:"column,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Candidate is an imported row awaiting commit. Row is the 1-based sheet row,
// the header being row 1.
type Candidate struct {
	Product
	Row    int      `json:"row"`
	Errors []string `json:"errors,omitempty"`
}

func (c Candidate) Valid() bool {
	return len(c.Errors) == 0
}

type Patch map[string]any

type StoreFilter struct {
	Fabrica string
	Marca   string
	Active  *bool
}

type BatchItem struct {
	ID    string `json:"id,omitempty"`
	Row   int    `json:"row,omitempty"`
	Error string `json:"error,omitempty"`
}

// BatchResult reports a sequential bulk operation item by item. Skipped
// counts inputs rejected before any store call.
type BatchResult struct {
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Skipped   int         `json:"skipped"`
	Items     []BatchItem `json:"items"`
}

func (r *BatchResult) Record(id string, row int, err error) {
	item := BatchItem{ID: id, Row: row}
	if err != nil {
		item.Error = err.Error()
		r.Failed++
	} else {
		r.Succeeded++
	}
	r.Items = append(r.Items, item)
}
