package internal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tradecatalog/internal/util"
)

type FieldKind int

const (
	KindText FieldKind = iota
	KindNumber
	KindDate
	KindBool
)

// Field describes one sortable, filterable column of a Product.
type Field struct {
	Key  string
	Kind FieldKind

	text func(*Product) *string
	num  func(*Product) *float64
	date func(*Product) **time.Time
}

func textField(key string, get func(*Product) *string) Field {
	return Field{Key: key, Kind: KindText, text: get}
}

func numberField(key string, get func(*Product) *float64) Field {
	return Field{Key: key, Kind: KindNumber, num: get}
}

func dateField(key string, get func(*Product) **time.Time) Field {
	return Field{Key: key, Kind: KindDate, date: get}
}

var textFields = []Field{
	textField("name", func(p *Product) *string { return &p.Name }),
	textField("description", func(p *Product) *string { return &p.Description }),
	textField("referencia", func(p *Product) *string { return &p.Referencia }),
	textField("fabrica", func(p *Product) *string { return &p.Fabrica }),
	textField("marca", func(p *Product) *string { return &p.Marca }),
	textField("itemNo", func(p *Product) *string { return &p.ItemNo }),
	textField("linhaCotacoes", func(p *Product) *string { return &p.LinhaCotacoes }),
	textField("unit", func(p *Product) *string { return &p.Unit }),
	textField("codRavi", func(p *Product) *string { return &p.CodRavi }),
	textField("ean", func(p *Product) *string { return &p.EAN }),
	textField("dun", func(p *Product) *string { return &p.DUN }),
	textField("ncm", func(p *Product) *string { return &p.NCM }),
	textField("cest", func(p *Product) *string { return &p.CEST }),
	textField("nomeInvoiceEn", func(p *Product) *string { return &p.NomeInvoiceEn }),
	textField("nomeDiNb", func(p *Product) *string { return &p.NomeDiNb }),
	textField("nomeRaviProfit", func(p *Product) *string { return &p.NomeRaviProfit }),
	textField("remark", func(p *Product) *string { return &p.Remark }),
	textField("obs", func(p *Product) *string { return &p.Obs }),
	textField("obsPedido", func(p *Product) *string { return &p.ObsPedido }),
}

var numberFields = []Field{
	numberField("moq", func(p *Product) *float64 { return &p.Moq }),
	numberField("unitCtn", func(p *Product) *float64 { return &p.UnitCtn }),
	numberField("qtMinVenda", func(p *Product) *float64 { return &p.QtMinVenda }),
	numberField("unitPriceRmb", func(p *Product) *float64 { return &p.UnitPriceRmb }),
	numberField("valorInvoiceUsd", func(p *Product) *float64 { return &p.ValorInvoiceUsd }),
	numberField("l", func(p *Product) *float64 { return &p.L }),
	numberField("w", func(p *Product) *float64 { return &p.W }),
	numberField("h", func(p *Product) *float64 { return &p.H }),
	numberField("cbm", func(p *Product) *float64 { return &p.CBM }),
	numberField("gw", func(p *Product) *float64 { return &p.GW }),
	numberField("nw", func(p *Product) *float64 { return &p.NW }),
	numberField("pesoUnitario", func(p *Product) *float64 { return &p.PesoUnitario }),
}

var fieldIndex = func() map[string]Field {
	m := map[string]Field{}
	for _, f := range textFields {
		m[f.Key] = f
	}
	for _, f := range numberFields {
		m[f.Key] = f
	}
	m["createdAt"] = dateField("createdAt", func(p *Product) **time.Time { return &p.CreatedAt })
	m["updatedAt"] = dateField("updatedAt", func(p *Product) **time.Time { return &p.UpdatedAt })
	m["active"] = Field{Key: "active", Kind: KindBool}
	return m
}()

func LookupField(key string) (Field, bool) {
	f, ok := fieldIndex[key]
	return f, ok
}

// DataFields lists the 31 user-editable text and numeric fields, text first.
func DataFields() []Field {
	out := make([]Field, 0, len(textFields)+len(numberFields))
	out = append(out, textFields...)
	return append(out, numberFields...)
}

func (f Field) Text(p Product) string {
	if f.text == nil {
		return ""
	}
	return *f.text(&p)
}

func (f Field) Number(p Product) float64 {
	if f.num == nil {
		return 0
	}
	return *f.num(&p)
}

func (f Field) Time(p Product) *time.Time {
	if f.date == nil {
		return nil
	}
	return *f.date(&p)
}

// Missing reports whether p has no value for f. Numbers always have one.
func (f Field) Missing(p Product) bool {
	switch f.Kind {
	case KindText:
		return strings.TrimSpace(f.Text(p)) == ""
	case KindDate:
		return f.Time(p) == nil
	default:
		return false
	}
}

// Display renders the value the way a column filter compares it.
func (f Field) Display(p Product) string {
	switch f.Kind {
	case KindText:
		return f.Text(p)
	case KindNumber:
		return util.FormatNumber(f.Number(p))
	case KindDate:
		if t := f.Time(p); t != nil {
			return t.Format(time.RFC3339)
		}
		return ""
	case KindBool:
		return strconv.FormatBool(p.IsActive())
	}
	return ""
}

// SetString assigns a raw form or cell value. Numeric fields accept blank as 0.
func (f Field) SetString(p *Product, raw string) error {
	switch f.Kind {
	case KindText:
		*f.text(p) = strings.TrimSpace(raw)
		return nil
	case KindNumber:
		v, err := util.ParseNumber(raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrValidation, f.Key, err)
		}
		*f.num(p) = v
		return nil
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrValidation, f.Key, err)
		}
		p.Active = &b
		return nil
	}
	return fmt.Errorf("%w: %s is read-only", ErrValidation, f.Key)
}

func (f Field) Set(p *Product, v any) error {
	switch t := v.(type) {
	case nil:
		if f.Kind == KindBool {
			p.Active = nil
			return nil
		}
		return f.SetString(p, "")
	case string:
		return f.SetString(p, t)
	case json.Number:
		return f.SetString(p, t.String())
	case float64:
		if f.Kind == KindNumber {
			*f.num(p) = t
			return nil
		}
		return f.SetString(p, util.FormatNumber(t))
	case int:
		return f.Set(p, float64(t))
	case bool:
		if f.Kind == KindBool {
			p.Active = &t
			return nil
		}
		return f.SetString(p, strconv.FormatBool(t))
	}
	return fmt.Errorf("%w: %s: unsupported value %T", ErrValidation, f.Key, v)
}

// Value returns the typed value of f on p: string, float64, bool or *time.Time.
func (f Field) Value(p Product) any {
	switch f.Kind {
	case KindText:
		return f.Text(p)
	case KindNumber:
		return f.Number(p)
	case KindDate:
		return f.Time(p)
	default:
		return p.IsActive()
	}
}

func TrimText(p *Product) {
	for _, f := range textFields {
		v := f.text(p)
		*v = strings.TrimSpace(*v)
	}
}

// PatchFrom builds a patch carrying every data field of p, and active when set.
func PatchFrom(p Product) Patch {
	patch := Patch{}
	for _, f := range DataFields() {
		patch[f.Key] = f.Value(p)
	}
	if p.Active != nil {
		patch["active"] = *p.Active
	}
	return patch
}

// ApplyPatch merges patch into p. Unknown keys are rejected.
func ApplyPatch(p *Product, patch Patch) error {
	for key, value := range patch {
		f, ok := LookupField(key)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
		if err := f.Set(p, value); err != nil {
			return err
		}
	}
	return nil
}
