package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"tradecatalog/internal"
)

const DefaultLocale = "pt-BR"

type Sorter struct {
	tag language.Tag
}

func NewSorter(locale string) *Sorter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.BrazilianPortuguese
	}
	return &Sorter{tag: tag}
}

var defaultSorter = NewSorter(DefaultLocale)

func Sort(products []internal.Product, spec internal.SortSpec) []internal.Product {
	return defaultSorter.Sort(products, spec)
}

// Sort returns a stably sorted copy of products. Products missing the sort
// value come last in both directions. An unknown column or SortNone keeps
// the input order.
func (s *Sorter) Sort(products []internal.Product, spec internal.SortSpec) []internal.Product {
	out := slices.Clone(products)
	f, ok := internal.LookupField(spec.Column)
	if !ok || spec.Direction == internal.SortNone {
		return out
	}

	compare := s.comparator(f)
	sign := 1
	if spec.Direction == internal.SortDesc {
		sign = -1
	}

	slices.SortStableFunc(out, func(a, b internal.Product) int {
		am, bm := f.Missing(a), f.Missing(b)
		switch {
		case am && bm:
			return 0
		case am:
			return 1
		case bm:
			return -1
		}
		return sign * compare(a, b)
	})
	return out
}

func (s *Sorter) comparator(f internal.Field) func(a, b internal.Product) int {
	switch f.Kind {
	case internal.KindNumber:
		return func(a, b internal.Product) int { return cmp.Compare(f.Number(a), f.Number(b)) }
	case internal.KindDate:
		return func(a, b internal.Product) int { return f.Time(a).Compare(*f.Time(b)) }
	case internal.KindBool:
		return func(a, b internal.Product) int { return compareBool(a.IsActive(), b.IsActive()) }
	}
	coll := collate.New(s.tag, collate.IgnoreCase)
	return func(a, b internal.Product) int {
		return coll.CompareString(strings.TrimSpace(f.Text(a)), strings.TrimSpace(f.Text(b)))
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// ToggleSort advances the sort state for a column header click:
// asc, then desc, then unsorted. Another column starts at asc.
func ToggleSort(current internal.SortSpec, column string) internal.SortSpec {
	if current.Column != column || current.Direction == internal.SortNone {
		return internal.SortSpec{Column: column, Direction: internal.SortAsc}
	}
	if current.Direction == internal.SortAsc {
		return internal.SortSpec{Column: column, Direction: internal.SortDesc}
	}
	return internal.SortSpec{}
}

func ParseDirection(s string) (internal.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return internal.SortNone, nil
	case "asc":
		return internal.SortAsc, nil
	case "desc":
		return internal.SortDesc, nil
	}
	return internal.SortNone, fmt.Errorf("%w: sort direction %q", internal.ErrValidation, s)
}
