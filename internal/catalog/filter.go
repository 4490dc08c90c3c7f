package catalog

import (
	"strings"

	"tradecatalog/internal"
	"tradecatalog/internal/util"
)

// Filter keeps the products satisfying every set criterion, preserving order.
// Blank criteria do not restrict the result.
func Filter(products []internal.Product, c internal.Criteria) []internal.Product {
	terms := util.Terms(c.Search)
	columns := columnFilters(c.Columns)

	out := make([]internal.Product, 0, len(products))
	for _, p := range products {
		if c.Fabrica != "" && p.Fabrica != c.Fabrica {
			continue
		}
		if c.Marca != "" && p.Marca != c.Marca {
			continue
		}
		if c.MinPrice != nil && p.UnitPriceRmb < *c.MinPrice {
			continue
		}
		if c.MaxPrice != nil && p.UnitPriceRmb > *c.MaxPrice {
			continue
		}
		if len(terms) > 0 && !matchTerms(BuildIndex(p), terms) {
			continue
		}
		if !matchColumns(p, columns) {
			continue
		}
		out = append(out, p)
	}
	return out
}

type columnFilter struct {
	field  internal.Field
	needle string
}

func columnFilters(columns map[string]string) []columnFilter {
	out := make([]columnFilter, 0, len(columns))
	for key, value := range columns {
		needle := strings.ToLower(strings.TrimSpace(value))
		if needle == "" {
			continue
		}
		f, ok := internal.LookupField(key)
		if !ok {
			continue
		}
		out = append(out, columnFilter{field: f, needle: needle})
	}
	return out
}

func matchColumns(p internal.Product, filters []columnFilter) bool {
	for _, cf := range filters {
		if cf.field.Missing(p) {
			return false
		}
		if !strings.Contains(strings.ToLower(cf.field.Display(p)), cf.needle) {
			return false
		}
	}
	return true
}
