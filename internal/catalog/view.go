package catalog

import (
	"slices"

	"tradecatalog/internal"
)

// View filters then sorts. It is pure and safe to re-run on every keystroke.
func View(all []internal.Product, c internal.Criteria, spec internal.SortSpec) []internal.Product {
	return defaultSorter.View(all, c, spec)
}

func (s *Sorter) View(all []internal.Product, c internal.Criteria, spec internal.SortSpec) []internal.Product {
	return s.Sort(Filter(all, c), spec)
}

type Facets struct {
	Fabricas []string `json:"fabricas"`
	Marcas   []string `json:"marcas"`
}

func BuildFacets(all []internal.Product) Facets {
	return Facets{
		Fabricas: distinct(all, func(p internal.Product) string { return p.Fabrica }),
		Marcas:   distinct(all, func(p internal.Product) string { return p.Marca }),
	}
}

func distinct(all []internal.Product, get func(internal.Product) string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range all {
		v := get(p)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
