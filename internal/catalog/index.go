package catalog

import (
	"strings"

	"tradecatalog/internal"
	"tradecatalog/internal/util"
)

var indexTextFields = []string{
	"name", "description", "referencia", "fabrica", "itemNo", "marca", "codRavi",
	"ean", "dun", "nomeInvoiceEn", "nomeDiNb", "nomeRaviProfit", "ncm", "cest",
	"linhaCotacoes", "remark", "obs", "obsPedido", "unit",
}

var indexNumberFields = []string{
	"moq", "unitCtn", "unitPriceRmb", "l", "w", "h", "cbm", "gw", "nw",
	"pesoUnitario", "qtMinVenda", "valorInvoiceUsd",
}

func BuildIndex(p internal.Product) string {
	parts := make([]string, 0, len(indexTextFields)+len(indexNumberFields))
	for _, key := range indexTextFields {
		f, _ := internal.LookupField(key)
		if v := util.Normalize(f.Text(p)); v != "" {
			parts = append(parts, v)
		}
	}
	for _, key := range indexNumberFields {
		f, _ := internal.LookupField(key)
		parts = append(parts, util.FormatNumber(f.Number(p)))
	}
	return util.FoldPunct(strings.Join(parts, " "))
}

// Matches reports whether every term of query occurs in the product's index.
func Matches(p internal.Product, query string) bool {
	return matchTerms(BuildIndex(p), util.Terms(query))
}

func matchTerms(index string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(index, term) {
			return false
		}
	}
	return true
}
