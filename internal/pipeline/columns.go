package pipeline

import (
	"time"

	"tradecatalog/internal"
)

type exportColumn struct {
	label string
	field internal.Field
}

func col(label, key string) exportColumn {
	f, ok := internal.LookupField(key)
	if !ok {
		panic("export column with unknown field " + key)
	}
	return exportColumn{label: label, field: f}
}

var dataColumns = []exportColumn{
	col("Referência", "referencia"),
	col("Nome RAVI Profit", "nomeRaviProfit"),
	col("Nome", "name"),
	col("Descrição", "description"),
	col("Fabricante", "fabrica"),
	col("Marca", "marca"),
	col("Item No", "itemNo"),
	col("Linha Cotações", "linhaCotacoes"),
	col("Preço Unitário RMB", "unitPriceRmb"),
	col("Valor Invoice USD", "valorInvoiceUsd"),
	col("MOQ", "moq"),
	col("Unidades por CTN", "unitCtn"),
	col("Qt Min Venda", "qtMinVenda"),
	col("Unidade", "unit"),
	col("Comprimento", "l"),
	col("Largura", "w"),
	col("Altura", "h"),
	col("CBM", "cbm"),
	col("Peso Bruto", "gw"),
	col("Peso Líquido", "nw"),
	col("Peso Unitário", "pesoUnitario"),
	col("Código Ravi", "codRavi"),
	col("EAN", "ean"),
	col("DUN", "dun"),
	col("NCM", "ncm"),
	col("CEST", "cest"),
	col("Nome Invoice EN", "nomeInvoiceEn"),
	col("Nome DI NB", "nomeDiNb"),
	col("Remark", "remark"),
	col("Observações", "obs"),
	col("Obs Pedido", "obsPedido"),
}

var templateColumns = []string{
	"linhaCotacoes", "referencia", "fabrica", "itemNo", "description", "name",
	"remark", "obs", "moq", "unitCtn", "unitPriceRmb", "unit", "l", "w", "h",
	"cbm", "gw", "nw", "pesoUnitario", "marca", "codRavi", "ean", "dun",
	"nomeInvoiceEn", "nomeDiNb", "nomeRaviProfit", "qtMinVenda", "ncm", "cest",
	"valorInvoiceUsd", "obsPedido",
}

func activeLabel(p internal.Product) string {
	if p.IsActive() {
		return "Sim"
	}
	return "Não"
}

// FormatDate renders t as dd/mm/yyyy in loc, or "N/A" when unset.
func FormatDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "N/A"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("02/01/2006")
}
