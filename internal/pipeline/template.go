package pipeline

import (
	"io"

	"github.com/xuri/excelize/v2"
)

var templateExamples = [][]any{
	{
		"Linha A", "A11", "Settup", "ST001", "BRAÇO FIXO / FIXED ARM", "BRAÇO FIXO / FIXED ARM - A11",
		"Produto de alta qualidade", "Braço fixo para monitores", 10, 1, 12.00, "pcs",
		30.0, 5.0, 5.0, 0.00075, 0.5, 0.4, 0.4, "Settup", "RAVI001", "1234567890123", "DUN001",
		"Fixed Monitor Arm A11", "Braço Fixo A11", "Braço Fixo A11", 1, "84716000", "CEST001", 1.50,
		"Produto frágil, manuseio cuidadoso",
	},
	{
		"Linha A", "A20", "Settup", "ST002", "BRAÇO ARTICULADO / ARTICULATED ARM", "BRAÇO ARTICULADO / ARTICULATED ARM - A20",
		"Braço com articulação completa", "Braço articulado para monitores", 5, 1, 25.00, "pcs",
		40.0, 6.0, 6.0, 0.00144, 0.8, 0.7, 0.7, "Settup", "RAVI002", "1234567890124", "DUN002",
		"Articulated Monitor Arm A20", "Braço Articulado A20", "Braço Articulado A20", 1, "84716000", "CEST002", 3.00,
		"Produto com articulação, verificar funcionamento",
	},
}

func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	rows := append([][]any{toAny(templateColumns)}, templateExamples...)
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(templateColumns))
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return err
	}
	return f.Write(w)
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
