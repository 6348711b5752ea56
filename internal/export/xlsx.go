package export

import (
	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
)

const (
	headerFill  = "4472C4"
	columnWidth = 20
)

// ToXLSX writes a single-sheet workbook named after the table label.
func ToXLSX(t Table, path string) error {
	if len(t.Rows) == 0 {
		return ErrEmpty
	}
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Label)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(err, "name sheet")
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return errors.Wrap(err, "header style")
	}
	cellStyle, err := f.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return errors.Wrap(err, "cell style")
	}

	cols := t.Cols()
	for i, c := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, c.Label); err != nil {
			return errors.Wrap(err, "write header")
		}
	}
	for r, row := range t.Rows {
		for i, c := range cols {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			if err := f.SetCellValue(sheet, cell, t.Cell(row, c)); err != nil {
				return errors.Wrapf(err, "write %s", cell)
			}
		}
	}

	first, _ := excelize.ColumnNumberToName(1)
	last, _ := excelize.ColumnNumberToName(len(cols))
	if err := f.SetColWidth(sheet, first, last, columnWidth); err != nil {
		return errors.Wrap(err, "column width")
	}
	if err := f.SetCellStyle(sheet, first+"1", last+"1", headerStyle); err != nil {
		return errors.Wrap(err, "style header")
	}
	lastCell, _ := excelize.CoordinatesToCellName(len(cols), len(t.Rows)+1)
	if err := f.SetCellStyle(sheet, first+"2", lastCell, cellStyle); err != nil {
		return errors.Wrap(err, "style cells")
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, "save xlsx")
	}
	return nil
}

// sheetName trims to Excel's 31 character limit and drops forbidden runes.
func sheetName(label string) string {
	out := make([]rune, 0, len(label))
	for _, r := range label {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			continue
		}
		out = append(out, r)
		if len(out) == 31 {
			break
		}
	}
	if len(out) == 0 {
		return "Datos"
	}
	return string(out)
}
