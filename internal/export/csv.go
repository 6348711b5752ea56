package export

import (
	"encoding/csv"
	"os"

	"github.com/go-faster/errors"
)

// bom makes spreadsheet apps read the file as UTF-8.
const bom = "\uFEFF"

// ToCSV writes a semicolon-separated file with a header row of column labels.
func ToCSV(t Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create csv file")
	}
	defer f.Close()

	if _, err := f.WriteString(bom); err != nil {
		return errors.Wrap(err, "write bom")
	}

	w := csv.NewWriter(f)
	w.Comma = ';'

	cols := t.Cols()
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Label
	}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}

	for _, row := range t.Rows {
		rec := make([]string, len(cols))
		for i, c := range cols {
			rec[i] = t.Cell(row, c)
		}
		if err := w.Write(rec); err != nil {
			return errors.Wrap(err, "write row")
		}
	}

	w.Flush()
	return w.Error()
}
