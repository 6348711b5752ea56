// Package export writes resource listings to JSON, CSV, XLSX and PDF files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

var (
	ErrEmpty         = errors.New("nothing to export")
	ErrUnknownFormat = errors.New("unknown export format")
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Formats lists the formats in picker order.
var Formats = []Format{FormatJSON, FormatCSV, FormatXLSX, FormatPDF}

func (f Format) Label() string {
	switch f {
	case FormatXLSX:
		return "Excel"
	default:
		return strings.ToUpper(string(f))
	}
}

// ParseFormat accepts a format name; "excel" is an alias of xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", errors.Wrapf(ErrUnknownFormat, "%q", s)
}

// Column is one exported column. A nil Format renders the raw value.
type Column struct {
	Key    string
	Label  string
	Format Formatter
}

// Table is the dataset handed to a writer.
type Table struct {
	Resource string
	Label    string
	Columns  []Column
	Rows     []map[string]any
}

// Cols returns the configured columns, or the sorted keys of the first row
// when none are configured.
func (t Table) Cols() []Column {
	if len(t.Columns) > 0 {
		return t.Columns
	}
	if len(t.Rows) == 0 {
		return nil
	}
	keys := make([]string, 0, len(t.Rows[0]))
	for k := range t.Rows[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cols := make([]Column, len(keys))
	for i, k := range keys {
		cols[i] = Column{Key: k, Label: k}
	}
	return cols
}

// Cell renders one cell.
func (t Table) Cell(row map[string]any, c Column) string {
	if c.Format != nil {
		return c.Format(row[c.Key])
	}
	return Raw(row[c.Key])
}

// FileName is {label}_export_{YYYY-MM-DD}.{ext}, label lower-cased.
func FileName(label string, f Format, now time.Time) string {
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(label), " ", "_"))
	return fmt.Sprintf("%s_export_%s.%s", name, now.Format("2006-01-02"), f)
}

// Write exports t into dir and returns the file path.
func Write(f Format, t Table, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create export dir %s", dir)
	}
	path := filepath.Join(dir, FileName(t.Label, f, now))
	var err error
	switch f {
	case FormatJSON:
		err = ToJSON(t, path)
	case FormatCSV:
		err = ToCSV(t, path)
	case FormatXLSX:
		err = ToXLSX(t, path)
	case FormatPDF:
		err = ToPDF(t, path)
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q", f)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}
