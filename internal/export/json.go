package export

import (
	"encoding/json"
	"os"
	"time"

	"github.com/go-faster/errors"
)

type jsonExport struct {
	ExportedAt string           `json:"exported_at"`
	Resource   string           `json:"resource"`
	Count      int              `json:"count"`
	Items      []map[string]any `json:"items"`
}

// ToJSON writes the raw rows, unformatted, with export metadata.
func ToJSON(t Table, path string) error {
	rows := t.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Resource:   t.Resource,
		Count:      len(rows),
		Items:      rows,
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal json")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write json file")
	}
	return nil
}
