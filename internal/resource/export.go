package resource

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/sadopc/portdesk/internal/api"
	"github.com/sadopc/portdesk/internal/export"
)

// Exporter serves the bulk export endpoint.
type Exporter interface {
	Export(ctx context.Context, resource string) ([]api.Record, error)
}

// ExportFile downloads every record of def and writes it to dir in format f.
// It returns the file path and the number of rows written. An empty
// resource yields export.ErrEmpty and no file.
func ExportFile(ctx context.Context, src Exporter, def Definition, f export.Format, dir string, now time.Time) (string, int, error) {
	items, err := src.Export(ctx, def.Path)
	if err != nil {
		return "", 0, errors.Wrapf(err, "export %s", def.Path)
	}
	if len(items) == 0 {
		return "", 0, export.ErrEmpty
	}
	for i, rec := range items {
		items[i] = def.Schema.Normalize(rec)
	}
	path, err := export.Write(f, def.ExportTable(items), dir, now)
	if err != nil {
		return "", 0, err
	}
	return path, len(items), nil
}
