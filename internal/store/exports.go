package store

import (
	"time"

	"github.com/go-faster/errors"
)

func (s *Store) RecordExport(resource, format, path string, rows int) (*ExportRecord, error) {
	res, err := s.db.Exec(
		`INSERT INTO export_history (resource, format, path, rows) VALUES (?, ?, ?, ?)`,
		resource, format, path, rows,
	)
	if err != nil {
		return nil, errors.Wrap(err, "record export")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "record export id")
	}
	return &ExportRecord{ID: id, Resource: resource, Format: format, Path: path, Rows: rows, CreatedAt: time.Now().UTC()}, nil
}

// ListExports returns the most recent exports first. limit <= 0 means all.
func (s *Store) ListExports(limit int) ([]ExportRecord, error) {
	q := `SELECT id, resource, format, path, rows, created_at FROM export_history ORDER BY id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list exports")
	}
	defer rows.Close()

	var out []ExportRecord
	for rows.Next() {
		var (
			r       ExportRecord
			created string
		)
		if err := rows.Scan(&r.ID, &r.Resource, &r.Format, &r.Path, &r.Rows, &created); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, r)
	}
	return out, rows.Err()
}
