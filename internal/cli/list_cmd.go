package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/sadopc/portdesk/internal/resource"
	"github.com/sadopc/portdesk/internal/stats"
)

type listOptions struct {
	page    int
	limit   int
	query   string
	filters []string
	json    bool
}

func newListCmd(rt *runtime) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list <recurso>",
		Short: "Lista una página de un recurso",
		Example: `  portdesk list embarques --filter estado=en-transito
  portdesk list tareas --q grúa --limit 10 --page 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.signedIn(cmd.Context()); err != nil {
				return err
			}
			def, err := rt.definition(args[0])
			if err != nil {
				return err
			}
			ctrl := resource.NewController(def, rt.client, rt.session,
				resource.WithLogger(rt.logger),
				resource.WithPageSize(rt.cfg.PageSize),
			)
			if err := applyListOptions(ctrl, opts); err != nil {
				return err
			}
			if _, err := ctrl.LoadList(cmd.Context()); err != nil {
				return err
			}
			view := ctrl.Snapshot()
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), view.Items)
			}
			renderList(cmd.OutOrStdout(), def, view)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.page, "page", 1, "página")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "registros por página (5, 10, 15, 20, 25, 50, 100)")
	cmd.Flags().StringVar(&opts.query, "q", "", "texto a buscar")
	cmd.Flags().StringArrayVar(&opts.filters, "filter", nil, "filtro clave=valor (repetible)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "salida JSON")
	return cmd
}

// applyListOptions sets the limit first: changing it returns to page 1.
func applyListOptions(ctrl *resource.Controller, opts listOptions) error {
	if opts.limit != 0 {
		if _, err := ctrl.SetLimit(opts.limit); err != nil {
			return err
		}
	}
	for _, kv := range opts.filters {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return errors.Errorf("filtro inválido %q: use clave=valor", kv)
		}
		ctrl.SetFilter(strings.TrimSpace(k), strings.TrimSpace(v))
	}
	if opts.query != "" {
		ctrl.SetSearch(opts.query)
	}
	if opts.page < 1 {
		return errors.Errorf("página inválida %d", opts.page)
	}
	ctrl.SetPage(opts.page)
	return nil
}

func renderList(w io.Writer, def resource.Definition, view resource.View) {
	if len(view.Items) == 0 {
		fmt.Fprintf(w, "No hay %s para mostrar\n", strings.ToLower(def.Label))
		return
	}
	headers := make([]string, len(def.Columns))
	for i, c := range def.Columns {
		headers[i] = c.Title
	}
	rows := make([][]string, 0, len(view.Items))
	for _, rec := range view.Items {
		row := make([]string, len(def.Columns))
		for i, c := range def.Columns {
			row[i] = c.Cell(rec)
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.String())
	fmt.Fprintln(w, view.Page.Range())
	if view.Page.Navigable() {
		fmt.Fprintf(w, "Página %d de %d\n", view.Page.Current, view.Page.TotalPages())
	}
}

func newStatsCmd(rt *runtime) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats <recurso>",
		Short: "Muestra el resumen estadístico de un recurso",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.signedIn(cmd.Context()); err != nil {
				return err
			}
			def, err := rt.definition(args[0])
			if err != nil {
				return err
			}
			raw, err := rt.client.Stats(cmd.Context(), def.Path, def.Stats.Endpoint)
			if err != nil {
				return err
			}
			sum := stats.Derive(def.Stats, raw)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), sum)
			}
			renderSummary(cmd.OutOrStdout(), def, sum)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "salida JSON")
	return cmd
}

func renderSummary(w io.Writer, def resource.Definition, sum stats.Summary) {
	fmt.Fprintf(w, "%s\n\n", def.Label)
	for _, c := range sum.Cards {
		fmt.Fprintf(w, "  %-24s %s\n", c.Label, c.Text())
	}
	if len(sum.Distribution) > 0 {
		fmt.Fprintf(w, "\nPor estado\n")
		writeSlices(w, sum.Distribution)
	}
	if len(sum.Breakdown) > 0 {
		fmt.Fprintf(w, "\nPor departamento\n")
		writeSlices(w, sum.Breakdown)
	}
}

func writeSlices(w io.Writer, parts []stats.Slice) {
	for _, sl := range parts {
		fmt.Fprintf(w, "  %-24s %5d %4d%%\n", sl.Label, sl.Count, sl.Percent)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
