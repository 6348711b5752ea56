package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/sadopc/portdesk/internal/export"
	"github.com/sadopc/portdesk/internal/resource"
	"github.com/sadopc/portdesk/internal/store"
)

type exportOptions struct {
	format  string
	out     string
	history bool
}

func newExportCmd(rt *runtime) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export [recurso]",
		Short: "Exporta todos los registros de un recurso a un archivo",
		Example: `  portdesk export facturas --format xlsx --out ~/informes
  portdesk export --history`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.history {
				return printHistory(cmd.OutOrStdout(), rt.store)
			}
			if len(args) == 0 {
				return errors.New("indique el recurso a exportar")
			}
			if _, err := rt.signedIn(cmd.Context()); err != nil {
				return err
			}
			def, err := rt.definition(args[0])
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(rt.preference(store.PrefExportFormat, opts.format, string(export.FormatCSV)))
			if err != nil {
				return err
			}
			dir := rt.preference(store.PrefExportDir, opts.out, rt.cfg.ExportDir)

			path, rows, err := resource.ExportFile(cmd.Context(), rt.client, def, f, dir, time.Now())
			if errors.Is(err, export.ErrEmpty) {
				return errors.Errorf("no hay datos para exportar en %s", strings.ToLower(def.Label))
			}
			if err != nil {
				return err
			}
			if _, err := rt.store.RecordExport(def.Path, string(f), path, rows); err != nil {
				rt.logger.WithError(err).Warn("record export")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exportado a %s (%d registros)\n", path, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "json, csv, xlsx o pdf (por defecto el de los ajustes, o csv)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "carpeta de destino (por defecto la de los ajustes)")
	cmd.Flags().BoolVar(&opts.history, "history", false, "muestra las últimas exportaciones")
	return cmd
}

// preference returns flag when set, then the stored preference, then fallback.
func (rt *runtime) preference(key, flag, fallback string) string {
	if strings.TrimSpace(flag) != "" {
		return strings.TrimSpace(flag)
	}
	if v, err := rt.store.GetPreference(key); err == nil && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func printHistory(w io.Writer, st *store.Store) error {
	history, err := st.ListExports(10)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(w, "Sin exportaciones")
		return nil
	}
	for _, h := range history {
		fmt.Fprintf(w, "%s  %-14s %-5s %5d  %s\n",
			h.CreatedAt.Local().Format("02/01/2006 15:04"), h.Resource, h.Format, h.Rows, h.Path)
	}
	return nil
}
