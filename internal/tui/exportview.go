package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-faster/errors"

	"github.com/sadopc/portdesk/internal/export"
	"github.com/sadopc/portdesk/internal/nav"
	"github.com/sadopc/portdesk/internal/resource"
	"github.com/sadopc/portdesk/internal/store"
)

// exportModel picks a resource and a format and writes the file.
type exportModel struct {
	exporter   resource.Exporter
	store      *store.Store
	roles      resource.RoleSource
	defaultDir string
	width      int
	height     int

	cursor  int
	format  int
	busy    bool
	history []store.ExportRecord
}

func newExportModel(e resource.Exporter, s *store.Store, roles resource.RoleSource, dir string) exportModel {
	return exportModel{exporter: e, store: s, roles: roles, defaultDir: dir}
}

func (e *exportModel) setSize(w, h int) {
	e.width = w
	e.height = h
}

// resources lists the definitions whose page the role may open.
func (e exportModel) resources() []resource.Definition {
	visible := nav.Filter(nav.Sidebar(), e.roles.Role())
	var out []resource.Definition
	for _, def := range resource.Catalog() {
		if slices.ContainsFunc(visible, func(it nav.Item) bool { return it.Path == def.Path }) {
			out = append(out, def)
		}
	}
	return out
}

type exportHistoryMsg struct {
	history []store.ExportRecord
	format  string
}

func (e exportModel) refresh() tea.Cmd {
	s := e.store
	return func() tea.Msg {
		history, _ := s.ListExports(5)
		format, _ := s.GetPreference(store.PrefExportFormat)
		return exportHistoryMsg{history: history, format: format}
	}
}

func (e exportModel) dir() string {
	if v, err := e.store.GetPreference(store.PrefExportDir); err == nil && strings.TrimSpace(v) != "" {
		return v
	}
	return e.defaultDir
}

func (e exportModel) update(msg tea.Msg) (exportModel, tea.Cmd) {
	switch msg := msg.(type) {
	case exportHistoryMsg:
		e.history = msg.history
		if f, err := export.ParseFormat(msg.format); err == nil {
			e.format = max(0, slices.Index(export.Formats, f))
		}
		return e, nil

	case exportDoneMsg:
		e.busy = false
		return e, e.refresh()

	case statusMsg:
		e.busy = false
		return e, nil

	case tea.KeyMsg:
		if e.busy {
			return e, nil
		}
		defs := e.resources()
		switch {
		case key.Matches(msg, keys.Up):
			if e.cursor > 0 {
				e.cursor--
			}
		case key.Matches(msg, keys.Down):
			if e.cursor < len(defs)-1 {
				e.cursor++
			}
		case key.Matches(msg, keys.Left):
			e.format = (e.format + len(export.Formats) - 1) % len(export.Formats)
		case key.Matches(msg, keys.Right):
			e.format = (e.format + 1) % len(export.Formats)
		case key.Matches(msg, keys.Enter):
			if e.cursor >= len(defs) {
				return e, nil
			}
			e.busy = true
			return e, e.doExport(defs[e.cursor], export.Formats[e.format])
		}
	}
	return e, nil
}

func (e exportModel) doExport(def resource.Definition, f export.Format) tea.Cmd {
	src, s, dir := e.exporter, e.store, e.dir()
	return func() tea.Msg {
		path, rows, err := resource.ExportFile(context.Background(), src, def, f, dir, time.Now())
		if errors.Is(err, export.ErrEmpty) {
			return statusMsg{text: "No hay datos para exportar", isError: true}
		}
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Error al exportar: %s", errText(err)), isError: true}
		}
		if _, err := s.RecordExport(def.Path, string(f), path, rows); err != nil {
			return statusMsg{text: fmt.Sprintf("Exportado a %s, sin registrar en el historial: %v", path, err), isError: true}
		}
		return exportDoneMsg{path: path, rows: rows}
	}
}

func (e exportModel) view() string {
	w := e.width - 4
	rows := []string{titleStyle.Render("Exportar datos"), ""}

	var formats []string
	for i, f := range export.Formats {
		if i == e.format {
			formats = append(formats, activeTabStyle.Render(f.Label()))
		} else {
			formats = append(formats, inactiveTabStyle.Render(f.Label()))
		}
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Bottom, formats...), "")

	for i, def := range e.resources() {
		cursor := "  "
		style := normalItemStyle
		if i == e.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+def.Label))
	}

	rows = append(rows, "", mutedStyle.Render("Destino: "+e.dir()))
	if e.busy {
		rows = append(rows, warningStyle.Render("Exportando..."))
	}

	rows = append(rows, "", subtitleStyle.Render("Últimas exportaciones"))
	if len(e.history) == 0 {
		rows = append(rows, mutedStyle.Render("  Ninguna todavía"))
	}
	for _, h := range e.history {
		rows = append(rows, fmt.Sprintf("  %s %-14s %-5s %4d  %s",
			mutedStyle.Render(h.CreatedAt.Local().Format("02/01 15:04")), h.Resource, h.Format, h.Rows, truncate(h.Path, 50)))
	}

	rows = append(rows, "", mutedStyle.Render("  ↑/↓: recurso  ←/→: formato  enter: exportar"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
