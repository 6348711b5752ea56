package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-faster/errors"

	"github.com/sadopc/portdesk/internal/export"
	"github.com/sadopc/portdesk/internal/nav"
	"github.com/sadopc/portdesk/internal/pagination"
	"github.com/sadopc/portdesk/internal/store"
)

var prefLabels = map[string]string{
	store.PrefPageSize:     "Registros por página",
	store.PrefExportFormat: "Formato de exportación",
	store.PrefExportDir:    "Carpeta de exportación",
	store.PrefLastView:     "Última vista",
}

type settingsModel struct {
	store           *store.Store
	defaultPageSize int
	defaultDir      string
	width           int
	height          int

	prefs      []store.Preference
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	pageSize     *string
	exportFormat *string
	exportDir    *string
}

func newSettingsModel(s *store.Store, pageSize int, dir string) settingsModel {
	ps, ef, ed := "", "", ""
	return settingsModel{
		store:           s,
		defaultPageSize: pageSize,
		defaultDir:      dir,
		pageSize:        &ps,
		exportFormat:    &ef,
		exportDir:       &ed,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	prefs []store.Preference
}

func (s settingsModel) refresh() tea.Cmd {
	st := s.store
	return func() tea.Msg {
		prefs, _ := st.AllPreferences()
		return settingsDataMsg{prefs: prefs}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.prefs = msg.prefs
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.pageSize = strconv.Itoa(s.store.PreferenceInt(store.PrefPageSize, s.defaultPageSize))
	*s.exportFormat = s.getVal(store.PrefExportFormat, string(export.FormatCSV))
	*s.exportDir = s.getVal(store.PrefExportDir, s.defaultDir)

	sizes := make([]huh.Option[string], 0, len(pagination.PageSizes))
	for _, n := range pagination.PageSizes {
		sizes = append(sizes, huh.NewOption(strconv.Itoa(n), strconv.Itoa(n)))
	}
	formats := make([]huh.Option[string], 0, len(export.Formats))
	for _, f := range export.Formats {
		formats = append(formats, huh.NewOption(f.Label(), string(f)))
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title(prefLabels[store.PrefPageSize]).Options(sizes...).Value(s.pageSize),
		).Title("Listados"),
		huh.NewGroup(
			huh.NewSelect[string]().Title(prefLabels[store.PrefExportFormat]).Options(formats...).Value(s.exportFormat),
			huh.NewInput().Title(prefLabels[store.PrefExportDir]).Value(s.exportDir).
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return errors.New("la carpeta es obligatoria")
					}
					return nil
				}),
		).Title("Exportación"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		return s, s.save()
	}

	return s, cmd
}

func (s settingsModel) save() tea.Cmd {
	st := s.store
	size, format, dir := *s.pageSize, *s.exportFormat, strings.TrimSpace(*s.exportDir)
	return func() tea.Msg {
		for _, p := range []store.Preference{
			{Key: store.PrefPageSize, Value: size},
			{Key: store.PrefExportFormat, Value: format},
			{Key: store.PrefExportDir, Value: dir},
		} {
			if err := st.SetPreference(p.Key, p.Value); err != nil {
				return statusMsg{text: "No se pudieron guardar los ajustes: " + err.Error(), isError: true}
			}
		}
		n, _ := strconv.Atoi(size)
		return prefsSavedMsg{pageSize: n}
	}
}

func (s settingsModel) getVal(k, fallback string) string {
	v, err := s.store.GetPreference(k)
	if err != nil || v == "" {
		return fallback
	}
	return v
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Ajustes")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	rows := []string{title, ""}
	if len(s.prefs) == 0 {
		rows = append(rows, mutedStyle.Render("  Valores por defecto"))
	}
	for _, p := range s.prefs {
		label := lipgloss.NewStyle().Width(26).Render(prefLabel(p.Key))
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(formatPrefValue(p.Key, p.Value))))
	}

	rows = append(rows, "", mutedStyle.Render("Pulse enter para editar los ajustes"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func prefLabel(k string) string {
	if l, ok := prefLabels[k]; ok {
		return l
	}
	return k
}

func formatPrefValue(k, v string) string {
	switch k {
	case store.PrefExportFormat:
		if f, err := export.ParseFormat(v); err == nil {
			return f.Label()
		}
	case store.PrefLastView:
		for _, it := range nav.Sidebar() {
			if it.Path == v {
				return it.Label
			}
		}
	}
	return v
}
