package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-faster/errors"

	"github.com/sadopc/portdesk/internal/api"
	"github.com/sadopc/portdesk/internal/nav"
	"github.com/sadopc/portdesk/internal/pagination"
	"github.com/sadopc/portdesk/internal/resource"
)

// fieldsPerGroup keeps long forms on screen.
const fieldsPerGroup = 6

// pageModel is the generic view of one resource: summary cards, filter bar,
// table, pagination, side widget and the create/edit form.
type pageModel struct {
	ctrl     *resource.Controller
	def      resource.Definition
	roles    resource.RoleSource
	debounce time.Duration
	width    int
	height   int

	snap    resource.View
	cursor  int
	loading bool
	detail  bool

	searching bool
	search    textinput.Model
	filterIdx int

	formActive bool
	form       *huh.Form
	formValues map[string]*string

	// A form waiting for its reference options.
	pendingForm map[string]string

	confirming bool
	confirm    *huh.Form
	confirmed  *bool
	pending    api.Record

	spinner spinner.Model
}

func newPageModel(ctrl *resource.Controller, roles resource.RoleSource, debounce time.Duration) pageModel {
	ti := textinput.New()
	ti.Placeholder = "Buscar..."
	ti.Prompt = "/ "
	ti.CharLimit = 80
	ti.Width = 28

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = highlightStyle

	confirmed := false
	return pageModel{
		ctrl:      ctrl,
		def:       ctrl.Definition(),
		roles:     roles,
		debounce:  debounce,
		snap:      ctrl.Snapshot(),
		search:    ti,
		spinner:   sp,
		confirmed: &confirmed,
	}
}

func (p *pageModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

// capturing reports whether the page consumes every key.
func (p pageModel) capturing() bool {
	return p.formActive || p.confirming || p.searching
}

func (p pageModel) refresh() tea.Cmd {
	ctrl, name := p.ctrl, p.def.Name
	return tea.Batch(p.spinner.Tick, func() tea.Msg {
		return pageLoadedMsg{resource: name, err: ctrl.Refresh(context.Background())}
	})
}

func (p pageModel) loadList() tea.Cmd {
	ctrl, name := p.ctrl, p.def.Name
	return tea.Batch(p.spinner.Tick, func() tea.Msg {
		_, err := ctrl.LoadList(context.Background())
		return pageLoadedMsg{resource: name, err: err}
	})
}

func (p pageModel) loadRefs() tea.Cmd {
	ctrl, name := p.ctrl, p.def.Name
	return func() tea.Msg {
		return refsLoadedMsg{resource: name, err: ctrl.LoadRefs(context.Background())}
	}
}

// debounced fires a debounceMsg for gen once the query has been quiet for
// the debounce interval.
func (p pageModel) debounced(gen uint64) tea.Cmd {
	name := p.def.Name
	return tea.Tick(p.debounce, func(time.Time) tea.Msg {
		return debounceMsg{resource: name, gen: gen}
	})
}

func (p *pageModel) sync() {
	p.snap = p.ctrl.Snapshot()
	if p.cursor >= len(p.snap.Items) {
		p.cursor = max(0, len(p.snap.Items)-1)
	}
}

func (p pageModel) failed(err error) tea.Cmd {
	if api.IsUnauthorized(err) {
		return func() tea.Msg { return sessionExpiredMsg{} }
	}
	return statusCmd(errText(err), true)
}

func (p pageModel) selected() (api.Record, bool) {
	if p.cursor < 0 || p.cursor >= len(p.snap.Items) {
		return nil, false
	}
	return p.snap.Items[p.cursor], true
}

func (p pageModel) update(msg tea.Msg) (pageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case pageLoadedMsg:
		if errors.Is(msg.err, resource.ErrStale) {
			return p, nil
		}
		p.loading = false
		p.sync()
		if msg.err != nil {
			return p, p.failed(msg.err)
		}
		return p, nil

	case debounceMsg:
		if !p.ctrl.Settled(msg.gen) {
			return p, nil
		}
		p.loading = true
		return p, p.loadList()

	case refsLoadedMsg:
		values := p.pendingForm
		p.pendingForm = nil
		if values == nil {
			return p, nil
		}
		var cmd tea.Cmd
		if msg.err != nil {
			cmd = statusCmd("No se pudieron cargar las opciones: "+errText(msg.err), true)
		}
		var open tea.Cmd
		p, open = p.openForm(values, nil)
		return p, tea.Batch(cmd, open)

	case savedMsg:
		p.sync()
		if msg.err != nil {
			if errors.Is(msg.err, resource.ErrForbidden) {
				p.ctrl.Cancel()
				return p, p.failed(msg.err)
			}
			var open tea.Cmd
			p, open = p.openForm(p.snap.Form, p.snap.FieldErrors)
			return p, tea.Batch(p.failed(msg.err), open)
		}
		return p, statusCmd(fmt.Sprintf("%s guardado", capitalize(p.def.Singular)), false)

	case deletedMsg:
		p.sync()
		switch {
		case errors.Is(msg.err, resource.ErrNotConfirmed):
			return p, statusCmd(errText(msg.err), false)
		case msg.err != nil:
			return p, p.failed(msg.err)
		}
		return p, statusCmd(fmt.Sprintf("%s eliminado", capitalize(p.def.Singular)), false)

	case spinner.TickMsg:
		if !p.loading {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd
	}

	switch {
	case p.confirming:
		return p.updateConfirm(msg)
	case p.formActive:
		return p.updateForm(msg)
	case p.searching:
		return p.updateSearch(msg)
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		return p.updateKeys(msg)
	}
	return p, nil
}

func (p pageModel) updateKeys(msg tea.KeyMsg) (pageModel, tea.Cmd) {
	if p.detail {
		if key.Matches(msg, keys.Back) || key.Matches(msg, keys.Enter) {
			p.detail = false
		}
		return p, nil
	}

	switch {
	case key.Matches(msg, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, keys.Down):
		if p.cursor < len(p.snap.Items)-1 {
			p.cursor++
		}
	case key.Matches(msg, keys.Enter):
		if _, ok := p.selected(); ok {
			p.detail = true
		}
	case key.Matches(msg, keys.New):
		values, err := p.ctrl.BeginCreate()
		if err != nil {
			return p, p.failed(err)
		}
		return p.prepareForm(values)
	case key.Matches(msg, keys.Edit):
		rec, ok := p.selected()
		if !ok {
			return p, nil
		}
		values, err := p.ctrl.BeginEdit(rec)
		if err != nil {
			return p, p.failed(err)
		}
		return p.prepareForm(values)
	case key.Matches(msg, keys.Delete):
		rec, ok := p.selected()
		if !ok {
			return p, nil
		}
		if !nav.Allowed(nav.ActionDelete, p.roles.Role()) {
			return p, p.failed(resource.ErrForbidden)
		}
		return p.askDelete(rec)
	case key.Matches(msg, keys.Search):
		p.searching = true
		return p, p.search.Focus()
	case key.Matches(msg, keys.Filter):
		if len(p.def.Filters) == 0 {
			return p, nil
		}
		f := p.def.Filters[p.filterIdx]
		gen := p.ctrl.SetFilter(f.Key, nextOption(f.Options, p.snap.Query.Filters[f.Key]))
		p.sync()
		return p, p.debounced(gen)
	case key.Matches(msg, keys.NextFilter):
		if len(p.def.Filters) > 0 {
			p.filterIdx = (p.filterIdx + 1) % len(p.def.Filters)
		}
	case key.Matches(msg, keys.Clear):
		gen := p.ctrl.ClearFilters()
		p.search.SetValue("")
		p.sync()
		return p, p.debounced(gen)
	case key.Matches(msg, keys.PrevPage):
		if !p.snap.Page.HasPrev() {
			return p, nil
		}
		gen := p.ctrl.SetPage(p.snap.Page.Current - 1)
		p.sync()
		return p, p.debounced(gen)
	case key.Matches(msg, keys.NextPage):
		if !p.snap.Page.HasNext() {
			return p, nil
		}
		gen := p.ctrl.SetPage(p.snap.Page.Current + 1)
		p.sync()
		return p, p.debounced(gen)
	case key.Matches(msg, keys.FirstPage):
		if !p.snap.Page.HasFirst() {
			return p, nil
		}
		gen := p.ctrl.SetPage(1)
		p.sync()
		return p, p.debounced(gen)
	case key.Matches(msg, keys.LastPage):
		if !p.snap.Page.HasLast() {
			return p, nil
		}
		gen := p.ctrl.SetPage(p.snap.Page.Last())
		p.sync()
		return p, p.debounced(gen)
	case key.Matches(msg, keys.PageSize):
		gen, err := p.ctrl.SetLimit(nextPageSize(p.snap.Page.Limit))
		if err != nil {
			return p, p.failed(err)
		}
		p.sync()
		return p, p.debounced(gen)
	case key.Matches(msg, keys.Refresh):
		p.loading = true
		return p, p.refresh()
	}
	return p, nil
}

func (p pageModel) updateSearch(msg tea.Msg) (pageModel, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(km, keys.Enter) || key.Matches(km, keys.Back) {
			p.searching = false
			p.search.Blur()
			return p, nil
		}
	}
	prev := p.search.Value()
	var cmd tea.Cmd
	p.search, cmd = p.search.Update(msg)
	if p.search.Value() == prev {
		return p, cmd
	}
	gen := p.ctrl.SetSearch(strings.TrimSpace(p.search.Value()))
	p.sync()
	return p, tea.Batch(cmd, p.debounced(gen))
}

// ============================================================
// Form
// ============================================================

// prepareForm opens the form, loading reference options first when the
// resource has reference fields.
func (p pageModel) prepareForm(values map[string]string) (pageModel, tea.Cmd) {
	if len(p.def.RefFields()) > 0 {
		p.pendingForm = values
		return p, p.loadRefs()
	}
	return p.openForm(values, nil)
}

func (p pageModel) openForm(values, fieldErrs map[string]string) (pageModel, tea.Cmd) {
	p.formValues = make(map[string]*string, len(p.def.Schema.Fields))
	var (
		groups []*huh.Group
		fields []huh.Field
	)
	for _, f := range p.def.Schema.Fields {
		v := values[f.Key]
		ptr := &v
		p.formValues[f.Key] = ptr
		fields = append(fields, p.formField(f, ptr, fieldErrs[f.Key]))
		if len(fields) == fieldsPerGroup {
			groups = append(groups, huh.NewGroup(fields...))
			fields = nil
		}
	}
	if len(fields) > 0 {
		groups = append(groups, huh.NewGroup(fields...))
	}

	p.form = huh.NewForm(groups...).WithShowHelp(true).WithShowErrors(true)
	p.formActive = true
	p.detail = false
	return p, p.form.Init()
}

func (p pageModel) formField(f resource.Field, v *string, fieldErr string) huh.Field {
	title := f.Label
	if f.Required {
		title += " *"
	}
	desc := ""
	if fieldErr != "" {
		desc = errorStyle.Render(fieldErr)
	}

	switch f.Kind {
	case resource.KindSelect, resource.KindRef:
		if opts := p.ctrl.Options(f); len(opts) > 0 {
			choices := make([]huh.Option[string], 0, len(opts)+1)
			if !f.Required {
				choices = append(choices, huh.NewOption("(ninguno)", ""))
			}
			for _, o := range opts {
				choices = append(choices, huh.NewOption(o.Label, o.Value))
			}
			return huh.NewSelect[string]().Title(title).Description(desc).Options(choices...).Value(v)
		}
	case resource.KindTextarea:
		return huh.NewText().Title(title).Description(desc).Lines(3).Value(v)
	}

	placeholder := f.Placeholder
	if placeholder == "" && f.Kind == resource.KindDate {
		placeholder = "AAAA-MM-DD"
	}
	return huh.NewInput().Title(title).Description(desc).Placeholder(placeholder).Value(v)
}

func (p pageModel) collect() map[string]string {
	out := make(map[string]string, len(p.formValues))
	for k, v := range p.formValues {
		out[k] = *v
	}
	return out
}

func (p pageModel) updateForm(msg tea.Msg) (pageModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			return p.cancelForm()
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	switch p.form.State {
	case huh.StateCompleted:
		p.formActive = false
		values := p.collect()
		ctrl, name := p.ctrl, p.def.Name
		return p, func() tea.Msg {
			rec, err := ctrl.Submit(context.Background(), values)
			return savedMsg{resource: name, rec: rec, err: err}
		}
	case huh.StateAborted:
		return p.cancelForm()
	}
	return p, cmd
}

func (p pageModel) cancelForm() (pageModel, tea.Cmd) {
	p.ctrl.Cancel()
	p.formActive = false
	p.form = nil
	p.sync()
	return p, nil
}

// ============================================================
// Delete confirmation
// ============================================================

func (p pageModel) askDelete(rec api.Record) (pageModel, tea.Cmd) {
	*p.confirmed = false
	p.pending = rec
	p.confirm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("¿Eliminar %s %q?", p.def.Singular, p.recordLabel(rec))).
				Description("Esta acción no se puede deshacer").
				Affirmative("Eliminar").
				Negative("Cancelar").
				Value(p.confirmed),
		),
	).WithShowHelp(false)
	p.confirming = true
	return p, p.confirm.Init()
}

func (p pageModel) updateConfirm(msg tea.Msg) (pageModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		*p.confirmed = false
		return p.finishConfirm()
	}
	form, cmd := p.confirm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.confirm = f
	}
	if p.confirm.State == huh.StateCompleted || p.confirm.State == huh.StateAborted {
		return p.finishConfirm()
	}
	return p, cmd
}

func (p pageModel) finishConfirm() (pageModel, tea.Cmd) {
	p.confirming = false
	p.confirm = nil
	ctrl, name := p.ctrl, p.def.Name
	id, ok := p.pending.ID(), *p.confirmed
	p.pending = nil
	return p, func() tea.Msg {
		return deletedMsg{resource: name, err: ctrl.Remove(context.Background(), id, ok)}
	}
}

func (p pageModel) recordLabel(rec api.Record) string {
	if len(p.def.Columns) == 0 {
		return rec.ID()
	}
	return p.def.Columns[0].Cell(rec)
}

// ============================================================
// View
// ============================================================

func (p pageModel) view() string {
	w := p.width - 4

	if p.confirming && p.confirm != nil {
		return activePanelStyle.Width(w).Render(p.confirm.View())
	}
	if p.formActive && p.form != nil {
		title := fmt.Sprintf("Nuevo %s", p.def.Singular)
		if p.snap.Mode == resource.ModeEdit {
			title = fmt.Sprintf("Editar %s", p.def.Singular)
		}
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", p.form.View()),
		)
	}
	if p.detail {
		return p.renderDetail(w)
	}

	title := titleStyle.Render(p.def.Label)
	if p.loading {
		title += " " + p.spinner.View()
	}

	main := []string{title, ""}
	if p.snap.HasStats {
		main = append(main, renderCards(p.snap.Stats.Cards), renderDistribution(p.snap.Stats.Distribution, 18), "")
	}
	main = append(main, p.renderFilterBar(), "", p.renderTable(), "", p.renderPager())

	body := lipgloss.JoinVertical(lipgloss.Left, main...)
	side := p.renderSide()
	if p.width >= 120 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, "  ", side)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", side)
	}

	hint := "  /: buscar  f: filtro  c: limpiar  s: por página  ←/→: página  home/end: primera/última  enter: ver"
	if nav.CanMutate(p.roles.Role()) {
		hint += "  n: nuevo  e: editar  d: eliminar"
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, body, "", mutedStyle.Render(hint)))
}

func (p pageModel) renderFilterBar() string {
	parts := []string{p.search.View()}
	if p.snap.Query.Search != "" && !p.searching {
		parts[0] = highlightStyle.Render("/ " + p.snap.Query.Search)
	}
	for i, f := range p.def.Filters {
		val := "Todos"
		if cur := p.snap.Query.Filters[f.Key]; cur != "" {
			val = optionLabel(f.Options, cur)
		}
		text := fmt.Sprintf("%s: %s", f.Label, val)
		if i == p.filterIdx {
			parts = append(parts, selectedItemStyle.Render("["+text+"]"))
		} else {
			parts = append(parts, mutedStyle.Render(" "+text+" "))
		}
	}
	parts = append(parts, mutedStyle.Render(fmt.Sprintf("Por página: %d", p.snap.Page.Limit)))
	return strings.Join(parts, "  ")
}

func (p pageModel) renderTable() string {
	if p.snap.ListErr != nil {
		return errorStyle.Render("  " + errText(p.snap.ListErr))
	}
	if len(p.snap.Items) == 0 {
		if p.loading {
			return mutedStyle.Render("  Cargando...")
		}
		return mutedStyle.Render(fmt.Sprintf("  No hay %s para mostrar", strings.ToLower(p.def.Label)))
	}

	var head []string
	for _, c := range p.def.Columns {
		head = append(head, pad(c.Title, c.Width))
	}
	rows := []string{tableHeaderStyle.Render("  " + strings.Join(head, " "))}
	for i, rec := range p.snap.Items {
		var cells []string
		for _, c := range p.def.Columns {
			cells = append(cells, pad(c.Cell(rec), c.Width))
		}
		cursor := "  "
		style := normalItemStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+strings.Join(cells, " ")))
	}
	return strings.Join(rows, "\n")
}

func (p pageModel) renderPager() string {
	pg := p.snap.Page
	if !pg.Visible() {
		return ""
	}
	line := mutedStyle.Render(pg.Range())
	if !pg.Navigable() {
		return line
	}
	var nums []string
	if pg.HasFirst() {
		nums = append(nums, "«")
	}
	if pg.HasPrev() {
		nums = append(nums, "‹")
	}
	for _, n := range pg.Pages() {
		if n == pg.Current {
			nums = append(nums, selectedItemStyle.Render(fmt.Sprintf("[%d]", n)))
		} else {
			nums = append(nums, fmt.Sprintf("%d", n))
		}
	}
	if pg.HasNext() {
		nums = append(nums, "›")
	}
	if pg.HasLast() {
		nums = append(nums, "»")
	}
	return line + "   " + strings.Join(nums, " ")
}

func (p pageModel) renderSide() string {
	sw := p.def.Side
	rows := []string{subtitleStyle.Render(sw.Title)}
	if len(p.snap.Side) == 0 {
		rows = append(rows, mutedStyle.Render("Sin elementos"))
	}
	for _, rec := range p.snap.Side {
		second := rec.String(sw.Secondary)
		if sw.Format != nil {
			second = sw.Format(rec[sw.Secondary])
		}
		rows = append(rows, "• "+truncate(rec.String(sw.Primary), 24), mutedStyle.Render("  "+truncate(second, 24)))
	}
	return panelStyle.Width(30).Render(strings.Join(rows, "\n"))
}

func (p pageModel) renderDetail(w int) string {
	rec, ok := p.selected()
	if !ok {
		return ""
	}
	values := p.def.Schema.FormValues(rec)
	rows := []string{titleStyle.Render(capitalize(p.def.Singular) + " " + p.recordLabel(rec)), ""}
	for _, f := range p.def.Schema.Fields {
		v := values[f.Key]
		switch f.Kind {
		case resource.KindSelect:
			v = f.OptionLabel(v)
		case resource.KindRef:
			v = rec.String(f.Key)
		}
		rows = append(rows, fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(22).Render(f.Label), highlightStyle.Render(v)))
	}
	rows = append(rows, "", mutedStyle.Render("  esc: volver"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

// ============================================================
// Helpers
// ============================================================

func nextPageSize(cur int) int {
	i := slices.Index(pagination.PageSizes, cur)
	return pagination.PageSizes[(i+1)%len(pagination.PageSizes)]
}

// nextOption cycles through "" (all) and the option values.
func nextOption(opts []resource.Option, cur string) string {
	vals := make([]string, 0, len(opts)+1)
	vals = append(vals, "")
	for _, o := range opts {
		vals = append(vals, o.Value)
	}
	i := slices.Index(vals, cur)
	return vals[(i+1)%len(vals)]
}

func optionLabel(opts []resource.Option, v string) string {
	for _, o := range opts {
		if o.Value == v {
			return o.Label
		}
	}
	return v
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
