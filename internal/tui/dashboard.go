package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/portdesk/internal/api"
	"github.com/sadopc/portdesk/internal/export"
	"github.com/sadopc/portdesk/internal/nav"
	"github.com/sadopc/portdesk/internal/resource"
	"github.com/sadopc/portdesk/internal/stats"
)

var (
	adminOnly = []nav.Role{nav.RoleAdmin}
	staffOnly = []nav.Role{nav.RoleAdmin, nav.RoleEmployee}
)

// dashboardStat is one global summary of the dashboard. Only roles in Roles
// trigger the stats request.
type dashboardStat struct {
	Resource string
	Roles    []nav.Role
	Cards    []string
}

var dashboardStats = []dashboardStat{
	{Resource: "personal", Roles: adminOnly, Cards: []string{"Total personal", "Activos"}},
	{Resource: "tareas", Roles: staffOnly, Cards: []string{"Pendientes", "Completadas"}},
	{Resource: "almacen", Roles: staffOnly, Cards: []string{"Total almacenes", "Operativos"}},
}

// dashboardRecent feeds the recent activity list.
var dashboardRecent = []dashboardStat{
	{Resource: "personal", Roles: adminOnly},
	{Resource: "tareas", Roles: staffOnly},
}

var activityDateKeys = []string{"fechaActualizacion", "updatedAt", "fechaCreacion", "createdAt", "fecha", "fechaRegistro"}

type statGroup struct {
	label string
	cards []stats.Card
}

type activity struct {
	action string
	text   string
	at     time.Time
}

type dashboardModel struct {
	backend resource.Backend
	roles   resource.RoleSource
	width   int
	height  int

	groups  []statGroup
	recent  []activity
	cursor  int
	loading bool
}

func newDashboardModel(b resource.Backend, roles resource.RoleSource) dashboardModel {
	return dashboardModel{backend: b, roles: roles}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d dashboardModel) actions() []nav.Item {
	return nav.Filter(nav.QuickActions(), d.roles.Role())
}

type dashboardDataMsg struct {
	groups []statGroup
	recent []activity
	err    error
}

func allowed(roles []nav.Role, role nav.Role) bool {
	return nav.Visible(nav.Item{AllowedRoles: roles}, role)
}

func (d dashboardModel) loadData() tea.Cmd {
	b, role := d.backend, d.roles.Role()
	return func() tea.Msg {
		var (
			mu     sync.Mutex
			groups = make([]statGroup, len(dashboardStats))
			recent []activity
		)
		g, ctx := errgroup.WithContext(context.Background())
		for i, ds := range dashboardStats {
			if !allowed(ds.Roles, role) {
				continue
			}
			def, _ := resource.Lookup(ds.Resource)
			g.Go(func() error {
				raw, err := b.Stats(ctx, def.Path, def.Stats.Endpoint)
				if err != nil {
					return err
				}
				sum := stats.Derive(def.Stats, raw)
				group := statGroup{label: def.Label}
				for _, c := range sum.Cards {
					if slices.Contains(ds.Cards, c.Label) {
						group.cards = append(group.cards, c)
					}
				}
				mu.Lock()
				groups[i] = group
				mu.Unlock()
				return nil
			})
		}
		for _, ds := range dashboardRecent {
			if !allowed(ds.Roles, role) {
				continue
			}
			g.Go(func() error {
				page, err := b.List(ctx, ds.Resource, api.Params{"page": "1", "limit": "5", "sort": "-createdAt"})
				if err != nil {
					return err
				}
				acts := activities(ds.Resource, page.Items)
				mu.Lock()
				recent = append(recent, acts...)
				mu.Unlock()
				return nil
			})
		}
		err := g.Wait()

		groups = slices.DeleteFunc(groups, func(s statGroup) bool { return s.label == "" })
		slices.SortStableFunc(recent, func(a, b activity) int { return b.at.Compare(a.at) })
		if len(recent) > 5 {
			recent = recent[:5]
		}
		return dashboardDataMsg{groups: groups, recent: recent, err: err}
	}
}

func activities(res string, items []api.Record) []activity {
	out := make([]activity, 0, len(items))
	for _, rec := range items {
		a := activity{at: activityDate(rec)}
		switch res {
		case "personal":
			a.action = "Registro"
			a.text = "Nuevo personal: " + firstOf(rec, "Sin nombre", "nombre", "name")
		default:
			a.action = "Pendiente"
			if st := strings.ToLower(rec.String("estado")); st == "completada" || st == "terminada" {
				a.action = "Completada"
			}
			a.text = "Tarea: " + firstOf(rec, "Tarea sin título", "titulo", "nombre", "descripcion")
		}
		out = append(out, a)
	}
	return out
}

func activityDate(rec api.Record) time.Time {
	for _, k := range activityDateKeys {
		if t, ok := export.ParseDate(rec.String(k)); ok {
			return t
		}
	}
	return time.Time{}
}

func firstOf(rec api.Record, fallback string, fields ...string) string {
	for _, k := range fields {
		if v := rec.String(k); v != "" {
			return v
		}
	}
	return fallback
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.loading = false
		d.groups = msg.groups
		d.recent = msg.recent
		if msg.err != nil {
			if api.IsUnauthorized(msg.err) {
				return d, func() tea.Msg { return sessionExpiredMsg{} }
			}
			return d, statusCmd("Error al cargar el inicio: "+errText(msg.err), true)
		}
		return d, nil

	case tea.KeyMsg:
		acts := d.actions()
		switch {
		case key.Matches(msg, keys.Up):
			if d.cursor > 0 {
				d.cursor--
			}
		case key.Matches(msg, keys.Down):
			if d.cursor < len(acts)-1 {
				d.cursor++
			}
		case key.Matches(msg, keys.Enter):
			if d.cursor < len(acts) {
				target := viewState(acts[d.cursor].Path)
				return d, func() tea.Msg { return switchViewMsg{view: target} }
			}
		case key.Matches(msg, keys.Refresh):
			d.loading = true
			return d, d.loadData()
		}
	}
	return d, nil
}

func (d dashboardModel) view() string {
	w := d.width - 4

	var cards []string
	for _, g := range d.groups {
		var lines []string
		lines = append(lines, subtitleStyle.Render(g.label))
		for _, c := range g.cards {
			lines = append(lines, fmt.Sprintf("%s %s", mutedStyle.Render(c.Label+":"), colored(c.Color, c.Text())))
		}
		cards = append(cards, cardStyle.Width(28).Render(strings.Join(lines, "\n")))
	}
	statsRow := mutedStyle.Render("  Sin estadísticas para su rol")
	if len(cards) > 0 {
		statsRow = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}

	var quick []string
	quick = append(quick, titleStyle.Render("Accesos rápidos"))
	for i, it := range d.actions() {
		cursor := "  "
		style := normalItemStyle
		if i == d.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		quick = append(quick, style.Render(fmt.Sprintf("%s%s %s", cursor, it.Icon, it.Label)))
	}

	var recent []string
	recent = append(recent, titleStyle.Render("Actividad reciente"))
	if len(d.recent) == 0 {
		recent = append(recent, mutedStyle.Render("  Sin actividad reciente"))
	}
	for _, a := range d.recent {
		when := ""
		if !a.at.IsZero() {
			when = a.at.Format("02/01/2006")
		}
		badge := warningStyle.Render(a.action)
		if a.action != "Pendiente" {
			badge = successStyle.Render(a.action)
		}
		recent = append(recent, fmt.Sprintf("  %s %s %s", badge, truncate(a.text, 40), mutedStyle.Render(when)))
	}

	title := titleStyle.Render("Inicio")
	if d.loading {
		title += mutedStyle.Render("  cargando...")
	}
	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(30).Render(strings.Join(quick, "\n")),
		strings.Join(recent, "\n"),
	)
	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title, "", statsRow, "", bottom, "",
			mutedStyle.Render("  ↑/↓: elegir  enter: abrir  r: recargar"),
		),
	)
}
