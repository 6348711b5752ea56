package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/portdesk/internal/api"
	"github.com/sadopc/portdesk/internal/export"
	"github.com/sadopc/portdesk/internal/resource"
	"github.com/sadopc/portdesk/internal/session"
)

// mySpaceModel lists the pending tasks and shipments assigned to the
// current user.
type mySpaceModel struct {
	backend resource.Backend
	session *session.Manager
	width   int
	height  int

	tasks     []api.Record
	shipments []api.Record
	loaded    bool
}

func newMySpaceModel(b resource.Backend, s *session.Manager) mySpaceModel {
	return mySpaceModel{backend: b, session: s}
}

func (m *mySpaceModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type mySpaceDataMsg struct {
	tasks     []api.Record
	shipments []api.Record
	err       error
}

func (m mySpaceModel) refresh() tea.Cmd {
	b, role := m.backend, m.session.Role()
	return func() tea.Msg {
		var msg mySpaceDataMsg
		g, ctx := errgroup.WithContext(context.Background())
		if allowed(staffOnly, role) {
			g.Go(func() error {
				page, err := b.List(ctx, "tareas", api.Params{"limit": "5", "estado": "pendiente", "myTasks": "true"})
				msg.tasks = page.Items
				return err
			})
		}
		g.Go(func() error {
			page, err := b.List(ctx, "embarques", api.Params{"limit": "5", "estado": "pendiente", "myShipments": "true"})
			msg.shipments = page.Items
			return err
		})
		msg.err = g.Wait()
		return msg
	}
}

func (m mySpaceModel) update(msg tea.Msg) (mySpaceModel, tea.Cmd) {
	switch msg := msg.(type) {
	case mySpaceDataMsg:
		m.loaded = true
		m.tasks = msg.tasks
		m.shipments = msg.shipments
		if msg.err != nil {
			if api.IsUnauthorized(msg.err) {
				return m, func() tea.Msg { return sessionExpiredMsg{} }
			}
			return m, statusCmd(errText(msg.err), true)
		}
	case tea.KeyMsg:
		if key.Matches(msg, keys.Refresh) {
			return m, m.refresh()
		}
	}
	return m, nil
}

func (m mySpaceModel) view() string {
	w := m.width - 4
	name := ""
	if s, ok := m.session.Current(); ok {
		name = s.DisplayName
	}

	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Mi espacio"),
		mutedStyle.Render(fmt.Sprintf("Bienvenido, %s. Aquí tienes un resumen de tus asignaciones.", name)),
	)
	if !m.loaded {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, header, "", mutedStyle.Render("Cargando tu espacio...")))
	}

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		cardStyle.Render(mutedStyle.Render("Tareas pendientes")+"\n"+highlightStyle.Render(fmt.Sprint(len(m.tasks)))),
		cardStyle.Render(mutedStyle.Render("Embarques a supervisar")+"\n"+highlightStyle.Render(fmt.Sprint(len(m.shipments)))),
	)

	var tasks []string
	tasks = append(tasks, subtitleStyle.Render("Mis tareas recientes"))
	if len(m.tasks) == 0 {
		tasks = append(tasks, mutedStyle.Render("  No tienes tareas pendientes"))
	}
	for _, t := range m.tasks {
		tasks = append(tasks, fmt.Sprintf("  • %s %s", truncate(t.String("titulo"), 32),
			mutedStyle.Render(export.DateES(t["fecha"])+" "+strings.ToUpper(t.String("prioridad")))))
	}

	var ships []string
	ships = append(ships, subtitleStyle.Render("Embarques a supervisar"))
	if len(m.shipments) == 0 {
		ships = append(ships, mutedStyle.Render("  No tienes embarques pendientes"))
	}
	for _, s := range m.shipments {
		ships = append(ships, fmt.Sprintf("  • %s %s", s.String("numeroGuia"),
			mutedStyle.Render(s.String("origen")+" → "+s.String("destino"))))
	}

	lists := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(max(30, w/2)).Render(strings.Join(tasks, "\n")),
		strings.Join(ships, "\n"),
	)
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, header, "", cards, "", lists, "", mutedStyle.Render("  r: recargar")))
}
