package tui

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/sadopc/portdesk/internal/config"
	"github.com/sadopc/portdesk/internal/logging"
	"github.com/sadopc/portdesk/internal/nav"
	"github.com/sadopc/portdesk/internal/resource"
	"github.com/sadopc/portdesk/internal/session"
	"github.com/sadopc/portdesk/internal/store"
)

// Backend is everything the views need from the REST client.
type Backend interface {
	resource.Backend
	resource.Exporter
}

// Deps wires the App to the rest of the program.
type Deps struct {
	Config  config.Config
	Backend Backend
	Session *session.Manager
	Store   *store.Store
	Logger  logrus.FieldLogger
}

// App is the root Bubble Tea model.
type App struct {
	deps   Deps
	logger logrus.FieldLogger
	width  int
	height int

	authed     bool
	login      loginModel
	tabs       []nav.Item
	activeView viewState
	showHelp   bool

	dashboard  dashboardModel
	mySpace    mySpaceModel
	statistics statisticsModel
	exporter   exportModel
	profile    profileModel
	settings   settingsModel
	pages      map[string]pageModel

	help          help.Model
	status        string
	statusIsError bool
}

func NewApp(d Deps) App {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	h := help.New()
	h.ShowAll = false

	return App{
		deps:       d,
		logger:     d.Logger,
		activeView: viewDashboard,
		login:      newLoginModel(d.Session),
		dashboard:  newDashboardModel(d.Backend, d.Session),
		mySpace:    newMySpaceModel(d.Backend, d.Session),
		statistics: newStatisticsModel(d.Backend),
		exporter:   newExportModel(d.Backend, d.Store, d.Session, d.Config.ExportDir),
		profile:    newProfileModel(d.Session),
		settings:   newSettingsModel(d.Store, d.Config.PageSize, d.Config.ExportDir),
		pages:      map[string]pageModel{},
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.login.init(), a.restore())
}

// restore picks up the session saved by a previous run.
func (a App) restore() tea.Cmd {
	s := a.deps.Session
	return func() tea.Msg {
		sess, err := s.Restore(context.Background())
		return authMsg{sess: sess, err: err, restored: true}
	}
}

// start builds the role-dependent part of the UI for a new session.
func (a App) start(sess session.Session) (App, tea.Cmd) {
	a.authed = true
	a.tabs = nav.Filter(nav.Sidebar(), sess.Role)
	a.status = ""

	size := a.deps.Config.PageSize
	if a.deps.Store != nil {
		size = a.deps.Store.PreferenceInt(store.PrefPageSize, size)
	}
	a.pages = map[string]pageModel{}
	for _, def := range resource.Catalog() {
		if !a.hasTab(viewState(def.Path)) {
			continue
		}
		ctrl := resource.NewController(def, a.deps.Backend, a.deps.Session,
			resource.WithLogger(a.logger),
			resource.WithPageSize(size),
		)
		p := newPageModel(ctrl, a.deps.Session, a.deps.Config.Debounce)
		p.setSize(a.width, a.contentHeight())
		a.pages[def.Path] = p
	}

	target := viewDashboard
	if a.deps.Store != nil {
		if v, err := a.deps.Store.GetPreference(store.PrefLastView); err == nil && a.hasTab(viewState(v)) {
			target = viewState(v)
		}
	}
	a.logger.WithField("role", sess.Role).Info("session started")

	a, cmd := a.switchTo(target)
	welcome := statusCmd(fmt.Sprintf("Bienvenido, %s", sess.DisplayName), false)
	return a, tea.Batch(cmd, welcome)
}

func (a App) hasTab(v viewState) bool {
	return slices.ContainsFunc(a.tabs, func(it nav.Item) bool { return viewState(it.Path) == v })
}

func (a App) tabIndex() int {
	return slices.IndexFunc(a.tabs, func(it nav.Item) bool { return viewState(it.Path) == a.activeView })
}

// switchTo activates v, remembers it and reloads its data.
func (a App) switchTo(v viewState) (App, tea.Cmd) {
	if !a.hasTab(v) {
		return a, statusCmd(errText(resource.ErrForbidden), true)
	}
	a.activeView = v
	st, logger := a.deps.Store, a.logger
	remember := func() tea.Msg {
		if st == nil {
			return nil
		}
		if err := st.SetPreference(store.PrefLastView, string(v)); err != nil {
			logger.WithError(err).Warn("save last view")
		}
		return nil
	}
	load := a.refreshCurrentView()
	return a, tea.Batch(remember, load)
}

func (a *App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewDashboard:
		a.dashboard.loading = true
		return a.dashboard.loadData()
	case viewMySpace:
		return a.mySpace.refresh()
	case viewStatistics:
		return a.statistics.refresh()
	case viewExport:
		return a.exporter.refresh()
	case viewSettings:
		return a.settings.refresh()
	case viewProfile:
		return nil
	}
	if p, ok := a.pages[string(a.activeView)]; ok {
		p.loading = true
		a.pages[string(a.activeView)] = p
		return p.refresh()
	}
	return nil
}

// signOut drops every role-dependent view and shows the login screen.
func (a App) signOut(reason string) (App, tea.Cmd) {
	a.authed = false
	a.tabs = nil
	a.pages = map[string]pageModel{}
	a.activeView = viewDashboard
	a.status = ""
	a.login = newLoginModel(a.deps.Session)
	a.login.setSize(a.width, a.height)
	a.login.errText = reason
	return a, a.login.init()
}

func (a App) logout(reason string) tea.Cmd {
	s := a.deps.Session
	return func() tea.Msg {
		_ = s.Logout(context.Background())
		return loggedOutMsg{reason: reason}
	}
}

func (a App) contentHeight() int {
	return max(1, a.height-5) // header + footer
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		h := a.contentHeight()
		a.login.setSize(a.width, a.height)
		a.dashboard.setSize(a.width, h)
		a.mySpace.setSize(a.width, h)
		a.statistics.setSize(a.width, h)
		a.exporter.setSize(a.width, h)
		a.profile.setSize(a.width, h)
		a.settings.setSize(a.width, h)
		for k, p := range a.pages {
			p.setSize(a.width, h)
			a.pages[k] = p
		}
		return a, nil

	case authMsg:
		if msg.err == nil {
			return a.start(msg.sess)
		}
		if msg.restored {
			a.logger.WithError(msg.err).Debug("no session to restore")
		}
		var cmd tea.Cmd
		a.login, cmd = a.login.update(msg)
		return a, cmd

	case loggedOutMsg:
		return a.signOut(msg.reason)

	case sessionExpiredMsg:
		if !a.authed {
			return a, nil
		}
		a.logger.Warn("session rejected by backend")
		return a, a.logout(errText(session.ErrExpired))
	}

	if !a.authed {
		if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		var cmd tea.Cmd
		a.login, cmd = a.login.update(msg)
		return a, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If a child view is capturing input (e.g. form), delegate first.
		if a.isCapturing() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Logout):
			return a, a.logout("Sesión cerrada")
		case key.Matches(msg, keys.Views):
			idx := int(msg.String()[0] - '1')
			if idx >= 0 && idx < len(a.tabs) {
				return a.switchTo(viewState(a.tabs[idx].Path))
			}
			return a, nil
		case key.Matches(msg, keys.Tab):
			if len(a.tabs) == 0 {
				return a, nil
			}
			next := (a.tabIndex() + 1) % len(a.tabs)
			return a.switchTo(viewState(a.tabs[next].Path))
		case key.Matches(msg, keys.ShiftTab):
			if len(a.tabs) == 0 {
				return a, nil
			}
			prev := (a.tabIndex() - 1 + len(a.tabs)) % len(a.tabs)
			return a.switchTo(viewState(a.tabs[prev].Path))
		}

	case switchViewMsg:
		return a.switchTo(msg.view)

	case pageMsg:
		p, ok := a.pages[msg.page()]
		if !ok {
			return a, nil
		}
		p, cmd := p.update(msg)
		a.pages[msg.page()] = p
		return a, cmd

	case spinner.TickMsg:
		var cmds []tea.Cmd
		for k, p := range a.pages {
			var cmd tea.Cmd
			p, cmd = p.update(msg)
			a.pages[k] = p
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case statusMsg:
		a.status = msg.text
		a.statusIsError = msg.isError
		var cmd tea.Cmd
		a.exporter, cmd = a.exporter.update(msg)
		return a, cmd

	case exportDoneMsg:
		a.status = fmt.Sprintf("Exportado a %s (%d registros)", msg.path, msg.rows)
		a.statusIsError = false
		var cmd tea.Cmd
		a.exporter, cmd = a.exporter.update(msg)
		return a, cmd

	case prefsSavedMsg:
		return a.applyPrefs(msg)

	case dashboardDataMsg:
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		return a, cmd

	case mySpaceDataMsg:
		var cmd tea.Cmd
		a.mySpace, cmd = a.mySpace.update(msg)
		return a, cmd

	case statisticsDataMsg:
		var cmd tea.Cmd
		a.statistics, cmd = a.statistics.update(msg)
		return a, cmd

	case exportHistoryMsg:
		var cmd tea.Cmd
		a.exporter, cmd = a.exporter.update(msg)
		return a, cmd

	case settingsDataMsg:
		var cmd tea.Cmd
		a.settings, cmd = a.settings.update(msg)
		return a, cmd

	case profileSavedMsg:
		var cmd tea.Cmd
		a.profile, cmd = a.profile.update(msg)
		return a, cmd
	}

	return a.updateActiveView(msg)
}

// applyPrefs moves every page to the new page size. Only the visible page
// reloads now; the others reload when opened.
func (a App) applyPrefs(msg prefsSavedMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{statusCmd("Ajustes guardados", false), a.settings.refresh()}
	for k, p := range a.pages {
		gen, err := p.ctrl.SetLimit(msg.pageSize)
		if err != nil {
			continue
		}
		p.sync()
		a.pages[k] = p
		if viewState(k) == a.activeView {
			cmds = append(cmds, p.debounced(gen))
		}
	}
	return a, tea.Batch(cmds...)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewMySpace:
		a.mySpace, cmd = a.mySpace.update(msg)
	case viewStatistics:
		a.statistics, cmd = a.statistics.update(msg)
	case viewExport:
		a.exporter, cmd = a.exporter.update(msg)
	case viewProfile:
		a.profile, cmd = a.profile.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	default:
		if p, ok := a.pages[string(a.activeView)]; ok {
			p, cmd = p.update(msg)
			a.pages[string(a.activeView)] = p
		}
	}
	return a, cmd
}

func (a App) isCapturing() bool {
	switch a.activeView {
	case viewProfile:
		return a.profile.formActive
	case viewSettings:
		return a.settings.formActive
	}
	if p, ok := a.pages[string(a.activeView)]; ok {
		return p.capturing()
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Cargando..."
	}
	if !a.authed {
		return a.login.view()
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewMySpace:
		content = a.mySpace.view()
	case viewStatistics:
		content = a.statistics.view()
	case viewExport:
		content = a.exporter.view()
	case viewProfile:
		content = a.profile.view()
	case viewSettings:
		content = a.settings.view()
	default:
		if p, ok := a.pages[string(a.activeView)]; ok {
			content = p.view()
		}
	}

	contentHeight := max(1, a.height-lipgloss.Height(header)-lipgloss.Height(footer))
	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, it := range a.tabs {
		label := it.Icon + " " + it.Label
		if i < 9 {
			label = fmt.Sprintf("%d %s", i+1, label)
		}
		if viewState(it.Path) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("portdesk")
	user := ""
	if sess, ok := a.deps.Session.Current(); ok {
		user = mutedStyle.Render(fmt.Sprintf("%s · %s", sess.DisplayName, sess.Role.Label()))
	}
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(user)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, user),
		tabRow,
	))
}

func (a App) renderFooter() string {
	left := footerStyle.Render(a.help.View(keys))

	status := ""
	if a.status != "" {
		style := successStyle
		if a.statusIsError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(status)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, status)
}
