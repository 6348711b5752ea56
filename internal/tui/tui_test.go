package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-faster/errors"

	"github.com/sadopc/portdesk/internal/api"
	"github.com/sadopc/portdesk/internal/api/apitest"
	"github.com/sadopc/portdesk/internal/config"
	"github.com/sadopc/portdesk/internal/export"
	"github.com/sadopc/portdesk/internal/nav"
	"github.com/sadopc/portdesk/internal/resource"
	"github.com/sadopc/portdesk/internal/session"
	"github.com/sadopc/portdesk/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type fixture struct {
	srv    *apitest.Server
	store  *store.Store
	sess   *session.Manager
	client *api.Client
	dir    string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	srv := apitest.New(t)
	st := newTestStore(t)
	m := session.New(st, session.WithAPIURL(srv.URL))
	c := api.New(srv.URL, api.WithTokenSource(m))
	m.Bind(c)
	return fixture{srv: srv, store: st, sess: m, client: c, dir: t.TempDir()}
}

func (f fixture) app(t *testing.T) App {
	t.Helper()
	cfg := config.Default()
	cfg.APIURL = f.srv.URL
	cfg.ExportDir = f.dir
	cfg.Debounce = time.Millisecond
	a := NewApp(Deps{Config: cfg, Backend: f.client, Session: f.sess, Store: f.store})
	m, _ := a.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return m.(App)
}

func (f fixture) signIn(t *testing.T, acc apitest.Account) App {
	t.Helper()
	sess, err := f.sess.Login(context.Background(), acc.Email, acc.Password)
	if err != nil {
		t.Fatalf("login %s: %v", acc.Email, err)
	}
	m, _ := f.app(t).Update(authMsg{sess: sess})
	return m.(App)
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	m, cmd := a.Update(msg)
	return m.(App), cmd
}

func statusOf(t *testing.T, cmd tea.Cmd) statusMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a status command")
	}
	msg, ok := cmd().(statusMsg)
	if !ok {
		t.Fatalf("expected statusMsg, got %T", msg)
	}
	return msg
}

// ============================================================
// App model
// ============================================================

func TestAppLoadingState(t *testing.T) {
	f := newFixture(t)
	a := NewApp(Deps{Config: config.Default(), Backend: f.client, Session: f.sess, Store: f.store})
	// Width 0 means not yet sized
	if out := a.View(); out != "Cargando..." {
		t.Fatalf("expected 'Cargando...', got %q", out)
	}
}

func TestAppStartsOnLogin(t *testing.T) {
	f := newFixture(t)
	a := f.app(t)
	if a.authed {
		t.Fatal("app should start signed out")
	}
	if !strings.Contains(a.View(), "Iniciar sesión") {
		t.Fatal("login screen not shown")
	}
	if a.Init() == nil {
		t.Fatal("init should restore the session")
	}
}

func TestAppRestoreWithoutSavedSession(t *testing.T) {
	f := newFixture(t)
	a := f.app(t)

	msg, ok := a.restore()().(authMsg)
	if !ok || !msg.restored {
		t.Fatal("restore should report a restored authMsg")
	}
	if !errors.Is(msg.err, session.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", msg.err)
	}
	a, _ = send(t, a, msg)
	if a.authed || a.login.errText != "" {
		t.Fatal("a missing session should show a clean login screen")
	}
}

func TestAppRestoresSavedSession(t *testing.T) {
	f := newFixture(t)
	if _, err := f.sess.Login(context.Background(), apitest.Employee.Email, apitest.Employee.Password); err != nil {
		t.Fatal(err)
	}

	// A new process sharing the same store.
	m := session.New(f.store, session.WithAPIURL(f.srv.URL))
	c := api.New(f.srv.URL, api.WithTokenSource(m))
	m.Bind(c)
	a := NewApp(Deps{Config: config.Default(), Backend: c, Session: m, Store: f.store})

	a, _ = send(t, a, a.restore()())
	if !a.authed {
		t.Fatal("saved session should be restored")
	}
	if m.Role() != nav.RoleEmployee {
		t.Fatalf("expected employee role, got %s", m.Role())
	}
}

func TestAppTabsPerRole(t *testing.T) {
	cases := []struct {
		acc     apitest.Account
		role    nav.Role
		pages   []string
		missing []string
	}{
		{apitest.Admin, nav.RoleAdmin, []string{"tareas", "personal", "facturas"}, nil},
		{apitest.Employee, nav.RoleEmployee, []string{"tareas", "almacen"}, []string{"personal"}},
		{apitest.Client, nav.RoleClient, []string{"embarques", "facturas"}, []string{"tareas", "personal", "almacen"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			f := newFixture(t)
			a := f.signIn(t, tc.acc)

			want := nav.Filter(nav.Sidebar(), tc.role)
			if len(a.tabs) != len(want) {
				t.Fatalf("expected %d tabs, got %d", len(want), len(a.tabs))
			}
			for i := range want {
				if a.tabs[i].Path != want[i].Path {
					t.Fatalf("tab %d: expected %s, got %s", i, want[i].Path, a.tabs[i].Path)
				}
			}
			for _, p := range tc.pages {
				if _, ok := a.pages[p]; !ok {
					t.Fatalf("missing page %s", p)
				}
			}
			for _, p := range tc.missing {
				if _, ok := a.pages[p]; ok {
					t.Fatalf("page %s should be hidden", p)
				}
			}
			if a.activeView != viewDashboard {
				t.Fatalf("expected dashboard, got %s", a.activeView)
			}
		})
	}
}

func TestAppNumberKeysIndexVisibleTabs(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Client)

	a, _ = send(t, a, keyPress("3"))
	if a.activeView != viewState(a.tabs[2].Path) {
		t.Fatalf("expected %s, got %s", a.tabs[2].Path, a.activeView)
	}

	before := a.activeView
	a, cmd := send(t, a, keyPress("9"))
	if a.activeView != before || cmd != nil {
		t.Fatal("a key past the last tab should do nothing")
	}
}

func TestAppTabCycles(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Client)

	a, _ = send(t, a, tea.KeyMsg{Type: tea.KeyShiftTab})
	last := viewState(a.tabs[len(a.tabs)-1].Path)
	if a.activeView != last {
		t.Fatalf("shift+tab from the first tab should wrap to %s, got %s", last, a.activeView)
	}
	a, _ = send(t, a, tea.KeyMsg{Type: tea.KeyTab})
	if a.activeView != viewDashboard {
		t.Fatalf("tab from the last tab should wrap to dashboard, got %s", a.activeView)
	}
}

func TestAppRefusesHiddenView(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Client)

	a, cmd := send(t, a, switchViewMsg{view: "personal"})
	if a.activeView != viewDashboard {
		t.Fatalf("client should stay on dashboard, got %s", a.activeView)
	}
	if st := statusOf(t, cmd); !st.isError {
		t.Fatal("refusal should be an error status")
	}
}

func TestAppLastViewRestored(t *testing.T) {
	f := newFixture(t)
	if err := f.store.SetPreference(store.PrefLastView, "facturas"); err != nil {
		t.Fatal(err)
	}
	a := f.signIn(t, apitest.Client)
	if a.activeView != "facturas" {
		t.Fatalf("expected facturas, got %s", a.activeView)
	}
}

func TestAppLastViewIgnoredWhenHidden(t *testing.T) {
	f := newFixture(t)
	if err := f.store.SetPreference(store.PrefLastView, "personal"); err != nil {
		t.Fatal(err)
	}
	a := f.signIn(t, apitest.Client)
	if a.activeView != viewDashboard {
		t.Fatalf("expected dashboard, got %s", a.activeView)
	}
}

func TestAppRoutesDebounceByResource(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Admin)

	ctrl := a.pages["tareas"].ctrl
	stale := ctrl.SetSearch("gr")
	latest := ctrl.SetSearch("grúa")

	// The dashboard is active; the message still reaches the tareas page.
	a, cmd := send(t, a, debounceMsg{resource: "tareas", gen: stale})
	if cmd != nil || a.pages["tareas"].loading {
		t.Fatal("a stale generation must not load")
	}
	a, cmd = send(t, a, debounceMsg{resource: "tareas", gen: latest})
	if cmd == nil || !a.pages["tareas"].loading {
		t.Fatal("the latest generation should load")
	}
	if a.activeView != viewDashboard {
		t.Fatal("routing must not change the active view")
	}
}

func TestAppIgnoresStaleListResponse(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Admin)
	p := a.pages["tareas"]
	p.loading = true
	a.pages["tareas"] = p

	a, cmd := send(t, a, pageLoadedMsg{resource: "tareas", err: resource.ErrStale})
	if cmd != nil {
		t.Fatal("stale responses are dropped silently")
	}
	if !a.pages["tareas"].loading {
		t.Fatal("a stale response must not end the newer load")
	}
}

func TestAppSessionExpired(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Admin)

	a, cmd := send(t, a, sessionExpiredMsg{})
	if cmd == nil {
		t.Fatal("expected a logout command")
	}
	a, _ = send(t, a, cmd())
	if a.authed {
		t.Fatal("app should be signed out")
	}
	if a.login.errText != "Sesión expirada, inicie sesión nuevamente" {
		t.Fatalf("unexpected login message %q", a.login.errText)
	}
	if _, ok := f.sess.Current(); ok {
		t.Fatal("session should be dropped")
	}
	if len(a.pages) != 0 {
		t.Fatal("pages should be dropped")
	}
}

func TestAppLogoutKey(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Employee)

	_, cmd := send(t, a, tea.KeyMsg{Type: tea.KeyCtrlL})
	msg, ok := cmd().(loggedOutMsg)
	if !ok {
		t.Fatal("expected loggedOutMsg")
	}
	if msg.reason != "Sesión cerrada" {
		t.Fatalf("unexpected reason %q", msg.reason)
	}
	if f.srv.Count("POST", "/api/auth/logout") != 1 {
		t.Fatal("backend logout not called")
	}
}

func TestAppQuitKey(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Client)

	_, cmd := send(t, a, keyPress("q"))
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q should quit")
	}
}

func TestAppFormCapturesKeys(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Admin)
	a, _ = send(t, a, switchViewMsg{view: "embarcaciones"})

	a, _ = send(t, a, keyPress("n"))
	if !a.pages["embarcaciones"].formActive {
		t.Fatal("n should open the form")
	}
	a, _ = send(t, a, keyPress("1"))
	if a.activeView != "embarcaciones" {
		t.Fatal("keys typed into the form must not switch views")
	}
	a, _ = send(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	if a.pages["embarcaciones"].formActive {
		t.Fatal("esc should close the form")
	}
	if a.pages["embarcaciones"].ctrl.Snapshot().Mode != resource.ModeClosed {
		t.Fatal("controller form should be closed")
	}
}

func TestAppPrefsSavedAppliesPageSize(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Admin)

	a, _ = send(t, a, prefsSavedMsg{pageSize: 20})
	for name, p := range a.pages {
		if got := p.ctrl.Query().Limit; got != 20 {
			t.Fatalf("%s: expected limit 20, got %d", name, got)
		}
	}
}

func TestAppStatusMessage(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Client)

	a, _ = send(t, a, statusMsg{text: "test status", isError: true})
	if !a.statusIsError {
		t.Fatal("status should be marked as error")
	}
	if !strings.Contains(a.renderFooter(), "test status") {
		t.Fatal("footer should contain status message")
	}
}

func TestAppExportDoneStatus(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Admin)

	a, _ = send(t, a, exportDoneMsg{path: "/tmp/embarques_export_2024-05-01.csv", rows: 3})
	if a.status != "Exportado a /tmp/embarques_export_2024-05-01.csv (3 registros)" {
		t.Fatalf("unexpected status %q", a.status)
	}
}

func TestAppRenderHeader(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Client)

	header := a.renderHeader()
	for _, it := range a.tabs {
		if !strings.Contains(header, it.Label) {
			t.Fatalf("header missing tab %q", it.Label)
		}
	}
	if strings.Contains(header, "Personal") {
		t.Fatal("client header should not offer Personal")
	}
	if !strings.Contains(header, apitest.Client.Name) {
		t.Fatal("header should show the user")
	}
}

func TestAppViewsRender(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Admin)

	for _, it := range a.tabs {
		a.activeView = viewState(it.Path)
		if a.View() == "" {
			t.Fatalf("view %s rendered empty", it.Path)
		}
	}
}

// ============================================================
// Resource page
// ============================================================

func TestPageFilterCycles(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Admin)
	p := a.pages["tareas"]

	p, cmd := p.update(keyPress("f"))
	if cmd == nil {
		t.Fatal("filter change should schedule a load")
	}
	if got := p.ctrl.Query().Filters["estado"]; got != "pendiente" {
		t.Fatalf("expected pendiente, got %q", got)
	}

	p, _ = p.update(keyPress("F"))
	p, _ = p.update(keyPress("f"))
	if got := p.ctrl.Query().Filters["prioridad"]; got != "baja" {
		t.Fatalf("expected baja, got %q", got)
	}

	p, _ = p.update(keyPress("c"))
	if len(p.ctrl.Query().Filters) != 0 {
		t.Fatal("c should clear the filters")
	}
}

func TestPageCreateForbiddenForEmployee(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Employee)
	p := a.pages["tareas"]

	p, cmd := p.update(keyPress("n"))
	if p.formActive {
		t.Fatal("employee must not open the form")
	}
	if st := statusOf(t, cmd); st.text != "No tiene permisos para esta acción" {
		t.Fatalf("unexpected status %q", st.text)
	}
}

func TestPageDeleteForbiddenForEmployee(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed("tareas", map[string]any{"titulo": "Revisar grúa", "estado": "pendiente"})
	a := f.signIn(t, apitest.Employee)
	p := a.pages["tareas"]
	if err := p.ctrl.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.sync()

	p, cmd := p.update(keyPress("d"))
	if p.confirming {
		t.Fatal("employee must not reach the confirmation")
	}
	statusOf(t, cmd)
	if f.srv.Count("DELETE", "/api/tareas") != 0 {
		t.Fatal("no delete request expected")
	}
}

func TestPageFormWaitsForReferences(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed("personal", map[string]any{"nombre": "Pedro Pérez", "estado": "activo"})
	a := f.signIn(t, apitest.Admin)
	p := a.pages["tareas"]

	p, cmd := p.update(keyPress("n"))
	if p.formActive || p.pendingForm == nil {
		t.Fatal("the form should wait for reference options")
	}
	p, _ = p.update(cmd())
	if !p.formActive {
		t.Fatal("form should open once references arrive")
	}
	field, _ := p.def.Schema.Field("asignado")
	if len(p.ctrl.Options(field)) != 1 {
		t.Fatal("reference options not loaded")
	}
}

func TestPageUnauthorizedExpiresSession(t *testing.T) {
	f := newFixture(t)
	a := f.signIn(t, apitest.Admin)
	p := a.pages["facturas"]
	f.srv.Fail("/api/facturas", 401, "Token inválido", nil)

	err := p.ctrl.Refresh(context.Background())
	_, cmd := p.update(pageLoadedMsg{resource: "facturas", err: err})
	if _, ok := cmd().(sessionExpiredMsg); !ok {
		t.Fatal("401 should expire the session")
	}
}

func TestPageViewShowsRows(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed("embarques", map[string]any{"numeroGuia": "GU-001", "estado": "en-transito", "origen": "Cartagena", "destino": "Houston"})
	a := f.signIn(t, apitest.Admin)
	p := a.pages["embarques"]
	if err := p.ctrl.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.sync()

	out := p.view()
	if !strings.Contains(out, "GU-001") {
		t.Fatal("table should list the shipment")
	}
	if !strings.Contains(out, "Mostrando 1 - 1 de 1") {
		t.Fatal("pager should show the range")
	}
}

func TestPageJumpsToFirstAndLast(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= 12; i++ {
		f.srv.Seed("embarques", map[string]any{"numeroGuia": fmt.Sprintf("GU-%03d", i), "estado": "pendiente"})
	}
	a := f.signIn(t, apitest.Admin)
	p := a.pages["embarques"]
	if err := p.ctrl.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.sync()
	if p.snap.Page.TotalPages() != 3 {
		t.Fatalf("expected 3 pages, got %d", p.snap.Page.TotalPages())
	}
	if out := p.renderPager(); strings.Contains(out, "«") || !strings.Contains(out, "»") {
		t.Fatalf("first page should only offer the last-page jump: %q", out)
	}
	if _, cmd := p.update(keyPress("<")); cmd != nil {
		t.Fatal("first-page jump should be disabled on page 1")
	}

	p, cmd := p.update(tea.KeyMsg{Type: tea.KeyEnd})
	if cmd == nil {
		t.Fatal("last-page jump should schedule a load")
	}
	if got := p.ctrl.Query().Page; got != 3 {
		t.Fatalf("expected page 3, got %d", got)
	}
	if err := p.ctrl.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.sync()
	if out := p.renderPager(); !strings.Contains(out, "«") || strings.Contains(out, "»") {
		t.Fatalf("last page should only offer the first-page jump: %q", out)
	}
	if _, cmd := p.update(keyPress(">")); cmd != nil {
		t.Fatal("last-page jump should be disabled on the last page")
	}

	p, _ = p.update(tea.KeyMsg{Type: tea.KeyHome})
	if got := p.ctrl.Query().Page; got != 1 {
		t.Fatalf("expected page 1, got %d", got)
	}
}

// ============================================================
// Dashboard and mi espacio
// ============================================================

func TestDashboardGatesStatsByRole(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed("tareas", map[string]any{"titulo": "Revisar grúa", "estado": "pendiente"})
	if _, err := f.sess.Login(context.Background(), apitest.Employee.Email, apitest.Employee.Password); err != nil {
		t.Fatal(err)
	}

	d := newDashboardModel(f.client, f.sess)
	msg, ok := d.loadData()().(dashboardDataMsg)
	if !ok {
		t.Fatal("expected dashboardDataMsg")
	}
	if msg.err != nil {
		t.Fatal(msg.err)
	}
	if f.srv.Count("GET", "/api/personal") != 0 {
		t.Fatal("employee must not request personnel data")
	}
	if f.srv.Count("GET", "/api/tareas/stats") != 1 || f.srv.Count("GET", "/api/almacen/stats") != 1 {
		t.Fatal("task and warehouse stats expected once")
	}
	for _, g := range msg.groups {
		if g.label == "Personal" {
			t.Fatal("personnel group should be absent")
		}
	}
	if len(msg.recent) != 1 || msg.recent[0].text != "Tarea: Revisar grúa" {
		t.Fatalf("unexpected recent activity %+v", msg.recent)
	}
}

func TestDashboardAdminLoadsPersonnel(t *testing.T) {
	f := newFixture(t)
	if _, err := f.sess.Login(context.Background(), apitest.Admin.Email, apitest.Admin.Password); err != nil {
		t.Fatal(err)
	}

	d := newDashboardModel(f.client, f.sess)
	d.loadData()()
	if f.srv.Count("GET", "/api/personal/stats") != 1 {
		t.Fatal("admin should request personnel stats")
	}
}

func TestDashboardQuickActionSwitchesView(t *testing.T) {
	f := newFixture(t)
	if _, err := f.sess.Login(context.Background(), apitest.Client.Email, apitest.Client.Password); err != nil {
		t.Fatal(err)
	}
	d := newDashboardModel(f.client, f.sess)

	acts := d.actions()
	if len(acts) != 1 || acts[0].Path != "embarques" {
		t.Fatalf("client quick actions: %+v", acts)
	}
	_, cmd := d.update(tea.KeyMsg{Type: tea.KeyEnter})
	if msg, ok := cmd().(switchViewMsg); !ok || msg.view != "embarques" {
		t.Fatal("enter should open the selected action")
	}
}

func TestActivityDateFallsBack(t *testing.T) {
	rec := api.Record{"fecha": "2024-03-10"}
	if got := activityDate(rec); got.Format("2006-01-02") != "2024-03-10" {
		t.Fatalf("unexpected date %v", got)
	}
	if !activityDate(api.Record{}).IsZero() {
		t.Fatal("missing dates should be zero")
	}
}

func TestMySpaceSkipsTasksForClients(t *testing.T) {
	f := newFixture(t)
	if _, err := f.sess.Login(context.Background(), apitest.Client.Email, apitest.Client.Password); err != nil {
		t.Fatal(err)
	}
	m := newMySpaceModel(f.client, f.sess)

	msg, ok := m.refresh()().(mySpaceDataMsg)
	if !ok || msg.err != nil {
		t.Fatalf("refresh failed: %v", msg.err)
	}
	if f.srv.Count("GET", "/api/tareas") != 0 {
		t.Fatal("clients have no tasks")
	}
	if q := f.srv.LastQuery("embarques"); q["myShipments"] != "true" {
		t.Fatalf("unexpected shipment query %v", q)
	}
}

// ============================================================
// Statistics
// ============================================================

func TestStatisticsMarksFailedResources(t *testing.T) {
	f := newFixture(t)
	if _, err := f.sess.Login(context.Background(), apitest.Admin.Email, apitest.Admin.Password); err != nil {
		t.Fatal(err)
	}
	f.srv.Fail("/api/rutas/stats", 500, "sin servicio", nil)

	s := newStatisticsModel(f.client)
	s.setSize(120, 40)
	msg := s.refresh()().(statisticsDataMsg)
	if len(msg.summaries) != len(resource.Catalog()) {
		t.Fatalf("expected one summary per resource, got %d", len(msg.summaries))
	}
	failed := 0
	for _, rs := range msg.summaries {
		if rs.failed {
			failed++
			if rs.def.Name != "rutas" {
				t.Fatalf("unexpected failure for %s", rs.def.Name)
			}
		}
	}
	if failed != 1 {
		t.Fatalf("expected 1 failure, got %d", failed)
	}

	s, cmd := s.update(msg)
	if st := statusOf(t, cmd); st.text != "1 resúmenes no disponibles" {
		t.Fatalf("unexpected status %q", st.text)
	}
	if s.view() == "" {
		t.Fatal("statistics view rendered empty")
	}
}

// ============================================================
// Login, profile, settings, export
// ============================================================

func TestLoginSubmit(t *testing.T) {
	f := newFixture(t)
	l := newLoginModel(f.sess)
	*l.email = apitest.Admin.Email
	*l.password = apitest.Admin.Password

	msg := l.submit()().(authMsg)
	if msg.err != nil {
		t.Fatal(msg.err)
	}
	if msg.sess.Role != nav.RoleAdmin {
		t.Fatalf("expected admin, got %s", msg.sess.Role)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	l := newLoginModel(f.sess)
	*l.email = apitest.Admin.Email
	*l.password = "incorrecta"

	msg := l.submit()().(authMsg)
	if msg.err == nil {
		t.Fatal("expected an error")
	}
	l, _ = l.update(msg)
	if l.errText == "" {
		t.Fatal("the error should be shown")
	}
	if *l.email != apitest.Admin.Email || *l.password != "" {
		t.Fatal("reset should keep the email and clear the password")
	}
}

func TestLoginRegister(t *testing.T) {
	f := newFixture(t)
	l := newLoginModel(f.sess)
	l, _ = l.update(tea.KeyMsg{Type: tea.KeyCtrlR})
	if !l.registering {
		t.Fatal("ctrl+r should switch to registration")
	}
	*l.name = "Nora Nueva"
	*l.email = "nora@puerto.co"
	*l.password = "secreta9"

	msg := l.submit()().(authMsg)
	if msg.err != nil {
		t.Fatal(msg.err)
	}
	if msg.sess.DisplayName != "Nora Nueva" || msg.sess.Role != nav.RoleClient {
		t.Fatalf("unexpected session %+v", msg.sess)
	}
}

func TestProfileUpdate(t *testing.T) {
	f := newFixture(t)
	if _, err := f.sess.Login(context.Background(), apitest.Admin.Email, apitest.Admin.Password); err != nil {
		t.Fatal(err)
	}
	p := newProfileModel(f.sess)
	p.formType = profileEdit
	*p.name = "Ana María Admin"
	*p.email = apitest.Admin.Email

	msg := p.save()().(profileSavedMsg)
	if msg.err != nil {
		t.Fatal(msg.err)
	}
	if sess, _ := f.sess.Current(); sess.DisplayName != "Ana María Admin" {
		t.Fatalf("name not updated: %q", sess.DisplayName)
	}
}

func TestProfilePasswordMismatchStaysLocal(t *testing.T) {
	f := newFixture(t)
	if _, err := f.sess.Login(context.Background(), apitest.Admin.Email, apitest.Admin.Password); err != nil {
		t.Fatal(err)
	}
	p := newProfileModel(f.sess)
	p.formType = profilePassword
	*p.current, *p.next, *p.confirm = apitest.Admin.Password, "nueva123", "otra123"

	msg := p.save()().(profileSavedMsg)
	if msg.err == nil {
		t.Fatal("mismatched confirmation should fail")
	}
	if f.srv.Count("PUT", "/api/auth/change-password") != 0 {
		t.Fatal("no request expected")
	}
	_, cmd := p.update(msg)
	if st := statusOf(t, cmd); !st.isError {
		t.Fatal("failure should be an error status")
	}
}

func TestSettingsSave(t *testing.T) {
	st := newTestStore(t)
	dir := t.TempDir()
	s := newSettingsModel(st, 5, dir)
	*s.pageSize, *s.exportFormat, *s.exportDir = "20", "xlsx", " "+dir+" "

	msg, ok := s.save()().(prefsSavedMsg)
	if !ok || msg.pageSize != 20 {
		t.Fatalf("unexpected message %+v", msg)
	}
	if v, _ := st.GetPreference(store.PrefExportFormat); v != "xlsx" {
		t.Fatalf("export format not saved: %q", v)
	}
	if v, _ := st.GetPreference(store.PrefExportDir); v != dir {
		t.Fatalf("export dir not trimmed: %q", v)
	}
	if st.PreferenceInt(store.PrefPageSize, 0) != 20 {
		t.Fatal("page size not saved")
	}
}

func TestFormatPrefValue(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{store.PrefExportFormat, "xlsx", export.FormatXLSX.Label()},
		{store.PrefLastView, "facturas", "Facturas"},
		{store.PrefPageSize, "10", "10"},
		{"desconocida", "x", "x"},
	}
	for _, tt := range tests {
		if got := formatPrefValue(tt.key, tt.value); got != tt.want {
			t.Fatalf("formatPrefValue(%s, %s) = %q, want %q", tt.key, tt.value, got, tt.want)
		}
	}
}

func TestExportViewWritesFileAndHistory(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed("embarques",
		map[string]any{"numeroGuia": "GU-001", "estado": "completado"},
		map[string]any{"numeroGuia": "GU-002", "estado": "pendiente"},
	)
	if _, err := f.sess.Login(context.Background(), apitest.Admin.Email, apitest.Admin.Password); err != nil {
		t.Fatal(err)
	}
	e := newExportModel(f.client, f.store, f.sess, f.dir)
	def, _ := resource.Lookup("embarques")

	done, ok := e.doExport(def, export.FormatCSV)().(exportDoneMsg)
	if !ok {
		t.Fatal("expected exportDoneMsg")
	}
	if done.rows != 2 {
		t.Fatalf("expected 2 rows, got %d", done.rows)
	}
	if _, err := os.Stat(done.path); err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	history, err := f.store.ListExports(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Resource != "embarques" || history[0].Format != "csv" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestExportViewEmptyResource(t *testing.T) {
	f := newFixture(t)
	if _, err := f.sess.Login(context.Background(), apitest.Admin.Email, apitest.Admin.Password); err != nil {
		t.Fatal(err)
	}
	e := newExportModel(f.client, f.store, f.sess, f.dir)
	def, _ := resource.Lookup("rutas")

	msg, ok := e.doExport(def, export.FormatJSON)().(statusMsg)
	if !ok || msg.text != "No hay datos para exportar" {
		t.Fatalf("unexpected message %+v", msg)
	}
	entries, _ := os.ReadDir(f.dir)
	if len(entries) != 0 {
		t.Fatal("no file should be written")
	}
}

func TestExportViewListsRoleResources(t *testing.T) {
	f := newFixture(t)
	if _, err := f.sess.Login(context.Background(), apitest.Employee.Email, apitest.Employee.Password); err != nil {
		t.Fatal(err)
	}
	e := newExportModel(f.client, f.store, f.sess, f.dir)
	for _, def := range e.resources() {
		if def.Name == "personal" {
			t.Fatal("employee should not export personnel")
		}
	}
}

func TestExportViewUsesPreferredDir(t *testing.T) {
	st := newTestStore(t)
	e := exportModel{store: st, defaultDir: "/tmp/defecto"}
	if e.dir() != "/tmp/defecto" {
		t.Fatal("default dir expected")
	}
	if err := st.SetPreference(store.PrefExportDir, "/tmp/preferida"); err != nil {
		t.Fatal(err)
	}
	if e.dir() != "/tmp/preferida" {
		t.Fatal("preferred dir expected")
	}
}

// ============================================================
// Helper functions
// ============================================================

func TestNextPageSize(t *testing.T) {
	tests := []struct{ in, want int }{
		{5, 10},
		{50, 100},
		{100, 5},
		{7, 5},
	}
	for _, tt := range tests {
		if got := nextPageSize(tt.in); got != tt.want {
			t.Fatalf("nextPageSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNextOption(t *testing.T) {
	opts := []resource.Option{{Value: "a", Label: "A"}, {Value: "b", Label: "B"}}
	tests := []struct{ in, want string }{
		{"", "a"},
		{"a", "b"},
		{"b", ""},
		{"zz", ""},
	}
	for _, tt := range tests {
		if got := nextOption(opts, tt.in); got != tt.want {
			t.Fatalf("nextOption(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateAndPad(t *testing.T) {
	if got := truncate("Embarcaciones", 6); got != "Embar…" {
		t.Fatalf("truncate: got %q", got)
	}
	if got := truncate("Rutas", 10); got != "Rutas" {
		t.Fatalf("truncate short: got %q", got)
	}
	if got := truncate("Rutas", 0); got != "" {
		t.Fatalf("truncate zero: got %q", got)
	}
	if got := pad("ab", 4); got != "ab  " {
		t.Fatalf("pad: got %q", got)
	}
}

func TestErrText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{resource.ErrForbidden, "No tiene permisos para esta acción"},
		{errors.Wrap(resource.ErrNotConfirmed, "remove"), "Eliminación cancelada"},
		{session.ErrExpired, "Sesión expirada, inicie sesión nuevamente"},
		{resource.ValidationErrors{"titulo": "obligatorio"}, "Revise los campos marcados"},
		{&api.Error{Status: 500, Message: "sin servicio"}, "sin servicio"},
		{errors.New("otro"), "otro"},
	}
	for _, tt := range tests {
		if got := errText(tt.err); got != tt.want {
			t.Fatalf("errText(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestCapitalize(t *testing.T) {
	if got := capitalize("embarcación"); got != "Embarcación" {
		t.Fatalf("got %q", got)
	}
	if capitalize("") != "" {
		t.Fatal("empty input")
	}
}

// ============================================================
// Key bindings
// ============================================================

func TestKeyMapShortHelp(t *testing.T) {
	bindings := keys.ShortHelp()
	if len(bindings) == 0 {
		t.Fatal("short help should have bindings")
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	groups := keys.FullHelp()
	if len(groups) == 0 {
		t.Fatal("full help should have groups")
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}

// ============================================================
// Styles (smoke test)
// ============================================================

func TestStylesRender(t *testing.T) {
	styles := []struct {
		name string
		fn   func() string
	}{
		{"activeTab", func() string { return activeTabStyle.Render("test") }},
		{"inactiveTab", func() string { return inactiveTabStyle.Render("test") }},
		{"panel", func() string { return panelStyle.Render("test") }},
		{"activePanel", func() string { return activePanelStyle.Render("test") }},
		{"card", func() string { return cardStyle.Render("test") }},
		{"title", func() string { return titleStyle.Render("test") }},
		{"subtitle", func() string { return subtitleStyle.Render("test") }},
		{"success", func() string { return successStyle.Render("test") }},
		{"warning", func() string { return warningStyle.Render("test") }},
		{"error", func() string { return errorStyle.Render("test") }},
		{"muted", func() string { return mutedStyle.Render("test") }},
		{"highlight", func() string { return highlightStyle.Render("test") }},
		{"header", func() string { return headerStyle.Render("test") }},
		{"footer", func() string { return footerStyle.Render("test") }},
		{"tableHeader", func() string { return tableHeaderStyle.Render("test") }},
		{"selectedItem", func() string { return selectedItemStyle.Render("test") }},
		{"normalItem", func() string { return normalItemStyle.Render("test") }},
		{"bar", func() string { return bar(50, 10, "#10B981") }},
	}

	for _, s := range styles {
		if s.fn() == "" {
			t.Fatalf("style %q rendered empty", s.name)
		}
	}
}
