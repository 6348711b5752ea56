package resource

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sadopc/portdesk/internal/api"
	"github.com/sadopc/portdesk/internal/api/apitest"
	"github.com/sadopc/portdesk/internal/nav"
)

type fixedRole nav.Role

func (r fixedRole) Role() nav.Role { return nav.Role(r) }

const (
	admin    = fixedRole(nav.RoleAdmin)
	employee = fixedRole(nav.RoleEmployee)
)

// ============================================================
// Stub backend
// ============================================================

// stubBackend records calls and serves canned replies.
type stubBackend struct {
	mu    sync.Mutex
	calls []string

	list     func(ctx context.Context, resource string, p api.Params) (api.Page, error)
	stats    map[string]any
	statsErr error
}

func (b *stubBackend) note(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

func (b *stubBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *stubBackend) List(ctx context.Context, resource string, p api.Params) (api.Page, error) {
	b.note("list " + resource)
	if b.list != nil {
		return b.list(ctx, resource, p)
	}
	return api.Page{Items: []api.Record{}}, nil
}

func (b *stubBackend) Create(_ context.Context, resource string, rec api.Record) (api.Record, error) {
	b.note("create " + resource)
	return rec, nil
}

func (b *stubBackend) Update(_ context.Context, resource, _ string, rec api.Record) (api.Record, error) {
	b.note("update " + resource)
	return rec, nil
}

func (b *stubBackend) Delete(_ context.Context, resource, _ string) error {
	b.note("delete " + resource)
	return nil
}

func (b *stubBackend) Stats(_ context.Context, resource, _ string) (map[string]any, error) {
	b.note("stats " + resource)
	return b.stats, b.statsErr
}

// ============================================================
// Against the stub
// ============================================================

func TestStaleListResponseDropped(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	started := make(chan struct{})
	release := make(chan struct{})
	var n int
	var mu sync.Mutex
	b := &stubBackend{list: func(_ context.Context, _ string, p api.Params) (api.Page, error) {
		mu.Lock()
		n++
		first := n == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
			return api.Page{Items: []api.Record{{"_id": "old"}}, Total: 1}, nil
		}
		return api.Page{Items: []api.Record{{"_id": "new"}}, Total: 1}, nil
	}}
	c := NewController(mustLookup(t, "tareas"), b, admin)

	errc := make(chan error, 1)
	go func() {
		_, err := c.LoadList(context.Background())
		errc <- err
	}()
	<-started

	page, err := c.LoadList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", page.Items[0].ID())

	close(release)
	assert.ErrorIs(t, <-errc, ErrStale)

	v := c.Snapshot()
	require.Len(t, v.Items, 1)
	assert.Equal(t, "new", v.Items[0].ID())
	assert.False(t, v.Loading)
}

func TestListFailureEmptiesItems(t *testing.T) {
	fail := false
	b := &stubBackend{list: func(context.Context, string, api.Params) (api.Page, error) {
		if fail {
			return api.Page{}, errors.New("boom")
		}
		return api.Page{Items: []api.Record{{"_id": "1"}}, Total: 1}, nil
	}}
	c := NewController(mustLookup(t, "rutas"), b, admin)
	_, err := c.LoadList(context.Background())
	require.NoError(t, err)
	require.Len(t, c.Snapshot().Items, 1)

	fail = true
	_, err = c.LoadList(context.Background())
	require.Error(t, err)
	v := c.Snapshot()
	assert.Empty(t, v.Items)
	assert.Zero(t, v.Page.Total)
	assert.Error(t, v.ListErr)
}

func TestQueryChangesBumpGeneration(t *testing.T) {
	c := NewController(mustLookup(t, "tareas"), &stubBackend{}, admin, WithPageSize(10))
	assert.Equal(t, 10, c.Query().Limit)

	g1 := c.SetPage(3)
	assert.Equal(t, 3, c.Query().Page)
	g2 := c.SetFilter("estado", "pendiente")
	assert.Equal(t, 1, c.Query().Page)
	assert.False(t, c.Settled(g1))
	assert.True(t, c.Settled(g2))

	c.SetPage(4)
	g3, err := c.SetLimit(25)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Query().Page)
	assert.Equal(t, 25, c.Query().Limit)
	assert.True(t, c.Settled(g3))

	_, err = c.SetLimit(7)
	assert.Error(t, err)
	assert.True(t, c.Settled(g3))
	assert.Equal(t, 25, c.Query().Limit)

	g4 := c.Touch()
	assert.False(t, c.Settled(g3))
	assert.True(t, c.Settled(g4))
}

func TestCancelMakesNoCall(t *testing.T) {
	b := &stubBackend{}
	c := NewController(mustLookup(t, "almacen"), b, admin)

	_, err := c.BeginEdit(api.Record{"_id": "w1", "nombre": "Bodega", "capacidad": 10.0, "estado": "operativo"})
	require.NoError(t, err)
	v := c.Snapshot()
	assert.Equal(t, ModeEdit, v.Mode)
	assert.Equal(t, "w1", v.EditingID)
	assert.Equal(t, "Bodega", v.Form["nombre"])

	c.Cancel()
	v = c.Snapshot()
	assert.Equal(t, ModeClosed, v.Mode)
	assert.Nil(t, v.Form)
	assert.Empty(t, b.Calls())
}

func TestLocalValidationSkipsBackend(t *testing.T) {
	b := &stubBackend{}
	c := NewController(mustLookup(t, "almacen"), b, admin)
	_, err := c.BeginCreate()
	require.NoError(t, err)

	form := validWarehouse()
	form["capacidad"] = "-5"
	_, err = c.Submit(context.Background(), form)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "La capacidad debe ser ≥ 1", verrs["capacidad"])
	assert.Empty(t, b.Calls())

	v := c.Snapshot()
	assert.Equal(t, ModeCreate, v.Mode)
	assert.Equal(t, "-5", v.Form["capacidad"])
	assert.Equal(t, "La capacidad debe ser ≥ 1", v.FieldErrors["capacidad"])
}

func TestMutationsNeedAdmin(t *testing.T) {
	b := &stubBackend{}
	c := NewController(mustLookup(t, "embarques"), b, employee)

	_, err := c.BeginCreate()
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = c.BeginEdit(api.Record{"_id": "x"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = c.Submit(context.Background(), shipmentForm())
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, c.Remove(context.Background(), "x", true), ErrForbidden)
	assert.Empty(t, b.Calls())
}

func TestRemoveNeedsConfirmation(t *testing.T) {
	b := &stubBackend{}
	c := NewController(mustLookup(t, "facturas"), b, admin)
	assert.ErrorIs(t, c.Remove(context.Background(), "f1", false), ErrNotConfirmed)
	assert.Empty(t, b.Calls())

	require.NoError(t, c.Remove(context.Background(), "f1", true))
	calls := b.Calls()
	assert.Equal(t, "delete facturas", calls[0])
	assert.Contains(t, calls, "stats facturas")
	assert.Len(t, calls, 4) // delete, list, stats, side
}

func TestStatsFailureKeepsPreviousSummary(t *testing.T) {
	b := &stubBackend{stats: map[string]any{"total": 4.0, "pagadas": 1.0}}
	c := NewController(mustLookup(t, "facturas"), b, admin)
	require.NoError(t, c.LoadStats(context.Background()))
	assert.Equal(t, 4, c.Snapshot().Stats.Total)

	b.statsErr = errors.New("down")
	assert.Error(t, c.LoadStats(context.Background()))
	v := c.Snapshot()
	assert.True(t, v.HasStats)
	assert.Equal(t, 4, v.Stats.Total)
	assert.Equal(t, 25, v.Stats.Distribution[0].Percent)
}

func TestRefreshReturnsOnlyListErrors(t *testing.T) {
	b := &stubBackend{statsErr: errors.New("stats down")}
	c := NewController(mustLookup(t, "tareas"), b, admin)
	assert.NoError(t, c.Refresh(context.Background()))

	b.list = func(context.Context, string, api.Params) (api.Page, error) {
		return api.Page{}, errors.New("list down")
	}
	assert.Error(t, c.Refresh(context.Background()))
}

// ============================================================
// Against the test backend
// ============================================================

func newPage(t *testing.T, name string, role fixedRole) (*Controller, *apitest.Server) {
	t.Helper()
	srv := apitest.New(t)
	client := api.New(srv.URL, api.WithToken(srv.Token(apitest.Admin)), api.WithTimeout(5*time.Second))
	return NewController(mustLookup(t, name), client, role), srv
}

func TestSubmitCreatesAndRefreshes(t *testing.T) {
	c, srv := newPage(t, "almacen", admin)
	srv.SetStats("almacen", map[string]any{"total": 1.0, "operativos": 1.0})

	_, err := c.BeginCreate()
	require.NoError(t, err)
	out, err := c.Submit(context.Background(), validWarehouse())
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID())

	recs := srv.Records("almacen")
	require.Len(t, recs, 1)
	assert.Equal(t, 1200.0, recs[0]["capacidad"])

	assert.Equal(t, 1, srv.Count("POST", "/api/almacen"))
	assert.Equal(t, 2, srv.Count("GET", "/api/almacen")-srv.Count("GET", "/api/almacen/stats"))
	assert.Equal(t, 1, srv.Count("GET", "/api/almacen/stats/summary"))

	v := c.Snapshot()
	assert.Equal(t, ModeClosed, v.Mode)
	assert.Len(t, v.Items, 1)
	assert.Equal(t, 1, v.Page.Total)
	assert.Equal(t, 100, v.Stats.Distribution[0].Percent)
	assert.Len(t, v.Side, 1)
}

func TestSubmitUpdatesInEditMode(t *testing.T) {
	c, srv := newPage(t, "almacen", admin)
	srv.Seed("almacen", map[string]any{"_id": "w1", "nombre": "Vieja", "ubicacion": "Perú", "capacidad": 10.0, "estado": "operativo"})

	page, err := c.LoadList(context.Background())
	require.NoError(t, err)
	form, err := c.BeginEdit(page.Items[0])
	require.NoError(t, err)
	form["nombre"] = "Nueva"
	_, err = c.Submit(context.Background(), form)
	require.NoError(t, err)

	assert.Equal(t, 1, srv.Count("PUT", "/api/almacen/w1"))
	assert.Equal(t, "Nueva", srv.Records("almacen")[0]["nombre"])
}

func TestServerFieldErrorsKept(t *testing.T) {
	c, srv := newPage(t, "personal", admin)
	srv.Fail("/api/personal", 400, "Datos inválidos", map[string]string{"email": "El email ya está registrado"})

	_, err := c.BeginCreate()
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), map[string]string{
		"nombre": "Laura Gómez", "email": "laura@puerto.co", "tipoDocumento": "Cédula de Ciudadanía",
		"numeroDocumento": "1020304050", "puesto": "Conductor", "departamento": "Transporte",
		"estado": "activo", "rol": "user",
	})
	require.Error(t, err)
	v := c.Snapshot()
	assert.Equal(t, ModeCreate, v.Mode)
	assert.Equal(t, "El email ya está registrado", v.FieldErrors["email"])
}

func TestListSendsQuery(t *testing.T) {
	c, srv := newPage(t, "embarques", admin)
	srv.Seed("embarques",
		map[string]any{"numeroGuia": "G-1", "estado": "pendiente"},
		map[string]any{"numeroGuia": "G-2", "estado": "completado"},
	)
	c.SetFilter("estado", "pendiente")
	c.SetSearch("G-")
	_, err := c.LoadList(context.Background())
	require.NoError(t, err)

	q := srv.LastQuery("embarques")
	assert.Equal(t, "G-", q["search"])
	assert.NotContains(t, q, "q")
	assert.Equal(t, "pendiente", q["estado"])
	assert.Equal(t, "1", q["page"])
	assert.Equal(t, "5", q["limit"])

	c.ClearFilters()
	_, err = c.LoadList(context.Background())
	require.NoError(t, err)
	v := c.Snapshot()
	require.Len(t, v.Items, 2)
	assert.Equal(t, "entregado", v.Items[1]["estado"])
}

func TestPageClampedAfterShrink(t *testing.T) {
	c, srv := newPage(t, "rutas", admin)
	for i := 0; i < 6; i++ {
		srv.Seed("rutas", map[string]any{"nombre": "R"})
	}
	_, err := c.LoadList(context.Background())
	require.NoError(t, err)
	c.SetPage(2)
	_, err = c.LoadList(context.Background())
	require.NoError(t, err)
	require.Len(t, c.Snapshot().Items, 1)

	id := c.Snapshot().Items[0].ID()
	require.NoError(t, c.Remove(context.Background(), id, true))

	v := c.Snapshot()
	assert.Equal(t, 1, v.Page.Current)
	assert.Equal(t, 5, v.Page.Total)
	assert.Len(t, v.Items, 5)
}

func TestLoadRefs(t *testing.T) {
	c, srv := newPage(t, "embarques", admin)
	srv.Seed("embarcaciones", map[string]any{"_id": "v1", "nombre": "Santa Marta"})
	srv.Seed("rutas", map[string]any{"_id": "r1", "nombre": "Caribe"})

	require.NoError(t, c.LoadRefs(context.Background()))
	f, _ := c.Definition().Schema.Field("embarcacionId")
	assert.Equal(t, []Option{{Value: "v1", Label: "Santa Marta"}}, c.Options(f))
	assert.Empty(t, c.Snapshot().Refs["almacenId"])

	state, _ := c.Definition().Schema.Field("estado")
	assert.Equal(t, ShipmentStates, c.Options(state))
}

func TestListErrorFromBackend(t *testing.T) {
	c, srv := newPage(t, "tareas", admin)
	srv.Fail("/api/tareas", 500, "", nil)
	_, err := c.LoadList(context.Background())
	require.Error(t, err)
	assert.NotEmpty(t, api.Message(err))
	assert.Empty(t, c.Snapshot().Items)
}
