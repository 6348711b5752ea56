package resource

import (
	"context"
	"maps"
	"strconv"
	"sync"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/portdesk/internal/api"
	"github.com/sadopc/portdesk/internal/nav"
	"github.com/sadopc/portdesk/internal/pagination"
	"github.com/sadopc/portdesk/internal/stats"
)

var (
	// ErrStale is returned by LoadList when a newer request was issued
	// while this one was in flight. The response is dropped.
	ErrStale        = errors.New("stale response")
	ErrForbidden    = errors.New("action not allowed for this role")
	ErrNotConfirmed = errors.New("deletion not confirmed")
)

// refLimit bounds the option lists fetched for reference fields.
const refLimit = 100

// Backend is the subset of the API client a page needs.
type Backend interface {
	List(ctx context.Context, resource string, params api.Params) (api.Page, error)
	Create(ctx context.Context, resource string, rec api.Record) (api.Record, error)
	Update(ctx context.Context, resource, id string, rec api.Record) (api.Record, error)
	Delete(ctx context.Context, resource, id string) error
	Stats(ctx context.Context, resource, name string) (map[string]any, error)
}

// RoleSource reports the role of the current session.
type RoleSource interface {
	Role() nav.Role
}

type Mode int

const (
	ModeClosed Mode = iota
	ModeCreate
	ModeEdit
)

// View is a consistent copy of a page's state.
type View struct {
	Items       []api.Record
	Page        pagination.State
	Query       pagination.Query
	Loading     bool
	ListErr     error
	Stats       stats.Summary
	HasStats    bool
	Side        []api.Record
	Mode        Mode
	EditingID   string
	Form        map[string]string
	FieldErrors map[string]string
	Refs        map[string][]Option
}

// Controller owns the query, list, stats, side widget and form state of one
// resource page. It is safe for concurrent use; backend calls are made
// without holding the lock.
type Controller struct {
	def     Definition
	backend Backend
	roles   RoleSource
	logger  logrus.FieldLogger

	mu        sync.Mutex
	query     pagination.Query
	gen       uint64
	seq       uint64
	statsSeq  uint64
	sideSeq   uint64
	items     []api.Record
	total     int
	loading   bool
	listErr   error
	summary   stats.Summary
	hasStats  bool
	side      []api.Record
	refs      map[string][]Option
	mode      Mode
	editing   string
	form      map[string]string
	fieldErrs map[string]string
}

type ControllerOption func(*Controller)

func WithLogger(l logrus.FieldLogger) ControllerOption { return func(c *Controller) { c.logger = l } }

// WithPageSize sets the initial items per page. Invalid sizes are ignored.
func WithPageSize(n int) ControllerOption {
	return func(c *Controller) {
		if pagination.ValidLimit(n) {
			c.query.Limit = n
		}
	}
}

func NewController(def Definition, b Backend, roles RoleSource, opts ...ControllerOption) *Controller {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	c := &Controller{
		def:     def,
		backend: b,
		roles:   roles,
		logger:  l,
		query:   pagination.NewQuery(pagination.PageSizes[0]),
		items:   []api.Record{},
		refs:    map[string][]Option{},
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.WithField("resource", def.Name)
	return c
}

func (c *Controller) Definition() Definition { return c.def }

// ============================================================
// Query
// ============================================================

// The query mutators return the new debounce generation. Only a timer
// carrying the latest generation should trigger LoadList.

func (c *Controller) SetFilter(key, value string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.SetFilter(key, value)
	c.gen++
	return c.gen
}

func (c *Controller) SetSearch(q string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.SetSearch(q)
	c.gen++
	return c.gen
}

func (c *Controller) SetPage(n int) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tp := pagination.TotalPages(c.total, c.query.Limit); tp > 0 && n > tp {
		n = tp
	}
	c.query.SetPage(n)
	c.gen++
	return c.gen
}

func (c *Controller) SetLimit(n int) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.query.SetLimit(n); err != nil {
		return c.gen, err
	}
	c.gen++
	return c.gen, nil
}

func (c *Controller) ClearFilters() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.ClearFilters()
	c.gen++
	return c.gen
}

// Touch bumps the generation without changing the query.
func (c *Controller) Touch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.gen
}

// Settled reports whether gen is still the latest generation.
func (c *Controller) Settled(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

func (c *Controller) Query() pagination.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query.Clone()
}

func (c *Controller) params(q pagination.Query) api.Params {
	p := api.Params(q.Params())
	if c.def.SearchParam != "" && c.def.SearchParam != "q" {
		if v, ok := p["q"]; ok {
			delete(p, "q")
			p[c.def.SearchParam] = v
		}
	}
	return p
}

// ============================================================
// Loading
// ============================================================

// LoadList fetches the current page. A response that arrives after a newer
// request was issued is dropped and reported as ErrStale. On failure the
// list is emptied. When the page lies past the last page (after a delete,
// say) the query moves to the last page and the list is fetched again.
func (c *Controller) LoadList(ctx context.Context) (api.Page, error) {
	page, err := c.loadList(ctx)
	if err != nil {
		return page, err
	}

	c.mu.Lock()
	tp := pagination.TotalPages(page.Total, c.query.Limit)
	clamp := tp > 0 && c.query.Page > tp
	if clamp {
		c.query.SetPage(tp)
	}
	c.mu.Unlock()
	if clamp {
		return c.loadList(ctx)
	}
	return page, nil
}

func (c *Controller) loadList(ctx context.Context) (api.Page, error) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	q := c.query.Clone()
	c.loading = true
	c.mu.Unlock()

	page, err := c.backend.List(ctx, c.def.Path, c.params(q))

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return api.Page{}, ErrStale
	}
	c.loading = false
	if err != nil {
		c.items = []api.Record{}
		c.total = 0
		c.listErr = err
		c.logger.WithError(err).Warn("list failed")
		return api.Page{}, err
	}
	for _, rec := range page.Items {
		c.def.Schema.Normalize(rec)
	}
	if page.Items == nil {
		page.Items = []api.Record{}
	}
	c.items = page.Items
	c.total = page.Total
	c.listErr = nil
	return page, nil
}

// LoadStats fetches the resource's aggregate counts. Failures are logged and
// leave the previous summary in place.
func (c *Controller) LoadStats(ctx context.Context) error {
	if c.def.Stats.Endpoint == "" {
		return nil
	}
	c.mu.Lock()
	c.statsSeq++
	seq := c.statsSeq
	c.mu.Unlock()

	raw, err := c.backend.Stats(ctx, c.def.Path, c.def.Stats.Endpoint)
	if err != nil {
		c.logger.WithError(err).Warn("stats failed")
		return err
	}
	sum := stats.Derive(c.def.Stats, raw)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq == c.statsSeq {
		c.summary = sum
		c.hasStats = true
	}
	return nil
}

// LoadSide fetches the side widget list. Failures are logged only.
func (c *Controller) LoadSide(ctx context.Context) error {
	if c.def.Side.Params == nil {
		return nil
	}
	c.mu.Lock()
	c.sideSeq++
	seq := c.sideSeq
	c.mu.Unlock()

	page, err := c.backend.List(ctx, c.def.Path, api.Params(maps.Clone(c.def.Side.Params)))
	if err != nil {
		c.logger.WithError(err).Warn("side widget failed")
		return err
	}
	for _, rec := range page.Items {
		c.def.Schema.Normalize(rec)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq == c.sideSeq {
		c.side = page.Items
	}
	return nil
}

// Refresh reloads the list, the stats and the side widget in parallel. Only
// a list failure is returned; the others are secondary.
func (c *Controller) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := c.LoadList(ctx)
		if errors.Is(err, ErrStale) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		_ = c.LoadStats(ctx)
		return nil
	})
	g.Go(func() error {
		_ = c.LoadSide(ctx)
		return nil
	})
	return g.Wait()
}

// LoadRefs fills the options of reference fields from their resources.
func (c *Controller) LoadRefs(ctx context.Context) error {
	fields := c.def.RefFields()
	if len(fields) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, f := range fields {
		g.Go(func() error {
			page, err := c.backend.List(ctx, f.RefResource, api.Params{"page": "1", "limit": strconv.Itoa(refLimit)})
			if err != nil {
				return errors.Wrapf(err, "load %s options", f.RefResource)
			}
			options := make([]Option, 0, len(page.Items))
			for _, rec := range page.Items {
				label := rec.String(f.RefLabel)
				if label == "" {
					label = rec.ID()
				}
				options = append(options, Option{Value: rec.ID(), Label: label})
			}
			c.mu.Lock()
			c.refs[f.Key] = options
			c.mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		c.logger.WithError(err).Warn("reference options failed")
	}
	return err
}

// Options returns the choices of a select or reference field.
func (c *Controller) Options(f Field) []Option {
	if f.Kind != KindRef {
		return f.Options
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs[f.Key]
}

// ============================================================
// Form
// ============================================================

// BeginCreate opens an empty form.
func (c *Controller) BeginCreate() (map[string]string, error) {
	if !nav.CanMutate(c.roles.Role()) {
		return nil, ErrForbidden
	}
	form := c.def.Schema.Defaults()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeCreate
	c.editing = ""
	c.form = maps.Clone(form)
	c.fieldErrs = nil
	return form, nil
}

// BeginEdit opens the form filled with rec.
func (c *Controller) BeginEdit(rec api.Record) (map[string]string, error) {
	if !nav.CanMutate(c.roles.Role()) {
		return nil, ErrForbidden
	}
	form := c.def.Schema.FormValues(rec)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeEdit
	c.editing = rec.ID()
	c.form = maps.Clone(form)
	c.fieldErrs = nil
	return form, nil
}

// Cancel closes the form. Nothing is sent and the list and stats are kept.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeForm()
}

func (c *Controller) closeForm() {
	c.mode = ModeClosed
	c.editing = ""
	c.form = nil
	c.fieldErrs = nil
}

// Submit validates form and creates or updates the record depending on the
// open mode. Local failures return ValidationErrors without a request;
// server field errors are kept for display. On success the form closes and
// the page is refreshed.
func (c *Controller) Submit(ctx context.Context, form map[string]string) (api.Record, error) {
	if !nav.CanMutate(c.roles.Role()) {
		return nil, ErrForbidden
	}
	rec, verrs := c.def.Schema.Validate(form)

	c.mu.Lock()
	mode, id := c.mode, c.editing
	c.form = maps.Clone(form)
	if len(verrs) > 0 {
		c.fieldErrs = verrs
		c.mu.Unlock()
		return nil, verrs
	}
	c.fieldErrs = nil
	c.mu.Unlock()

	var (
		out api.Record
		err error
	)
	if mode == ModeEdit && id != "" {
		out, err = c.backend.Update(ctx, c.def.Path, id, rec)
	} else {
		out, err = c.backend.Create(ctx, c.def.Path, rec)
	}
	if err != nil {
		c.mu.Lock()
		c.fieldErrs = api.FieldErrors(err)
		c.mu.Unlock()
		c.logger.WithError(err).Warn("save failed")
		return nil, err
	}

	c.mu.Lock()
	c.closeForm()
	c.mu.Unlock()
	c.logger.WithField("id", out.ID()).Info("saved")

	if err := c.Refresh(ctx); err != nil {
		c.logger.WithError(err).Warn("refresh after save")
	}
	return out, nil
}

// Remove deletes id once confirmed, then refreshes the page.
func (c *Controller) Remove(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if !nav.CanMutate(c.roles.Role()) {
		return ErrForbidden
	}
	if err := c.backend.Delete(ctx, c.def.Path, id); err != nil {
		c.logger.WithError(err).Warn("delete failed")
		return err
	}
	c.logger.WithField("id", id).Info("deleted")
	if err := c.Refresh(ctx); err != nil {
		c.logger.WithError(err).Warn("refresh after delete")
	}
	return nil
}

// Snapshot copies the current state.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	refs := make(map[string][]Option, len(c.refs))
	for k, v := range c.refs {
		refs[k] = append([]Option(nil), v...)
	}
	return View{
		Items:       append([]api.Record(nil), c.items...),
		Page:        pagination.State{Current: c.query.Page, Limit: c.query.Limit, Total: c.total},
		Query:       c.query.Clone(),
		Loading:     c.loading,
		ListErr:     c.listErr,
		Stats:       c.summary,
		HasStats:    c.hasStats,
		Side:        append([]api.Record(nil), c.side...),
		Mode:        c.mode,
		EditingID:   c.editing,
		Form:        maps.Clone(c.form),
		FieldErrors: maps.Clone(c.fieldErrs),
		Refs:        refs,
	}
}
