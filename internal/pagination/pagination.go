// Package pagination holds list query state and the page-window arithmetic
// shared by every resource list.
package pagination

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/go-faster/errors"
)

// WindowSize is the number of page buttons shown at once.
const WindowSize = 5

// PageSizes are the allowed items-per-page values.
var PageSizes = []int{5, 10, 15, 20, 25, 50, 100}

var ErrPageSize = errors.New("unsupported page size")

// ValidLimit reports whether n is one of PageSizes.
func ValidLimit(n int) bool {
	return slices.Contains(PageSizes, n)
}

// Query is the list query of one resource page. Any change to the filters or
// the limit puts the query back on page 1.
type Query struct {
	Page    int
	Limit   int
	Search  string
	Sort    string
	Filters map[string]string
}

func NewQuery(limit int) Query {
	if !ValidLimit(limit) {
		limit = PageSizes[0]
	}
	return Query{Page: 1, Limit: limit, Filters: map[string]string{}}
}

// SetPage moves to page n; values below 1 clamp to 1.
func (q *Query) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	q.Page = n
}

func (q *Query) SetLimit(n int) error {
	if !ValidLimit(n) {
		return errors.Wrapf(ErrPageSize, "%d", n)
	}
	q.Limit = n
	q.Page = 1
	return nil
}

// SetFilter sets (or clears, for an empty value) a filter.
func (q *Query) SetFilter(key, value string) {
	if q.Filters == nil {
		q.Filters = map[string]string{}
	}
	if value == "" {
		delete(q.Filters, key)
	} else {
		q.Filters[key] = value
	}
	q.Page = 1
}

func (q *Query) SetSearch(s string) {
	q.Search = s
	q.Page = 1
}

// ClearFilters drops the search text and every filter.
func (q *Query) ClearFilters() {
	q.Search = ""
	q.Filters = map[string]string{}
	q.Page = 1
}

// Clone returns a deep copy safe to hand to another goroutine.
func (q Query) Clone() Query {
	q.Filters = maps.Clone(q.Filters)
	if q.Filters == nil {
		q.Filters = map[string]string{}
	}
	return q
}

// Params renders the query as wire parameters. Empty values are omitted.
func (q Query) Params() map[string]string {
	p := map[string]string{
		"page":  strconv.Itoa(q.Page),
		"limit": strconv.Itoa(q.Limit),
	}
	if q.Search != "" {
		p["q"] = q.Search
	}
	if q.Sort != "" {
		p["sort"] = q.Sort
	}
	for k, v := range q.Filters {
		if v != "" {
			p[k] = v
		}
	}
	return p
}

// TotalPages is ceil(total/limit), 0 when there is nothing to show.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Window returns the first and last page button around current.
// For totalPages < 1 it returns (0, 0).
func Window(current, totalPages int) (start, end int) {
	if totalPages < 1 {
		return 0, 0
	}
	current = min(max(current, 1), totalPages)
	start = max(1, current-WindowSize/2)
	end = min(totalPages, start+WindowSize-1)
	if end-start+1 < WindowSize {
		start = max(1, end-WindowSize+1)
	}
	return start, end
}

// Pages lists the page numbers of the window.
func Pages(current, totalPages int) []int {
	start, end := Window(current, totalPages)
	if start == 0 {
		return nil
	}
	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages
}

// State describes a loaded page for rendering.
type State struct {
	Current int
	Limit   int
	Total   int
}

func (s State) TotalPages() int { return TotalPages(s.Total, s.Limit) }

// Visible is false when there is nothing to paginate.
func (s State) Visible() bool { return s.Total > 0 }

// Navigable reports whether navigation controls are shown at all.
func (s State) Navigable() bool { return s.TotalPages() > 1 }

// HasFirst and HasLast gate the jump controls; they are off on the page
// they would jump to.
func (s State) HasFirst() bool { return s.Current > 1 }

func (s State) HasLast() bool { return s.Current < s.TotalPages() }

func (s State) HasPrev() bool { return s.Current > 1 }

func (s State) HasNext() bool { return s.Current < s.TotalPages() }

// Last is the page the last-page control jumps to.
func (s State) Last() int { return max(s.TotalPages(), 1) }

func (s State) Pages() []int { return Pages(s.Current, s.TotalPages()) }

// Bounds returns the 1-based indices of the first and last visible record.
func (s State) Bounds() (from, to int) {
	if s.Total == 0 {
		return 0, 0
	}
	from = (s.Current-1)*s.Limit + 1
	to = min(s.Current*s.Limit, s.Total)
	return from, to
}

func (s State) Range() string {
	from, to := s.Bounds()
	return fmt.Sprintf("Mostrando %d - %d de %d registros", from, to, s.Total)
}
