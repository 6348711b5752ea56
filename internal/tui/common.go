package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-faster/errors"

	"github.com/sadopc/portdesk/internal/api"
	"github.com/sadopc/portdesk/internal/resource"
	"github.com/sadopc/portdesk/internal/session"
)

// viewState identifies a tab by its navigation path. Resource pages use the
// resource path.
type viewState string

const (
	viewDashboard  viewState = "dashboard"
	viewMySpace    viewState = "mi-espacio"
	viewStatistics viewState = "estadisticas"
	viewExport     viewState = "exportar"
	viewProfile    viewState = "perfil"
	viewSettings   viewState = "ajustes"
)

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

// authMsg reports the outcome of a restore, login or registration.
type authMsg struct {
	sess     session.Session
	err      error
	restored bool
}

// loggedOutMsg returns the app to the login screen with reason shown.
type loggedOutMsg struct {
	reason string
}

// sessionExpiredMsg is emitted when the backend rejects the token.
type sessionExpiredMsg struct{}

type switchViewMsg struct {
	view viewState
}

// pageMsg is implemented by messages addressed to one resource page.
type pageMsg interface {
	page() string
}

type pageLoadedMsg struct {
	resource string
	err      error
}

type debounceMsg struct {
	resource string
	gen      uint64
}

type refsLoadedMsg struct {
	resource string
	err      error
}

type savedMsg struct {
	resource string
	rec      api.Record
	err      error
}

type deletedMsg struct {
	resource string
	err      error
}

func (m pageLoadedMsg) page() string { return m.resource }
func (m debounceMsg) page() string   { return m.resource }
func (m refsLoadedMsg) page() string { return m.resource }
func (m savedMsg) page() string      { return m.resource }
func (m deletedMsg) page() string    { return m.resource }

type exportDoneMsg struct {
	path string
	rows int
}

type prefsSavedMsg struct {
	pageSize int
}

// --- Helpers ---

// errText is the user-facing text for err.
func errText(err error) string {
	var verrs resource.ValidationErrors
	switch {
	case err == nil:
		return ""
	case errors.Is(err, resource.ErrForbidden):
		return "No tiene permisos para esta acción"
	case errors.Is(err, resource.ErrNotConfirmed):
		return "Eliminación cancelada"
	case errors.Is(err, session.ErrNotAuthenticated), errors.Is(err, session.ErrExpired):
		return "Sesión expirada, inicie sesión nuevamente"
	case errors.As(err, &verrs):
		return "Revise los campos marcados"
	}
	if _, ok := api.AsError(err); ok {
		return api.Message(err)
	}
	return err.Error()
}

// statusCmd wraps a status update in a command.
func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: isError} }
}

// truncate cuts s to w cells, marking the cut with an ellipsis.
func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= w {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > w {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

// pad left-aligns s in a cell of width w.
func pad(s string, w int) string {
	s = truncate(s, w)
	if n := w - lipgloss.Width(s); n > 0 {
		s += strings.Repeat(" ", n)
	}
	return s
}

// bar draws a horizontal bar of pct percent of width w.
func bar(pct, w int, color string) string {
	if w <= 0 {
		return ""
	}
	filled := min(w, max(0, pct*w/100))
	return colored(color, strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", w-filled))
}
