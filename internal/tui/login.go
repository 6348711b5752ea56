package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/portdesk/internal/session"
)

// loginModel is shown until a session exists. ctrl+r switches between the
// login and registration forms.
type loginModel struct {
	session *session.Manager
	width   int
	height  int

	registering bool
	busy        bool
	errText     string
	form        *huh.Form

	// Form field pointers (survive value copies)
	name     *string
	email    *string
	password *string
}

func newLoginModel(s *session.Manager) loginModel {
	name, email, password := "", "", ""
	l := loginModel{
		session:  s,
		name:     &name,
		email:    &email,
		password: &password,
	}
	l.form = l.buildForm()
	return l
}

func (l *loginModel) setSize(w, h int) {
	l.width = w
	l.height = h
}

func (l loginModel) buildForm() *huh.Form {
	*l.password = ""
	fields := []huh.Field{
		huh.NewInput().Title("Email").Placeholder("usuario@dominio.com").Value(l.email),
		huh.NewInput().Title("Contraseña").EchoMode(huh.EchoModePassword).Value(l.password),
	}
	if l.registering {
		fields = append([]huh.Field{huh.NewInput().Title("Nombre completo").Value(l.name)}, fields...)
	}
	return huh.NewForm(huh.NewGroup(fields...)).WithShowHelp(true).WithShowErrors(true)
}

// reset rebuilds the form, keeping the email.
func (l loginModel) reset() (loginModel, tea.Cmd) {
	l.busy = false
	l.form = l.buildForm()
	return l, l.form.Init()
}

func (l loginModel) init() tea.Cmd {
	return l.form.Init()
}

func (l loginModel) update(msg tea.Msg) (loginModel, tea.Cmd) {
	if msg, ok := msg.(authMsg); ok {
		if msg.err != nil && !msg.restored {
			l.errText = errText(msg.err)
		}
		return l.reset()
	}
	if l.busy {
		return l, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Register) {
		l.registering = !l.registering
		l.errText = ""
		return l.reset()
	}

	form, cmd := l.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		l.form = f
	}
	if l.form.State == huh.StateCompleted {
		l.busy = true
		l.errText = ""
		return l, l.submit()
	}
	return l, cmd
}

func (l loginModel) submit() tea.Cmd {
	s := l.session
	name, email, password, registering := *l.name, *l.email, *l.password, l.registering
	return func() tea.Msg {
		var (
			sess session.Session
			err  error
		)
		if registering {
			sess, err = s.Register(context.Background(), name, email, password)
		} else {
			sess, err = s.Login(context.Background(), email, password)
		}
		return authMsg{sess: sess, err: err}
	}
}

func (l loginModel) view() string {
	title := "Iniciar sesión"
	hint := "ctrl+r: crear cuenta  ctrl+c: salir"
	if l.registering {
		title = "Crear cuenta"
		hint = "ctrl+r: ya tengo cuenta  ctrl+c: salir"
	}

	rows := []string{
		lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("portdesk"),
		subtitleStyle.Render("Gestión portuaria y logística"),
		"",
		titleStyle.Render(title),
		"",
	}
	if l.busy {
		rows = append(rows, mutedStyle.Render("Verificando..."))
	} else {
		rows = append(rows, l.form.View())
	}
	if l.errText != "" {
		rows = append(rows, "", errorStyle.Render(l.errText))
	}
	rows = append(rows, "", mutedStyle.Render(hint))

	box := activePanelStyle.Width(min(60, max(20, l.width-4))).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return lipgloss.Place(l.width, l.height, lipgloss.Center, lipgloss.Center, box)
}
