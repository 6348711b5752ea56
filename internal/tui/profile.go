package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/portdesk/internal/session"
)

type profileForm int

const (
	profileNone profileForm = iota
	profileEdit
	profilePassword
)

// profileModel shows the current user and edits the profile or password.
type profileModel struct {
	session *session.Manager
	width   int
	height  int

	formActive bool
	formType   profileForm
	form       *huh.Form

	// Form values as pointers (survive value copies)
	name    *string
	email   *string
	phone   *string
	current *string
	next    *string
	confirm *string
}

func newProfileModel(s *session.Manager) profileModel {
	name, email, phone := "", "", ""
	cur, next, confirm := "", "", ""
	return profileModel{
		session: s,
		name:    &name,
		email:   &email,
		phone:   &phone,
		current: &cur,
		next:    &next,
		confirm: &confirm,
	}
}

func (p *profileModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

type profileSavedMsg struct {
	text string
	err  error
}

func (p profileModel) update(msg tea.Msg) (profileModel, tea.Cmd) {
	if msg, ok := msg.(profileSavedMsg); ok {
		if msg.err != nil {
			return p, statusCmd(errText(msg.err), true)
		}
		return p, statusCmd(msg.text, false)
	}
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Edit), key.Matches(msg, keys.Enter):
			return p.showProfileForm()
		case key.Matches(msg, keys.Password):
			return p.showPasswordForm()
		}
	}
	return p, nil
}

func (p profileModel) showProfileForm() (profileModel, tea.Cmd) {
	sess, _ := p.session.Current()
	*p.name = sess.DisplayName
	*p.email = sess.Email
	p.formType = profileEdit

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Nombre").Value(p.name),
			huh.NewInput().Title("Email").Value(p.email),
			huh.NewInput().Title("Teléfono").Value(p.phone),
		).Title("Editar perfil"),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p profileModel) showPasswordForm() (profileModel, tea.Cmd) {
	*p.current, *p.next, *p.confirm = "", "", ""
	p.formType = profilePassword

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Contraseña actual").EchoMode(huh.EchoModePassword).Value(p.current),
			huh.NewInput().Title("Nueva contraseña").EchoMode(huh.EchoModePassword).Value(p.next),
			huh.NewInput().Title("Confirmar contraseña").EchoMode(huh.EchoModePassword).Value(p.confirm),
		).Title("Cambiar contraseña"),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p profileModel) updateForm(msg tea.Msg) (profileModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State == huh.StateCompleted {
		p.formActive = false
		return p, p.save()
	}
	return p, cmd
}

func (p profileModel) save() tea.Cmd {
	s := p.session
	switch p.formType {
	case profileEdit:
		name, email, phone := *p.name, *p.email, *p.phone
		return func() tea.Msg {
			_, err := s.UpdateProfile(context.Background(), name, email, phone)
			return profileSavedMsg{text: "Perfil actualizado", err: err}
		}
	case profilePassword:
		cur, next, confirm := *p.current, *p.next, *p.confirm
		return func() tea.Msg {
			err := s.ChangePassword(context.Background(), cur, next, confirm)
			return profileSavedMsg{text: "Contraseña actualizada", err: err}
		}
	}
	return nil
}

func (p profileModel) view() string {
	w := p.width - 4

	if p.formActive && p.form != nil {
		return activePanelStyle.Width(w).Render(p.form.View())
	}

	sess, _ := p.session.Current()
	field := func(label, value string) string {
		return fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(16).Render(label), highlightStyle.Render(value))
	}
	rows := []string{
		titleStyle.Render("Perfil"),
		"",
		field("Nombre", sess.DisplayName),
		field("Email", sess.Email),
		field("Rol", sess.Role.Label()),
		field("Sesión hasta", sess.ExpiresAt.Local().Format("02/01/2006 15:04")),
		"",
		mutedStyle.Render("  e: editar perfil  p: cambiar contraseña"),
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
