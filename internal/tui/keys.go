package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	New        key.Binding
	Edit       key.Binding
	Delete     key.Binding
	Search     key.Binding
	Filter     key.Binding
	NextFilter key.Binding
	Clear      key.Binding
	PageSize   key.Binding
	PrevPage   key.Binding
	NextPage   key.Binding
	FirstPage  key.Binding
	LastPage   key.Binding
	Refresh    key.Binding
	Password   key.Binding
	Register   key.Binding
	Views      key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Help       key.Binding
	Enter      key.Binding
	Back       key.Binding
	Up         key.Binding
	Down       key.Binding
	Left       key.Binding
	Right      key.Binding
	Logout     key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "nuevo"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "editar"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "eliminar"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "buscar"),
	),
	Filter: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "filtro"),
	),
	NextFilter: key.NewBinding(
		key.WithKeys("F"),
		key.WithHelp("F", "otro filtro"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "limpiar"),
	),
	PageSize: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "por página"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("[", "left", "h"),
		key.WithHelp("←/[", "anterior"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("]", "right", "l"),
		key.WithHelp("→/]", "siguiente"),
	),
	FirstPage: key.NewBinding(
		key.WithKeys("home", "<"),
		key.WithHelp("home/<", "primera"),
	),
	LastPage: key.NewBinding(
		key.WithKeys("end", ">"),
		key.WithHelp("end/>", "última"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "recargar"),
	),
	Password: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "contraseña"),
	),
	Register: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "registro"),
	),
	Views: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
		key.WithHelp("1-9", "vista"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "siguiente vista"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "vista anterior"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "ayuda"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "abrir"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "volver"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "arriba"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "abajo"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "izquierda"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "derecha"),
	),
	Logout: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "cerrar sesión"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "salir"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Views, k.Tab, k.New, k.Search, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.New, k.Edit, k.Delete, k.Enter},
		{k.Search, k.Filter, k.NextFilter, k.Clear},
		{k.PrevPage, k.NextPage, k.FirstPage, k.LastPage},
		{k.PageSize, k.Refresh},
		{k.Views, k.Tab, k.ShiftTab, k.Logout, k.Quit},
	}
}
