// Package nav decides which navigation entries and actions a role may see.
package nav

import (
	"slices"
	"strings"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "empleado"
	RoleClient   Role = "cliente"
)

var AllRoles = []Role{RoleAdmin, RoleEmployee, RoleClient}

// ParseRole maps a backend role string to a Role. Unknown values become
// RoleClient, the least privileged role.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin", "administrador":
		return RoleAdmin
	case "empleado", "employee", "usuario", "user":
		return RoleEmployee
	default:
		return RoleClient
	}
}

func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrador"
	case RoleEmployee:
		return "Empleado"
	default:
		return "Cliente"
	}
}

type Section string

const (
	SectionNavigation Section = "Navegación"
	SectionMain       Section = "Menú principal"
	SectionManagement Section = "Gestión"
	SectionReports    Section = "Reportes"
)

// Item is a navigation entry or an action. A nil AllowedRoles means every
// role.
type Item struct {
	Label        string
	Path         string
	Icon         string
	Section      Section
	AllowedRoles []Role
}

// Visible reports whether role may see item.
func Visible(item Item, role Role) bool {
	return len(item.AllowedRoles) == 0 || slices.Contains(item.AllowedRoles, role)
}

// Filter keeps the items role may see, preserving order.
func Filter(items []Item, role Role) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if Visible(it, role) {
			out = append(out, it)
		}
	}
	return out
}

var staff = []Role{RoleAdmin, RoleEmployee}

// Sidebar returns the full navigation, in display order.
func Sidebar() []Item {
	return []Item{
		{Label: "Inicio", Path: "dashboard", Icon: "⌂", Section: SectionNavigation},
		{Label: "Mi espacio", Path: "mi-espacio", Icon: "☺", Section: SectionNavigation},
		{Label: "Tareas", Path: "tareas", Icon: "✓", Section: SectionMain, AllowedRoles: staff},
		{Label: "Embarques", Path: "embarques", Icon: "⛴", Section: SectionMain},
		{Label: "Rutas", Path: "rutas", Icon: "⇄", Section: SectionMain, AllowedRoles: staff},
		{Label: "Facturas", Path: "facturas", Icon: "$", Section: SectionMain},
		{Label: "Personal", Path: "personal", Icon: "☷", Section: SectionManagement, AllowedRoles: []Role{RoleAdmin}},
		{Label: "Embarcaciones", Path: "embarcaciones", Icon: "⚓", Section: SectionManagement, AllowedRoles: staff},
		{Label: "Almacenes", Path: "almacen", Icon: "▦", Section: SectionManagement, AllowedRoles: staff},
		{Label: "Estadísticas", Path: "estadisticas", Icon: "▤", Section: SectionReports, AllowedRoles: []Role{RoleAdmin}},
		{Label: "Exportar datos", Path: "exportar", Icon: "⇩", Section: SectionReports, AllowedRoles: staff},
		{Label: "Perfil", Path: "perfil", Icon: "●", Section: SectionReports},
		{Label: "Ajustes", Path: "ajustes", Icon: "⚙", Section: SectionReports},
	}
}

// QuickActions are the dashboard shortcuts.
func QuickActions() []Item {
	return []Item{
		{Label: "Nueva tarea", Path: "tareas", Icon: "✓", AllowedRoles: staff},
		{Label: "Personal", Path: "personal", Icon: "☷", AllowedRoles: []Role{RoleAdmin}},
		{Label: "Embarques", Path: "embarques", Icon: "⛴", AllowedRoles: AllRoles},
		{Label: "Rutas", Path: "rutas", Icon: "⇄", AllowedRoles: staff},
		{Label: "Almacenes", Path: "almacen", Icon: "▦", AllowedRoles: staff},
		{Label: "Estadísticas", Path: "estadisticas", Icon: "▤", AllowedRoles: []Role{RoleAdmin}},
	}
}

type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

var actionRoles = map[Action][]Role{
	ActionView:   nil,
	ActionCreate: {RoleAdmin},
	ActionEdit:   {RoleAdmin},
	ActionDelete: {RoleAdmin},
}

// Allowed reports whether role may perform a.
func Allowed(a Action, role Role) bool {
	roles, ok := actionRoles[a]
	if !ok {
		return false
	}
	return Visible(Item{AllowedRoles: roles}, role)
}

// RowActions lists the row actions role may use, in display order.
func RowActions(role Role) []Action {
	var out []Action
	for _, a := range []Action{ActionView, ActionEdit, ActionDelete} {
		if Allowed(a, role) {
			out = append(out, a)
		}
	}
	return out
}

// CanMutate reports whether role may create, edit or delete records.
func CanMutate(role Role) bool {
	return Allowed(ActionEdit, role)
}
