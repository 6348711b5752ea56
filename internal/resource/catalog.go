package resource

import (
	"slices"

	"github.com/sadopc/portdesk/internal/api"
	"github.com/sadopc/portdesk/internal/export"
	"github.com/sadopc/portdesk/internal/stats"
)

// Column is one column of the list table.
type Column struct {
	Key    string
	Title  string
	Width  int
	Format export.Formatter
}

// Cell renders rec[c.Key] for the table.
func (c Column) Cell(rec api.Record) string {
	if c.Format != nil {
		return c.Format(rec[c.Key])
	}
	return rec.String(c.Key)
}

// Filter is a select filter of the filter bar. The empty value means all.
type Filter struct {
	Key     string
	Label   string
	Options []Option
}

// SideWidget is the short list shown next to the table, such as upcoming
// tasks or invoices awaiting payment.
type SideWidget struct {
	Title     string
	Params    map[string]string
	Primary   string
	Secondary string
	Format    export.Formatter
}

// Definition is everything the client knows about one resource.
type Definition struct {
	Name     string
	Path     string
	Label    string
	Singular string
	Schema   Schema
	Filters  []Filter
	Columns  []Column
	Export   []export.Column
	Stats    stats.Spec
	Side     SideWidget
	// SearchParam is the query key of the free-text search; "q" when empty.
	SearchParam string
	StateField  string
}

// ExportTable wraps records in an export table.
func (d Definition) ExportTable(items []api.Record) export.Table {
	rows := make([]map[string]any, len(items))
	for i, rec := range items {
		rows[i] = rec
	}
	return export.Table{Resource: d.Path, Label: d.Label, Columns: d.Export, Rows: rows}
}

// RefFields lists the fields whose options come from another resource.
func (d Definition) RefFields() []Field {
	var out []Field
	for _, f := range d.Schema.Fields {
		if f.Kind == KindRef {
			out = append(out, f)
		}
	}
	return out
}

// StateOf returns the canonical state of rec.
func (d Definition) StateOf(rec api.Record) string {
	f, ok := d.Schema.Field(d.StateField)
	if !ok {
		return rec.String(d.StateField)
	}
	return f.Canonical(rec.String(d.StateField))
}

func opts(pairs ...string) []Option {
	out := make([]Option, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Option{Value: pairs[i], Label: pairs[i+1]})
	}
	return out
}

func same(values ...string) []Option {
	out := make([]Option, len(values))
	for i, v := range values {
		out[i] = Option{Value: v, Label: v}
	}
	return out
}

func filterOn(s Schema, key string) Filter {
	f, _ := s.Field(key)
	return Filter{Key: key, Label: f.Label, Options: f.Options}
}

func side(limit string, kv ...string) map[string]string {
	p := map[string]string{"page": "1", "limit": limit}
	for i := 0; i+1 < len(kv); i += 2 {
		p[kv[i]] = kv[i+1]
	}
	return p
}

var (
	taskStates     = opts("pendiente", "Pendiente", "en-progreso", "En progreso", "completada", "Completada")
	taskPriorities = opts("baja", "Baja", "media", "Media", "alta", "Alta")

	// ShipmentStates is the one shipment vocabulary. The legacy
	// "completado" is an alias of "entregado".
	ShipmentStates  = opts("pendiente", "Pendiente", "en-transito", "En tránsito", "en-aduana", "En aduana", "entregado", "Entregado", "retrasado", "Retrasado", "cancelado", "Cancelado")
	shipmentAliases = map[string]string{"completado": "entregado"}
	cargoTypes      = opts("seco", "Seco", "refrigerado", "Refrigerado", "peligroso", "Peligroso", "perecedero", "Perecedero", "sobredimensionado", "Sobredimensionado")

	vesselTypes  = opts("contenedor", "Portacontenedores", "granel", "Granelero", "general", "Carga general", "cisterna", "Tanquero")
	vesselStates = opts("pendiente", "Pendiente", "en-transito", "En tránsito", "en-ruta", "En ruta", "en-puerto", "En puerto")

	warehouseStates = opts("operativo", "Operativo", "mantenimiento", "En mantenimiento", "inoperativo", "Inoperativo")

	documentTypes = same("Cédula de Ciudadanía", "Tarjeta de Identidad", "Cédula de Extranjería")
	positions     = same(
		"Coordinador de Operaciones", "Especialista en Aduanas", "Técnico de Mantenimiento",
		"Supervisora de Almacén", "Analista de Documentación", "Gerente de Logística",
		"Operador Portuario", "Asistente Administrativo", "Jefe de Turno", "Inspector de Calidad",
		"Jefe de Operaciones", "Auxiliar de Almacén", "Conductor", "Mecánico", "Contador",
		"Recepcionista", "Vigilante",
	)
	departments = same(
		"Logística", "Gestión de Documentos", "Operaciones Portuarias", "Mantenimiento",
		"Administración", "Recursos Humanos", "Finanzas", "TI y Sistemas", "Seguridad",
		"Calidad", "Almacén", "Transporte",
	)
	staffStates = opts("activo", "Activo", "inactivo", "Inactivo")
	staffRoles  = opts("user", "Usuario", "admin", "Administrador")

	routeTypes  = opts("internacional", "Internacional", "regional", "Regional", "costera", "Costera")
	routeStates = opts("activa", "Activa", "pendiente", "Pendiente", "completada", "Completada", "inactiva", "Inactiva")

	invoiceStates = opts("pagada", "Pagada", "pendiente", "Pendiente", "vencida", "Vencida", "cancelada", "Cancelada")
)

func tasks() Definition {
	s := Schema{Fields: []Field{
		{Key: "titulo", Label: "Título", Kind: KindText, Required: true, Rules: "min=3",
			Messages: map[string]string{"required": "Por favor, ingrese el título de la tarea"}},
		{Key: "descripcion", Label: "Descripción", Kind: KindTextarea},
		{Key: "asignado", Label: "Asignado a", Kind: KindRef, RefResource: "personal", RefLabel: "nombre"},
		{Key: "fecha", Label: "Fecha límite", Kind: KindDate, Required: true,
			Messages: map[string]string{"required": "Por favor, seleccione la fecha límite"}},
		{Key: "prioridad", Label: "Prioridad", Kind: KindSelect, Required: true, Options: taskPriorities, Default: "media"},
		{Key: "estado", Label: "Estado", Kind: KindSelect, Required: true, Options: taskStates, Default: "pendiente"},
	}}
	return Definition{
		Name: "tareas", Path: "tareas", Label: "Tareas", Singular: "tarea",
		Schema:     s,
		StateField: "estado",
		Filters:    []Filter{filterOn(s, "estado"), filterOn(s, "prioridad")},
		Columns: []Column{
			{Key: "titulo", Title: "Título", Width: 28},
			{Key: "asignado", Title: "Asignado", Width: 18},
			{Key: "fecha", Title: "Fecha", Width: 12, Format: export.DateES},
			{Key: "prioridad", Title: "Prioridad", Width: 10, Format: export.Upper},
			{Key: "estado", Title: "Estado", Width: 12, Format: export.Upper},
		},
		Export: []export.Column{
			{Key: "titulo", Label: "Título"},
			{Key: "descripcion", Label: "Descripción"},
			{Key: "estado", Label: "Estado", Format: export.Upper},
			{Key: "prioridad", Label: "Prioridad", Format: export.Upper},
			{Key: "fecha", Label: "Fecha Límite", Format: export.DateES},
			{Key: "asignado", Label: "Asignado A"},
			{Key: "departamento", Label: "Departamento"},
		},
		Stats: stats.Spec{
			Endpoint: "summary",
			TotalKey: "total",
			States: []stats.StateSpec{
				{Key: "pendientes", State: "pendiente", Label: "Pendientes", Color: "#F59E0B"},
				{Key: "enProgreso", State: "en-progreso", Label: "En progreso", Color: "#3B82F6"},
				{Key: "completadas", State: "completada", Label: "Completadas", Color: "#10B981"},
			},
			Cards: []stats.CardSpec{
				{Label: "Total tareas", Key: "total", Kind: stats.KindCount},
				{Label: "Pendientes", Key: "pendientes", Kind: stats.KindShare, Color: "#F59E0B"},
				{Label: "Completadas", Key: "completadas", Kind: stats.KindShare, Color: "#10B981"},
				{Label: "Alta prioridad", Key: "altaPrioridad", Kind: stats.KindCount, Color: "#EF4444"},
			},
		},
		Side: SideWidget{
			Title:     "Próximas tareas",
			Params:    side("4", "sort", "fecha", "estado", "pendiente"),
			Primary:   "titulo",
			Secondary: "fecha",
			Format:    export.DateES,
		},
	}
}

func shipments() Definition {
	s := Schema{
		Fields: []Field{
			{Key: "numeroGuia", Label: "N° guía", Kind: KindText, Required: true},
			{Key: "cliente", Label: "Cliente", Kind: KindText, Required: true},
			{Key: "embarcacionId", Label: "Embarcación", Kind: KindRef, Required: true, RefResource: "embarcaciones", RefLabel: "nombre"},
			{Key: "rutaId", Label: "Ruta", Kind: KindRef, Required: true, RefResource: "rutas", RefLabel: "nombre"},
			{Key: "almacenId", Label: "Almacén", Kind: KindRef, RefResource: "almacen", RefLabel: "nombre"},
			{Key: "origen", Label: "Origen", Kind: KindText, Required: true},
			{Key: "destino", Label: "Destino", Kind: KindText, Required: true},
			{Key: "fechaSalida", Label: "Fecha de salida", Kind: KindDate, Required: true},
			{Key: "fechaEstimada", Label: "Fecha estimada", Kind: KindDate},
			{Key: "tipoCarga", Label: "Tipo de carga", Kind: KindSelect, Required: true, Options: cargoTypes, Default: "seco"},
			{Key: "estado", Label: "Estado", Kind: KindSelect, Required: true, Options: ShipmentStates, Aliases: shipmentAliases, Default: "pendiente"},
			{Key: "peso", Label: "Peso (kg)", Kind: KindNumber, Rules: "gte=0"},
			{Key: "volumen", Label: "Volumen (m³)", Kind: KindNumber, Rules: "gte=0"},
			{Key: "valorDeclarado", Label: "Valor declarado", Kind: KindNumber, Rules: "gte=0"},
			{Key: "observaciones", Label: "Observaciones", Kind: KindTextarea},
		},
		Checks: []CrossCheck{
			notBefore("fechaSalida", "fechaEstimada", "La fecha estimada no puede ser anterior a la salida"),
		},
	}
	return Definition{
		Name: "embarques", Path: "embarques", Label: "Embarques", Singular: "embarque",
		Schema:      s,
		StateField:  "estado",
		SearchParam: "search",
		Filters:     []Filter{filterOn(s, "estado")},
		Columns: []Column{
			{Key: "numeroGuia", Title: "Guía", Width: 12},
			{Key: "cliente", Title: "Cliente", Width: 18},
			{Key: "origen", Title: "Origen", Width: 14},
			{Key: "destino", Title: "Destino", Width: 14},
			{Key: "fechaSalida", Title: "Salida", Width: 11, Format: export.DateES},
			{Key: "estado", Title: "Estado", Width: 12, Format: export.Upper},
		},
		Export: []export.Column{
			{Key: "numeroGuia", Label: "N° Guía"},
			{Key: "cliente", Label: "Cliente"},
			{Key: "origen", Label: "Origen"},
			{Key: "destino", Label: "Destino"},
			{Key: "fechaSalida", Label: "Fecha Salida", Format: export.DateES},
			{Key: "fechaLlegada", Label: "Fecha Llegada", Format: export.DateES},
			{Key: "peso", Label: "Peso (kg)"},
			{Key: "tipoCarga", Label: "Tipo Carga"},
			{Key: "estado", Label: "Estado", Format: export.Upper},
		},
		Stats: stats.Spec{
			Endpoint: "estadisticas",
			TotalKey: "total",
			States: []stats.StateSpec{
				{Key: "pendientes", State: "pendiente", Label: "Pendientes", Color: "#F59E0B"},
				{Key: "enTransito", State: "en-transito", Label: "En tránsito", Color: "#3B82F6"},
				{Key: "enAduana", State: "en-aduana", Label: "En aduana", Color: "#8B5CF6"},
				{Key: "entregados", State: "entregado", Label: "Entregados", Color: "#10B981"},
				{Key: "retrasados", State: "retrasado", Label: "Retrasados", Color: "#EF4444"},
				{Key: "cancelados", State: "cancelado", Label: "Cancelados", Color: "#6B7280"},
			},
			Cards: []stats.CardSpec{
				{Label: "Embarques activos", Sum: []string{"enTransito", "enAduana", "pendientes"}, Kind: stats.KindShare, Color: "#3B82F6"},
				{Label: "Entregas", Key: "entregados", Kind: stats.KindShare, Color: "#10B981"},
				{Label: "Peso total", Key: "totalPeso", Kind: stats.KindNumber, Unit: "kg"},
				{Label: "Total embarques", Key: "total", Kind: stats.KindCount},
			},
		},
		Side: SideWidget{
			Title:     "En tránsito",
			Params:    side("4", "sort", "fechaEstimada", "estado", "en-transito"),
			Primary:   "numeroGuia",
			Secondary: "destino",
		},
	}
}

func vessels() Definition {
	s := Schema{Fields: []Field{
		{Key: "nombre", Label: "Nombre", Kind: KindText, Required: true,
			Messages: map[string]string{"required": "Por favor, ingrese el nombre de la embarcación"}},
		{Key: "imo", Label: "IMO", Kind: KindText, Required: true},
		{Key: "fecha", Label: "Fecha de arribo", Kind: KindDate, Required: true},
		{Key: "capacidad", Label: "Capacidad (ton)", Kind: KindNumber, Required: true, Rules: "gte=1",
			Messages: map[string]string{"gte": "La capacidad debe ser ≥ 1"}},
		{Key: "tipo", Label: "Tipo", Kind: KindSelect, Required: true, Options: vesselTypes, Default: "contenedor"},
		{Key: "estado", Label: "Estado", Kind: KindSelect, Required: true, Options: vesselStates, Default: "pendiente"},
	}}
	return Definition{
		Name: "embarcaciones", Path: "embarcaciones", Label: "Embarcaciones", Singular: "embarcación",
		Schema:     s,
		StateField: "estado",
		Filters:    []Filter{filterOn(s, "estado"), filterOn(s, "tipo")},
		Columns: []Column{
			{Key: "nombre", Title: "Nombre", Width: 22},
			{Key: "imo", Title: "IMO", Width: 12},
			{Key: "tipo", Title: "Tipo", Width: 12},
			{Key: "capacidad", Title: "Capacidad", Width: 10, Format: export.Number},
			{Key: "fecha", Title: "Arribo", Width: 11, Format: export.DateES},
			{Key: "estado", Title: "Estado", Width: 12, Format: export.Upper},
		},
		Export: []export.Column{
			{Key: "nombre", Label: "Nombre"},
			{Key: "matricula", Label: "Matrícula"},
			{Key: "tipo", Label: "Tipo"},
			{Key: "capacidad", Label: "Capacidad (ton)"},
			{Key: "estado", Label: "Estado", Format: export.Upper},
		},
		Stats: stats.Spec{
			Endpoint: "general",
			TotalKey: "total",
			States: []stats.StateSpec{
				{Key: "pendientes", State: "pendiente", Label: "Pendientes", Color: "#F59E0B"},
				{Key: "enTransito", State: "en-transito", Label: "En tránsito", Color: "#3B82F6"},
				{Key: "enRuta", State: "en-ruta", Label: "En ruta", Color: "#8B5CF6"},
				{Key: "enPuerto", State: "en-puerto", Label: "En puerto", Color: "#10B981"},
			},
			Cards: []stats.CardSpec{
				{Label: "Total embarcaciones", Key: "total", Kind: stats.KindCount},
				{Label: "Activas", Key: "activas", Kind: stats.KindShare, Color: "#3B82F6"},
				{Label: "En puerto", Key: "enPuerto", Kind: stats.KindShare, Color: "#10B981"},
			},
		},
		Side: SideWidget{
			Title:     "Próximos arribos",
			Params:    side("4", "sort", "fecha", "estado", "en-ruta"),
			Primary:   "nombre",
			Secondary: "fecha",
			Format:    export.DateES,
		},
	}
}

func warehouses() Definition {
	s := Schema{Fields: []Field{
		{Key: "nombre", Label: "Nombre", Kind: KindText, Required: true,
			Messages: map[string]string{"required": "Por favor, ingrese el nombre del almacén"}},
		{Key: "ubicacion", Label: "Ubicación", Kind: KindText, Required: true,
			Messages: map[string]string{"required": "Por favor, seleccione la ubicación (país)"}},
		{Key: "capacidad", Label: "Capacidad", Kind: KindNumber, Required: true, Rules: "gte=1",
			Messages: map[string]string{"gte": "La capacidad debe ser ≥ 1"}},
		{Key: "ocupacion", Label: "Ocupación (%)", Kind: KindNumber, Rules: "gte=0,lte=100",
			Messages: map[string]string{"gte": "La ocupación debe estar entre 0 y 100", "lte": "La ocupación debe estar entre 0 y 100"}},
		{Key: "estado", Label: "Estado", Kind: KindSelect, Required: true, Options: warehouseStates, Default: "operativo",
			Messages: map[string]string{"required": "Por favor, seleccione el estado del almacén"}},
		{Key: "proximoMantenimiento", Label: "Próximo mantenimiento", Kind: KindDate},
	}}
	return Definition{
		Name: "almacen", Path: "almacen", Label: "Almacenes", Singular: "almacén",
		Schema:     s,
		StateField: "estado",
		Filters:    []Filter{filterOn(s, "estado")},
		Columns: []Column{
			{Key: "nombre", Title: "Nombre", Width: 22},
			{Key: "ubicacion", Title: "Ubicación", Width: 16},
			{Key: "capacidad", Title: "Capacidad", Width: 10, Format: export.Number},
			{Key: "ocupacion", Title: "Ocupación", Width: 10},
			{Key: "estado", Title: "Estado", Width: 14, Format: export.Upper},
		},
		Export: []export.Column{
			{Key: "nombre", Label: "Nombre Almacén"},
			{Key: "ubicacion", Label: "Ubicación"},
			{Key: "capacidad", Label: "Capacidad Total"},
			{Key: "ocupacion", Label: "Ocupación Actual"},
			{Key: "estado", Label: "Estado", Format: export.Upper},
		},
		Stats: stats.Spec{
			Endpoint: "summary",
			TotalKey: "total",
			States: []stats.StateSpec{
				{Key: "operativos", State: "operativo", Label: "Operativos", Color: "#10B981"},
				{Key: "enMantenimiento", State: "mantenimiento", Label: "En mantenimiento", Color: "#F59E0B"},
				{Key: "inoperativos", State: "inoperativo", Label: "Inoperativos", Color: "#EF4444"},
			},
			Cards: []stats.CardSpec{
				{Label: "Total almacenes", Key: "total", Kind: stats.KindCount},
				{Label: "Operativos", Key: "operativos", Kind: stats.KindShare, Color: "#10B981"},
				{Label: "Capacidad total", Key: "capacidadTotal", Kind: stats.KindNumber, Unit: "ton"},
				{Label: "Ocupación promedio", Key: "ocupacionPromedio", Kind: stats.KindPercent, Color: "#3B82F6"},
			},
		},
		Side: SideWidget{
			Title:     "Próximos mantenimientos",
			Params:    side("4", "sort", "-createdAt"),
			Primary:   "nombre",
			Secondary: "proximoMantenimiento",
			Format:    export.DateES,
		},
	}
}

func personnel() Definition {
	s := Schema{Fields: []Field{
		{Key: "nombre", Label: "Nombre completo", Kind: KindText, Required: true, Rules: "min=3",
			Messages: map[string]string{
				"required": "Por favor, ingrese el nombre completo del empleado",
				"min":      "El nombre debe contener al menos 3 caracteres",
			}},
		{Key: "email", Label: "Email", Kind: KindEmail, Required: true,
			Messages: map[string]string{
				"required": "Por favor, ingrese el correo electrónico",
				"mail":     "Por favor, ingrese un correo electrónico válido (ejemplo: usuario@dominio.com)",
			}},
		{Key: "tipoDocumento", Label: "Tipo de documento", Kind: KindSelect, Required: true, Options: documentTypes},
		{Key: "numeroDocumento", Label: "Número de documento", Kind: KindText, Required: true, Rules: "min=5",
			Messages: map[string]string{"min": "El número de documento debe contener al menos 5 caracteres"}},
		{Key: "puesto", Label: "Puesto", Kind: KindSelect, Required: true, Options: positions},
		{Key: "departamento", Label: "Departamento", Kind: KindSelect, Required: true, Options: departments},
		{Key: "estado", Label: "Estado", Kind: KindSelect, Required: true, Options: staffStates, Default: "activo"},
		{Key: "rol", Label: "Rol", Kind: KindSelect, Required: true, Options: staffRoles, Default: "user"},
	}}
	return Definition{
		Name: "personal", Path: "personal", Label: "Personal", Singular: "empleado",
		Schema:     s,
		StateField: "estado",
		Filters:    []Filter{filterOn(s, "estado"), filterOn(s, "departamento")},
		Columns: []Column{
			{Key: "nombre", Title: "Nombre", Width: 22},
			{Key: "email", Title: "Email", Width: 24},
			{Key: "puesto", Title: "Puesto", Width: 20},
			{Key: "departamento", Title: "Departamento", Width: 18},
			{Key: "estado", Title: "Estado", Width: 9, Format: export.Upper},
		},
		Export: []export.Column{
			{Key: "nombre", Label: "Nombre Completo"},
			{Key: "email", Label: "Email"},
			{Key: "telefono", Label: "Teléfono"},
			{Key: "cargo", Label: "Cargo"},
			{Key: "departamento", Label: "Departamento"},
			{Key: "estado", Label: "Estado", Format: export.Upper},
			{Key: "fechaIngreso", Label: "Fecha Ingreso", Format: export.DateES},
		},
		Stats: stats.Spec{
			Endpoint: "summary",
			TotalKey: "total",
			States: []stats.StateSpec{
				{Key: "activos", State: "activo", Label: "Activos", Color: "#10B981"},
				{Key: "inactivos", State: "inactivo", Label: "Inactivos", Color: "#6B7280"},
			},
			Cards: []stats.CardSpec{
				{Label: "Total personal", Key: "total", Kind: stats.KindCount},
				{Label: "Activos", Key: "activos", Kind: stats.KindShare, Color: "#10B981"},
			},
			Breakdown: &stats.BreakdownSpec{Key: "porDepartamento", IDKey: "_id", CountKey: "count", Label: "Por departamento"},
		},
		Side: SideWidget{
			Title:     "Nuevos ingresos",
			Params:    side("4", "sort", "-createdAt"),
			Primary:   "nombre",
			Secondary: "puesto",
		},
	}
}

func routes() Definition {
	s := Schema{Fields: []Field{
		{Key: "idRuta", Label: "ID ruta", Kind: KindText, Required: true},
		{Key: "nombre", Label: "Nombre", Kind: KindText, Required: true},
		{Key: "origen", Label: "Origen", Kind: KindText, Required: true},
		{Key: "destino", Label: "Destino", Kind: KindText, Required: true},
		{Key: "distancia", Label: "Distancia (km)", Kind: KindNumber, Rules: "gte=0"},
		{Key: "duracion", Label: "Duración (h)", Kind: KindNumber, Rules: "gte=0"},
		{Key: "viajesAnio", Label: "Viajes por año", Kind: KindInteger, Rules: "gte=0"},
		{Key: "tipo", Label: "Tipo", Kind: KindSelect, Required: true, Options: routeTypes, Default: "regional"},
		{Key: "estado", Label: "Estado", Kind: KindSelect, Required: true, Options: routeStates, Default: "activa"},
	}}
	return Definition{
		Name: "rutas", Path: "rutas", Label: "Rutas", Singular: "ruta",
		Schema:     s,
		StateField: "estado",
		Filters:    []Filter{filterOn(s, "estado"), filterOn(s, "tipo")},
		Columns: []Column{
			{Key: "idRuta", Title: "ID", Width: 8},
			{Key: "nombre", Title: "Nombre", Width: 20},
			{Key: "origen", Title: "Origen", Width: 14},
			{Key: "destino", Title: "Destino", Width: 14},
			{Key: "distancia", Title: "Km", Width: 8, Format: export.Number},
			{Key: "estado", Title: "Estado", Width: 11, Format: export.Upper},
		},
		Export: []export.Column{
			{Key: "nombre", Label: "Nombre Ruta"},
			{Key: "origen", Label: "Origen"},
			{Key: "destino", Label: "Destino"},
			{Key: "distancia", Label: "Distancia (km)"},
			{Key: "tiempoEstimado", Label: "Tiempo Estimado (h)"},
			{Key: "estado", Label: "Estado", Format: export.Upper},
		},
		Stats: stats.Spec{
			Endpoint: "summary",
			TotalKey: "total",
			States: []stats.StateSpec{
				{Key: "activas", State: "activa", Label: "Activas", Color: "#10B981"},
				{Key: "pendientes", State: "pendiente", Label: "Pendientes", Color: "#F59E0B"},
				{Key: "completadas", State: "completada", Label: "Completadas", Color: "#3B82F6"},
				{Key: "inactivas", State: "inactiva", Label: "Inactivas", Color: "#6B7280"},
			},
			Cards: []stats.CardSpec{
				{Label: "Rutas activas", Key: "activas", Kind: stats.KindShare, Color: "#10B981"},
				{Label: "Distancia total", Key: "distanciaTotal", Kind: stats.KindNumber, Unit: "km"},
				{Label: "Distancia promedio", Key: "distanciaPromedio", Kind: stats.KindNumber, Unit: "km"},
				{Label: "Viajes al año", Key: "totalViajes", Kind: stats.KindCount},
			},
		},
		Side: SideWidget{
			Title:     "Rutas activas",
			Params:    side("4", "sort", "-createdAt", "estado", "activa"),
			Primary:   "nombre",
			Secondary: "destino",
		},
	}
}

func invoices() Definition {
	s := Schema{Fields: []Field{
		{Key: "idFactura", Label: "ID factura", Kind: KindText, Required: true},
		{Key: "embarqueId", Label: "Embarque", Kind: KindRef, RefResource: "embarques", RefLabel: "numeroGuia"},
		{Key: "cliente", Label: "Cliente", Kind: KindText, Required: true},
		{Key: "fechaEmision", Label: "Fecha de emisión", Kind: KindDate, Required: true},
		{Key: "monto", Label: "Monto", Kind: KindNumber, Required: true, Rules: "gte=0",
			Messages: map[string]string{"gte": "El monto no puede ser negativo"}},
		{Key: "estado", Label: "Estado", Kind: KindSelect, Required: true, Options: invoiceStates, Default: "pendiente"},
	}}
	return Definition{
		Name: "facturas", Path: "facturas", Label: "Facturas", Singular: "factura",
		Schema:     s,
		StateField: "estado",
		Filters:    []Filter{filterOn(s, "estado")},
		Columns: []Column{
			{Key: "idFactura", Title: "Factura", Width: 10},
			{Key: "cliente", Title: "Cliente", Width: 22},
			{Key: "fechaEmision", Title: "Emisión", Width: 11, Format: export.DateES},
			{Key: "monto", Title: "Monto", Width: 14, Format: export.Currency},
			{Key: "estado", Title: "Estado", Width: 10, Format: export.Upper},
		},
		Export: []export.Column{
			{Key: "idFactura", Label: "ID Factura"},
			{Key: "cliente", Label: "Cliente"},
			{Key: "fechaEmision", Label: "Fecha Emisión", Format: export.DateES},
			{Key: "monto", Label: "Monto", Format: export.Currency},
			{Key: "estado", Label: "Estado", Format: export.Upper},
		},
		Stats: stats.Spec{
			Endpoint: "summary",
			TotalKey: "total",
			States: []stats.StateSpec{
				{Key: "pagadas", State: "pagada", Label: "Pagadas", Color: "#10B981"},
				{Key: "pendientes", State: "pendiente", Label: "Pendientes", Color: "#F59E0B"},
				{Key: "vencidas", State: "vencida", Label: "Vencidas", Color: "#EF4444"},
				{Key: "canceladas", State: "cancelada", Label: "Canceladas", Color: "#6B7280"},
			},
			Cards: []stats.CardSpec{
				{Label: "Total facturas", Key: "total", Kind: stats.KindCount},
				{Label: "Pagadas", Key: "pagadas", Kind: stats.KindShare, Color: "#10B981"},
				{Label: "Pendientes", Key: "pendientes", Kind: stats.KindShare, Color: "#F59E0B"},
				{Label: "Ingresos", Key: "totalPagado", Kind: stats.KindCurrency, Color: "#6C63FF"},
			},
		},
		Side: SideWidget{
			Title:     "Pendientes de pago",
			Params:    side("4", "sort", "fechaEmision", "estado", "pendiente"),
			Primary:   "idFactura",
			Secondary: "monto",
			Format:    export.Currency,
		},
	}
}

var catalog = []Definition{tasks(), shipments(), routes(), invoices(), personnel(), vessels(), warehouses()}

// Catalog returns the resource definitions in sidebar order.
func Catalog() []Definition {
	return slices.Clone(catalog)
}

// Lookup finds a definition by name or path.
func Lookup(name string) (Definition, bool) {
	for _, d := range catalog {
		if d.Name == name || d.Path == name {
			return d, true
		}
	}
	return Definition{}, false
}
