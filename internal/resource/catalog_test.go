package resource

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/portdesk/internal/api"
	"github.com/sadopc/portdesk/internal/nav"
)

func TestCatalogMatchesSidebar(t *testing.T) {
	var paths []string
	for _, it := range nav.Sidebar() {
		if _, ok := Lookup(it.Path); ok {
			paths = append(paths, it.Path)
		}
	}
	var names []string
	for _, d := range Catalog() {
		names = append(names, d.Path)
	}
	assert.Equal(t, paths, names)
	assert.Len(t, names, 7)
}

func TestDefinitionsAreComplete(t *testing.T) {
	for _, d := range Catalog() {
		t.Run(d.Name, func(t *testing.T) {
			assert.NotEmpty(t, d.Label)
			assert.NotEmpty(t, d.Columns)
			assert.NotEmpty(t, d.Export)
			assert.NotEmpty(t, d.Stats.Endpoint)
			assert.NotEmpty(t, d.Stats.States)
			require.NotNil(t, d.Side.Params)
			assert.Equal(t, "4", d.Side.Params["limit"])

			state, ok := d.Schema.Field(d.StateField)
			require.True(t, ok)
			for _, st := range d.Stats.States {
				assert.True(t, hasOption(state.Options, st.State), "stats state %q not in vocabulary", st.State)
			}
			for _, f := range d.Filters {
				assert.NotEmpty(t, f.Options, f.Key)
			}
			for _, f := range d.Schema.Fields {
				if f.Default != "" && f.Kind == KindSelect {
					assert.True(t, hasOption(f.Options, f.Default), f.Key)
				}
			}
		})
	}
}

func hasOption(opts []Option, v string) bool {
	return slices.ContainsFunc(opts, func(o Option) bool { return o.Value == v })
}

func TestLookup(t *testing.T) {
	d, ok := Lookup("facturas")
	require.True(t, ok)
	assert.Equal(t, "Facturas", d.Label)
	_, ok = Lookup("clientes")
	assert.False(t, ok)
}

func TestShipmentVocabularyHasNoLegacyState(t *testing.T) {
	for _, o := range ShipmentStates {
		assert.NotEqual(t, "completado", o.Value)
	}
}

func TestExportTable(t *testing.T) {
	d := mustLookup(t, "facturas")
	tbl := d.ExportTable([]api.Record{{"idFactura": "F-1", "monto": 1500000.0}})
	assert.Equal(t, "Facturas", tbl.Label)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "$ 1.500.000", tbl.Cell(tbl.Rows[0], tbl.Columns[3]))
}

func TestColumnCell(t *testing.T) {
	c := Column{Key: "asignado"}
	assert.Equal(t, "Ana", c.Cell(api.Record{"asignado": map[string]any{"nombre": "Ana"}}))
}

func TestRefFields(t *testing.T) {
	refs := mustLookup(t, "embarques").RefFields()
	require.Len(t, refs, 3)
	assert.Equal(t, "embarcaciones", refs[0].RefResource)
	assert.Empty(t, mustLookup(t, "rutas").RefFields())
}
