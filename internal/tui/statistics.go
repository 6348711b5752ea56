package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/portdesk/internal/resource"
	"github.com/sadopc/portdesk/internal/stats"
)

type resourceSummary struct {
	def     resource.Definition
	summary stats.Summary
	failed  bool
}

// statisticsModel charts the state distribution of every resource.
type statisticsModel struct {
	backend resource.Backend
	width   int
	height  int

	summaries []resourceSummary
	cursor    int
	chart     barchart.Model
}

func newStatisticsModel(b resource.Backend) statisticsModel {
	return statisticsModel{
		backend: b,
		chart:   barchart.New(60, 12),
	}
}

func (s *statisticsModel) setSize(w, h int) {
	s.width = w
	s.height = h
	s.buildChart()
}

type statisticsDataMsg struct {
	summaries []resourceSummary
}

// refresh fetches every summary in parallel. A failing resource is marked
// and the others are still shown.
func (s statisticsModel) refresh() tea.Cmd {
	b := s.backend
	return func() tea.Msg {
		defs := resource.Catalog()
		out := make([]resourceSummary, len(defs))
		var g errgroup.Group
		var mu sync.Mutex
		for i, def := range defs {
			g.Go(func() error {
				raw, err := b.Stats(context.Background(), def.Path, def.Stats.Endpoint)
				rs := resourceSummary{def: def, failed: err != nil}
				if err == nil {
					rs.summary = stats.Derive(def.Stats, raw)
				}
				mu.Lock()
				out[i] = rs
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
		return statisticsDataMsg{summaries: out}
	}
}

func (s statisticsModel) update(msg tea.Msg) (statisticsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statisticsDataMsg:
		s.summaries = msg.summaries
		if s.cursor >= len(s.summaries) {
			s.cursor = 0
		}
		s.buildChart()
		failed := 0
		for _, rs := range s.summaries {
			if rs.failed {
				failed++
			}
		}
		if failed > 0 {
			return s, statusCmd(fmt.Sprintf("%d resúmenes no disponibles", failed), true)
		}
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left), key.Matches(msg, keys.Up):
			if s.cursor > 0 {
				s.cursor--
			}
		case key.Matches(msg, keys.Right), key.Matches(msg, keys.Down):
			if s.cursor < len(s.summaries)-1 {
				s.cursor++
			}
		case key.Matches(msg, keys.Refresh):
			return s, s.refresh()
		}
	}
	return s, nil
}

func (s *statisticsModel) buildChart() {
	chartWidth := s.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if s.height > 30 {
		chartHeight = 16
	}

	s.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for _, rs := range s.summaries {
		var values []barchart.BarValue
		for _, sl := range rs.summary.Distribution {
			values = append(values, barchart.BarValue{
				Name:  sl.Label,
				Value: float64(sl.Count),
				Style: lipgloss.NewStyle().Foreground(lipgloss.Color(sl.Color)),
			})
		}
		if len(values) == 0 {
			values = []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		}
		bars = append(bars, barchart.BarData{
			Label:  truncate(rs.def.Label, 10),
			Values: values,
		})
	}

	s.chart.PushAll(bars)
	s.chart.Draw()
}

func (s statisticsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Estadísticas")
	if len(s.summaries) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", mutedStyle.Render("Cargando estadísticas...")))
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title, "", s.chart.View(), "", s.renderDetail(), "",
			mutedStyle.Render("  ←/→: recurso  r: recargar"),
		),
	)
}

// renderDetail shows the cards and per-state shares of the selected resource.
func (s statisticsModel) renderDetail() string {
	if s.cursor >= len(s.summaries) {
		return ""
	}
	rs := s.summaries[s.cursor]

	var tabs []string
	for i, r := range s.summaries {
		if i == s.cursor {
			tabs = append(tabs, activeTabStyle.Render(r.def.Label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(r.def.Label))
		}
	}
	rows := []string{lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...), ""}

	if rs.failed {
		return strings.Join(append(rows, errorStyle.Render("  Resumen no disponible")), "\n")
	}
	rows = append(rows, renderCards(rs.summary.Cards), renderDistribution(rs.summary.Distribution, 24))
	if len(rs.summary.Breakdown) > 0 {
		rows = append(rows, "", subtitleStyle.Render("  Por departamento"), renderDistribution(rs.summary.Breakdown, 24))
	}
	return strings.Join(rows, "\n")
}

// renderCards lays out summary cards side by side.
func renderCards(cards []stats.Card) string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardStyle.Render(mutedStyle.Render(c.Label)+"\n"+colored(c.Color, c.Text())))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}

// renderDistribution draws one bar per state.
func renderDistribution(parts []stats.Slice, width int) string {
	rows := make([]string, 0, len(parts))
	for _, sl := range parts {
		rows = append(rows, fmt.Sprintf("  %s %s %3d%% (%d)", pad(sl.Label, 18), bar(sl.Percent, width, sl.Color), sl.Percent, sl.Count))
	}
	return strings.Join(rows, "\n")
}
