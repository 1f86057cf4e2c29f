package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/habitr/internal/api"
	"github.com/sadopc/habitr/internal/calendar"
	"github.com/sadopc/habitr/internal/logger"
)

type chartMode int

const (
	chartStacked chartMode = iota
	chartCompleted
)

func (m chartMode) String() string {
	if m == chartCompleted {
		return "completed"
	}
	return "stacked"
}

func parseChartMode(s string) chartMode {
	if s == "completed" {
		return chartCompleted
	}
	return chartStacked
}

type statisticsModel struct {
	b      *backend
	width  int
	height int

	month     calendar.Month
	mode      chartMode
	counts    []calendar.DayCount
	summary   calendar.Summary
	dashboard *api.Dashboard
	loaded    bool

	chart barchart.Model
}

func newStatisticsModel(b *backend) statisticsModel {
	return statisticsModel{
		b:     b,
		month: calendar.MonthOf(b.today()),
		mode:  parseChartMode(b.store.SettingOr("chart_mode", "stacked")),
		chart: barchart.New(60, 12),
	}
}

func (s *statisticsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type statisticsDataMsg struct {
	month     calendar.Month
	counts    []calendar.DayCount
	summary   calendar.Summary
	dashboard *api.Dashboard
}

// refresh loads the month's logs for the chart and the server dashboard.
// The dashboard is optional; a failure there only hides the totals panel.
func (s statisticsModel) refresh() tea.Cmd {
	month, today, b := s.month, s.b.today(), s.b
	return b.call(func(ctx context.Context) tea.Msg {
		data, err := b.client.FetchMonth(ctx, month, today)
		if err != nil {
			return errMsg{context: "load statistics", err: err}
		}
		counts, err := calendar.MonthlyCounts(data.Logs, month)
		if err != nil {
			return errMsg{context: "count logs", err: err}
		}
		g, err := calendar.Reconcile(data.Habits, data.Logs, month, b.now())
		if err != nil {
			return errMsg{context: "reconcile", err: err}
		}
		dash, err := b.client.Dashboard(ctx)
		if err != nil {
			logger.Warn("dashboard unavailable", "error", err)
			dash = nil
		}
		return statisticsDataMsg{month: month, counts: counts, summary: calendar.Summarize(g), dashboard: dash}
	})
}

func (s statisticsModel) update(msg tea.Msg) (statisticsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statisticsDataMsg:
		if msg.month != s.month {
			return s, nil
		}
		s.counts = msg.counts
		s.summary = msg.summary
		s.dashboard = msg.dashboard
		s.loaded = true
		s.buildChart()
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left), key.Matches(msg, keys.PrevMonth):
			s.month = s.month.Prev()
			s.loaded = false
			return s, s.refresh()
		case key.Matches(msg, keys.Right), key.Matches(msg, keys.NextMonth):
			s.month = s.month.Next()
			s.loaded = false
			return s, s.refresh()
		case key.Matches(msg, keys.Refresh):
			return s, s.refresh()
		case key.Matches(msg, keys.Mode):
			if s.mode == chartStacked {
				s.mode = chartCompleted
			} else {
				s.mode = chartStacked
			}
			if err := s.b.store.SetSetting("chart_mode", s.mode.String()); err != nil {
				logger.Warn("save chart mode", "error", err)
			}
			s.buildChart()
			return s, nil
		}
	}
	return s, nil
}

func (s *statisticsModel) buildChart() {
	chartWidth := s.width - 8
	if chartWidth < 31 {
		chartWidth = 31
	}
	chartHeight := 12
	if s.height > 34 {
		chartHeight = 16
	}

	s.chart = barchart.New(chartWidth, chartHeight)

	_, completed := statusCell(calendar.DisplayCompleted)
	_, partial := statusCell(calendar.DisplayPartial)
	_, notDone := statusCell(calendar.DisplayNotDone)

	bars := make([]barchart.BarData, 0, len(s.counts))
	for _, c := range s.counts {
		label := ""
		if c.Date.Day == 1 || c.Date.Day%5 == 0 {
			label = fmt.Sprintf("%d", c.Date.Day)
		}
		values := []barchart.BarValue{{Name: "Completed", Value: float64(c.Completed), Style: completed}}
		if s.mode == chartStacked {
			values = append(values,
				barchart.BarValue{Name: "Partial", Value: float64(c.Partial), Style: partial},
				barchart.BarValue{Name: "Not done", Value: float64(c.NotDone), Style: notDone},
			)
		}
		bars = append(bars, barchart.BarData{Label: label, Values: values})
	}

	s.chart.PushAll(bars)
	s.chart.Draw()
}

func (s statisticsModel) view() string {
	w := s.width - 4

	stackedTab := inactiveTabStyle.Render("Stacked")
	completedTab := inactiveTabStyle.Render("Completed")
	if s.mode == chartStacked {
		stackedTab = activeTabStyle.Render("Stacked")
	} else {
		completedTab = activeTabStyle.Render("Completed")
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, stackedTab, completedTab)

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Statistics"), "  ", modeTabs, "  ", mutedStyle.Render(s.month.Title()),
	)
	nav := mutedStyle.Render("  ←/→: month  m: chart mode  r: refresh")

	if !s.loaded {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			header, "", mutedStyle.Render("Loading..."), "", nav,
		))
	}

	legend := "  " + strings.Join([]string{
		successStyle.Render("■") + " Completed",
		warningStyle.Render("■") + " Partial",
		errorStyle.Render("■") + " Not done",
	}, "   ")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", s.chart.View(), "", legend, "",
			lipgloss.JoinHorizontal(lipgloss.Top, s.renderMonthSummary(), "    ", s.renderDashboard()),
			"", nav,
		),
	)
}

func (s statisticsModel) renderMonthSummary() string {
	label := lipgloss.NewStyle().Width(16)
	sum := s.summary
	lines := []string{
		highlightStyle.Render("This month"),
		label.Render("Completed") + successStyle.Render(fmt.Sprintf("%d", sum.Completed)),
		label.Render("Partial") + warningStyle.Render(fmt.Sprintf("%d", sum.Partial)),
		label.Render("Not done") + errorStyle.Render(fmt.Sprintf("%d", sum.NotDone)),
		label.Render("Completion") + formatRate(sum.CompletionRate()),
	}
	return "  " + strings.Join(lines, "\n  ")
}

func (s statisticsModel) renderDashboard() string {
	d := s.dashboard
	if d == nil {
		return mutedStyle.Render("Dashboard unavailable")
	}
	label := lipgloss.NewStyle().Width(18)
	lines := []string{
		highlightStyle.Render("Overview"),
		label.Render("Habits") + fmt.Sprintf("%d (%d active)", d.TotalHabits, d.ActiveHabits),
		label.Render("Today") + fmt.Sprintf("%d/%d (%s)", d.TodayCompleted, d.TodayTotal, formatRate(d.TodayCompletionRate)),
		label.Render("This week") + formatRate(d.WeeklyCompletionRate),
	}
	if len(d.BestStreaks) > 0 {
		lines = append(lines, "", highlightStyle.Render("Best streaks"))
		for _, st := range d.BestStreaks {
			lines = append(lines, label.Render(truncate(st.HabitName, 16))+accentStyle.Render(fmt.Sprintf("%dd", st.CurrentStreak)))
		}
	}
	return strings.Join(lines, "\n")
}
