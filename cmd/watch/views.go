package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattxander12/forex-trader/internal/backtest/engine"
)

// NewJobInput creates the text input for the job id.
func NewJobInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "job id"
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 40
	ti.Prompt = "> "

	return ti
}

// NewTradesTable creates the table of closed trades.
func NewTradesTable() table.Model {
	columns := []table.Column{
		{Title: "Bar", Width: 7},
		{Title: "Side", Width: 5},
		{Title: "Status", Width: 6},
		{Title: "Entry", Width: 10},
		{Title: "Exit", Width: 10},
		{Title: "R", Width: 11},
		{Title: "Equity R", Width: 9},
		{Title: "Equity USD", Width: 11},
		{Title: "Closed", Width: 16},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

// TradeRow renders a closed trade as a table row.
func TradeRow(t engine.TradePayload) table.Row {
	return table.Row{
		fmt.Sprintf("%d", t.Index),
		string(t.Side),
		string(t.Status),
		fmt.Sprintf("%.5f", t.Entry),
		fmt.Sprintf("%.5f", t.Exit),
		FormatR(t.R),
		fmt.Sprintf("%.2f", t.EquityR),
		fmt.Sprintf("%.2f", t.EquityUSD),
		t.Time.UTC().Format("2006-01-02 15:04"),
	}
}

// RenderResult renders the final statistics of a run.
func RenderResult(r engine.ResultPayload) string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("Result"))
	s.WriteString("\n")
	fmt.Fprintf(&s, "Trades: %d  Wins: %d  Losses: %d  Win rate: %.1f%%\n", r.Trades, r.Wins, r.Losses, r.WinRate)

	total := fmt.Sprintf("Total R: %.2f", r.TotalR)
	if r.TotalR >= 0 {
		total = WinStyle.Render(total)
	} else {
		total = LossStyle.Render(total)
	}

	fmt.Fprintf(&s, "%s  Avg R: %.3f  Profit factor: %s  Max DD: %.2fR\n",
		total, r.AvgR, formatRatio(float64(r.ProfitFactor)), r.MaxDrawdownR)
	fmt.Fprintf(&s, "Balance: %.2f -> %.2f\n", r.StartBalance, r.EndBalance)

	rejections := r.Rejections.Rejections()
	if len(rejections) > 0 {
		parts := make([]string, 0, len(rejections))

		for _, reason := range []string{"evR", "prob", "vol", "session", "trend", "window", "capacity", "margin"} {
			if n := rejections[reason]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", reason, n))
			}
		}

		if len(parts) > 0 {
			fmt.Fprintf(&s, "Rejections: %s\n", strings.Join(parts, " "))
		}
	}

	return s.String()
}

func formatRatio(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "∞"
	case math.IsNaN(v):
		return "n/a"
	default:
		return fmt.Sprintf("%.3f", v)
	}
}
