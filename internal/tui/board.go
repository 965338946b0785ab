// Package tui renders the live price board served over SSH.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/watson9049/billygold-website/internal/domain"
)

const (
	DefaultRefresh = 30 * time.Second
	fetchTimeout   = 20 * time.Second
)

type PriceSource interface {
	GetAllMetalPrices(ctx context.Context) domain.AllMetalPrices
	CurrentGoldPrice(ctx context.Context) domain.CurrentGoldPrice
	CalculatePrice(ctx context.Context, req domain.PriceCalculationRequest) (domain.PriceCalculationResult, error)
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	fallbackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type pricesMsg struct {
	all     domain.AllMetalPrices
	current domain.CurrentGoldPrice
}

type refreshMsg time.Time

type calcMsg struct {
	result domain.PriceCalculationResult
	err    error
}

// Model is the bubbletea model of the price board.
type Model struct {
	src      PriceSource
	username string
	refresh  time.Duration

	table   table.Model
	spinner spinner.Model
	input   textinput.Model

	loading bool
	all     domain.AllMetalPrices
	current domain.CurrentGoldPrice
	calc    string
	calcErr string

	width, height int
}

func NewModel(src PriceSource, username string, refresh time.Duration) *Model {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Metal", Width: 10},
			{Title: "USD", Width: 12},
			{Title: "Change", Width: 10},
			{Title: "%", Width: 8},
			{Title: "Source", Width: 9},
		}),
		table.WithHeight(len(domain.Metals)+1),
	)

	s := spinner.New()
	s.Spinner = spinner.Dot

	in := textinput.New()
	in.Placeholder = "weight in taels, e.g. 1.5 or 1.5 800"
	in.CharLimit = 32
	in.Prompt = "calc> "

	return &Model{
		src:      src,
		username: username,
		refresh:  refresh,
		table:    t,
		spinner:  s,
		input:    in,
		loading:  true,
	}
}

// SetSize adapts the layout to the terminal.
func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	if width > 4 {
		m.input.Width = width - 12
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(), m.scheduleRefresh())
}

func (m *Model) fetch() tea.Cmd {
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		return pricesMsg{all: src.GetAllMetalPrices(ctx), current: src.CurrentGoldPrice(ctx)}
	}
}

func (m *Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m *Model) calculate(raw string) tea.Cmd {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		m.calcErr = "enter a weight"
		return nil
	}
	weight, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		m.calcErr = "invalid weight: " + fields[0]
		return nil
	}
	req := domain.PriceCalculationRequest{Weight: weight}
	if len(fields) > 1 {
		fee, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			m.calcErr = "invalid fee: " + fields[1]
			return nil
		}
		req.Fee = &fee
	}

	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		res, err := src.CalculatePrice(ctx, req)
		return calcMsg{result: res, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if m.input.Focused() {
			switch msg.Type {
			case tea.KeyEsc:
				m.input.Blur()
				return m, nil
			case tea.KeyEnter:
				cmd := m.calculate(m.input.Value())
				m.input.SetValue("")
				return m, cmd
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.fetch())
		case "c":
			m.calcErr = ""
			return m, m.input.Focus()
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd

	case pricesMsg:
		m.loading = false
		m.all = msg.all
		m.current = msg.current
		m.table.SetRows(metalRows(msg.all))
		return m, nil

	case refreshMsg:
		return m, tea.Batch(m.fetch(), m.scheduleRefresh())

	case calcMsg:
		if msg.err != nil {
			m.calc, m.calcErr = "", msg.err.Error()
			return m, nil
		}
		m.calcErr = ""
		m.calc = fmt.Sprintf("%.2f tael: gold NT$%.0f + workmanship NT$%.0f = NT$%.0f",
			msg.result.RequestedWeight, msg.result.Breakdown.GoldValueTWD,
			msg.result.Breakdown.FeeTWD, msg.result.TotalPriceTWD)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func metalRows(all domain.AllMetalPrices) []table.Row {
	rows := make([]table.Row, 0, len(domain.Metals))
	for _, kind := range domain.Metals {
		snap, ok := all.Metals[kind]
		if !ok {
			continue
		}
		rows = append(rows, table.Row{
			string(kind),
			strconv.FormatFloat(snap.Price, 'f', 2, 64),
			fmt.Sprintf("%+.2f", snap.Change),
			fmt.Sprintf("%+.2f", snap.ChangePercent),
			string(snap.Source),
		})
	}
	return rows
}

func sourceLabel(s domain.QuoteSource) string {
	if s == domain.SourceFallback {
		return fallbackStyle.Render(string(s))
	}
	return string(s)
}

func (m *Model) View() string {
	var b strings.Builder

	header := titleStyle.Render("BillyGold price board")
	if m.username != "" {
		header += subtleStyle.Render("  " + m.username)
	}
	b.WriteString(header + "\n\n")

	if m.loading && len(m.all.Metals) == 0 {
		b.WriteString(m.spinner.View() + " loading quotes...\n")
		return b.String()
	}

	cur := m.current
	b.WriteString(panelStyle.Render(fmt.Sprintf(
		"Gold  $%.2f/oz (%s)\nUSD/TWD  %.3f (%s)\nPer tael  NT$%.0f",
		cur.Gold.Value, sourceLabel(cur.Gold.Source),
		cur.ExchangeRate.Value, sourceLabel(cur.ExchangeRate.Source),
		cur.PricePerTaelTWD,
	)))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	if m.loading {
		b.WriteString(m.spinner.View() + " refreshing\n")
	} else if !m.all.Timestamp.IsZero() {
		b.WriteString(subtleStyle.Render("updated "+m.all.Timestamp.Local().Format("15:04:05")) + "\n")
	}

	if m.input.Focused() {
		b.WriteString("\n" + m.input.View() + "\n")
	}
	if m.calc != "" {
		b.WriteString("\n" + m.calc + "\n")
	}
	if m.calcErr != "" {
		b.WriteString("\n" + errorStyle.Render(m.calcErr) + "\n")
	}

	b.WriteString("\n" + subtleStyle.Render("r refresh • c calculate • esc cancel • q quit"))
	return b.String()
}
