package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattxander12/forex-trader/internal/backtest/engine"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
)

// Application states.
const (
	StateJobInput = iota
	StateStreaming
	StateFinished
)

// Model is the Bubble Tea model of the job watcher.
type Model struct {
	state    int
	server   string
	jobID    string
	jobInput textinput.Model
	trades   table.Model
	progress progress.Model

	rows    []table.Row
	phase   string
	percent float64
	result  *engine.ResultPayload
	failure *engine.ErrorPayload
	err     error
	width   int
	height  int

	streamCancel context.CancelFunc
	program      *tea.Program
}

// NewModel creates a watcher for server. With a job id it starts streaming
// right away, otherwise it asks for one.
func NewModel(server, jobID string) Model {
	m := Model{
		state:    StateJobInput,
		server:   server,
		jobInput: NewJobInput(),
		trades:   NewTradesTable(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}

	if jobID != "" {
		m.jobID = jobID
		m.state = StateStreaming
		m.jobInput.Blur()
	}

	return m
}

// SetProgram sets the tea.Program reference for sending messages from goroutines.
func (m *Model) SetProgram(p *tea.Program) {
	m.program = p
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.state == StateStreaming && m.program != nil {
		return m.startStreaming()
	}

	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.stop()

			return m, tea.Quit
		case "q":
			if m.state != StateJobInput {
				m.stop()

				return m, tea.Quit
			}
		case "esc":
			return m.handleEsc()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.trades.SetWidth(msg.Width)
		m.trades.SetHeight(max(5, msg.Height-16))

		return m, nil

	case StreamConnectingMsg:
		if m.streamCancel != nil {
			m.streamCancel()
		}

		m.streamCancel = msg.Cancel

		return m, nil

	case StreamStartedMsg:
		m.err = nil

		return m, nil

	case StreamErrorMsg:
		m.err = msg.Err

		return m, nil

	case StreamClosedMsg:
		m.state = StateFinished

		return m, nil

	case EventMsg:
		return m.handleEvent(msg.Frame), nil
	}

	switch m.state {
	case StateJobInput:
		return m.updateJobInput(msg)
	default:
		var cmd tea.Cmd
		m.trades, cmd = m.trades.Update(msg)

		return m, cmd
	}
}

func (m *Model) stop() {
	if m.streamCancel != nil {
		m.streamCancel()
		m.streamCancel = nil
	}
}

func (m Model) handleEsc() (tea.Model, tea.Cmd) {
	if m.state == StateJobInput {
		return m, nil
	}

	m.stop()
	m.state = StateJobInput
	m.jobID = ""
	m.rows = nil
	m.phase = ""
	m.percent = 0
	m.result = nil
	m.failure = nil
	m.err = nil
	m.trades.SetRows(nil)
	m.jobInput.Reset()
	m.jobInput.Focus()

	return m, textinput.Blink
}

func (m Model) updateJobInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		if jobID := strings.TrimSpace(m.jobInput.Value()); jobID != "" {
			m.jobID = jobID
			m.state = StateStreaming
			m.jobInput.Blur()

			return m, m.startStreaming()
		}
	}

	var cmd tea.Cmd
	m.jobInput, cmd = m.jobInput.Update(msg)

	return m, cmd
}

// handleEvent folds a stream frame into the model. Frames that cannot be
// decoded are ignored.
func (m Model) handleEvent(frame Frame) Model {
	switch frame.Name {
	case types.EventProgress:
		var p struct {
			Phase string `json:"phase"`
			I     int    `json:"i"`
			Of    int    `json:"of"`
		}

		if json.Unmarshal(frame.Payload, &p) != nil {
			return m
		}

		if p.Phase != "" {
			m.phase = p.Phase
		}

		if p.Phase == engine.PhaseLoop && p.Of > 0 {
			m.percent = min(1, float64(p.I)/float64(p.Of))
		}
	case types.EventTrade:
		var trade engine.TradePayload
		if json.Unmarshal(frame.Payload, &trade) != nil {
			return m
		}

		m.rows = append(m.rows, TradeRow(trade))
		m.trades.SetRows(m.rows)
		m.trades.GotoBottom()
	case types.EventResult:
		var result engine.ResultPayload
		if json.Unmarshal(frame.Payload, &result) != nil {
			return m
		}

		m.result = &result
		m.percent = 1
	case types.EventError:
		var failure engine.ErrorPayload
		if json.Unmarshal(frame.Payload, &failure) != nil {
			return m
		}

		m.failure = &failure
	case types.EventDone:
		m.state = StateFinished
	}

	return m
}

// startStreaming returns a command that connects to the job stream.
func (m Model) startStreaming() tea.Cmd {
	program := m.program
	server := m.server
	jobID := m.jobID

	return func() tea.Msg {
		if program == nil {
			return StreamErrorMsg{Err: errors.New(errors.ErrCodeInvalidParameter, "program not set")}
		}

		streamURL, err := StreamURL(server, jobID)
		if err != nil {
			return StreamErrorMsg{Err: err}
		}

		ctx, cancel := context.WithCancel(context.Background())
		go streamJob(ctx, streamURL, func(msg any) { program.Send(msg) })

		return StreamConnectingMsg{Cancel: cancel}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	switch m.state {
	case StateJobInput:
		s.WriteString(TitleStyle.Render("Forex Trader - Watch Job"))
		s.WriteString("\n\n")
		fmt.Fprintf(&s, "Server: %s\n\n", m.server)
		s.WriteString(m.jobInput.View())
		s.WriteString("\n\n")
		s.WriteString(HelpStyle.Render("Press Enter to watch, ctrl+c to quit"))

	default:
		title := "Job " + m.jobID
		if m.state == StateFinished {
			title += " (finished)"
		}

		s.WriteString(TitleStyle.Render(title))
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		if m.failure != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Run failed [%d]: %s", m.failure.Code, m.failure.Message)))
			s.WriteString("\n\n")
		}

		phase := m.phase
		if phase == "" {
			phase = "waiting"
		}

		fmt.Fprintf(&s, "Phase: %s  %s\n\n", phase, m.progress.ViewAs(m.percent))

		if len(m.rows) == 0 {
			s.WriteString("No trades yet\n")
		} else {
			s.WriteString(m.trades.View())
			s.WriteString("\n")
		}

		if m.result != nil {
			s.WriteString("\n")
			s.WriteString(RenderResult(*m.result))
		}

		s.WriteString("\n")
		s.WriteString(HelpStyle.Render(fmt.Sprintf("q: quit | Esc: watch another job | %d trades", len(m.rows))))
	}

	return s.String()
}
