package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/w3gas/internal/gas"
)

// CalcFunc runs one calculation.
type CalcFunc func(ctx context.Context) (*gas.Report, error)

// CalcDoneMsg carries the outcome of a calculation.
type CalcDoneMsg struct {
	Report *gas.Report
	Err    error
}

type calcTickMsg struct{}

// CalcModel is the Bubble Tea model behind `calc --live`: a spinner while
// the explorer is queried, then the report.
type CalcModel struct {
	Title string

	run     CalcFunc
	ctx     context.Context
	cancel  context.CancelFunc
	started time.Time

	Frame    int
	Report   *gas.Report
	Err      error
	Done     bool
	Quitting bool
}

// NewCalcModel returns a model that runs fn when the program starts.
// Quitting early cancels ctx for fn.
func NewCalcModel(ctx context.Context, title string, fn CalcFunc) CalcModel {
	ctx, cancel := context.WithCancel(ctx)
	return CalcModel{Title: title, run: fn, ctx: ctx, cancel: cancel, started: time.Now()}
}

func calcSpinTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return calcTickMsg{}
	})
}

func (m CalcModel) calculate() tea.Msg {
	r, err := m.run(m.ctx)
	return CalcDoneMsg{Report: r, Err: err}
}

func (m CalcModel) Init() tea.Cmd {
	return tea.Batch(calcSpinTick(), m.calculate)
}

func (m CalcModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			if !m.Done {
				m.Err = context.Canceled
			}
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case calcTickMsg:
		if m.Done {
			return m, nil
		}
		m.Frame++
		return m, calcSpinTick()

	case CalcDoneMsg:
		m.Done = true
		m.Report = msg.Report
		m.Err = msg.Err
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m CalcModel) View() string {
	if m.Quitting && !m.Done {
		return Meta("cancelled") + "\n"
	}
	if m.Err != nil {
		return Err(m.Err.Error()) + "\n"
	}
	if m.Done {
		return ReportBlock(m.Report)
	}
	frame := StyleChain.Render(spinnerFrames[m.Frame%len(spinnerFrames)])
	elapsed := time.Since(m.started).Round(100 * time.Millisecond)
	return fmt.Sprintf("%s  %s %s\n%s\n", frame, m.Title, Meta(elapsed.String()), Hint("q to cancel"))
}
