package ui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// doneMsg carries the result of the background task into the program
type doneMsg struct{ err error }

// SpinnerModel is a Bubble Tea model that shows a spinner until a value
// arrives on its done channel.
type SpinnerModel struct {
	spinner   spinner.Model
	label     string
	done      <-chan error
	err       error
	finished  bool
	cancelled bool
}

// NewSpinnerModel creates a spinner labelled label that quits when done
// yields.
func NewSpinnerModel(label string, done <-chan error) SpinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return SpinnerModel{spinner: s, label: label, done: done}
}

func waitFor(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{err: <-done}
	}
}

// Init implements tea.Model
func (m SpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitFor(m.done))
}

// Update implements tea.Model
func (m SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancelled = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m SpinnerModel) View() string {
	if m.finished || m.cancelled {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.label)
}

// Err returns the task error once finished
func (m SpinnerModel) Err() error {
	return m.err
}

// Cancelled reports whether the user quit before the task finished
func (m SpinnerModel) Cancelled() bool {
	return m.cancelled
}

// RunWithSpinner runs task while a spinner is shown on out. When out is
// not a terminal the task simply runs. Quitting the spinner cancels the
// task's context and returns context.Canceled.
func RunWithSpinner(ctx context.Context, out io.Writer, label string, task func(ctx context.Context) error) error {
	if !IsTerminal(out) {
		return task(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- task(ctx)
	}()

	final, err := tea.NewProgram(NewSpinnerModel(label, done), tea.WithOutput(out), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("spinner failed: %w", err)
	}

	// The deferred cancel stops a task the user quit on.
	m := final.(SpinnerModel)
	if m.Cancelled() {
		return context.Canceled
	}
	return m.Err()
}
