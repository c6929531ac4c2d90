package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Elapsed time is shown once a wait passes this threshold.
const slowWaitThreshold = time.Second

type waitResultMsg[T any] struct {
	value T
	err   error
}

type waitModel[T any] struct {
	spinner spinner.Model
	label   string
	hint    lipgloss.Style
	started time.Time
	now     func() time.Time
	work    tea.Cmd
	result  *waitResultMsg[T]
}

func (m waitModel[T]) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.work)
}

func (m waitModel[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case waitResultMsg[T]:
		m.result = &msg
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m waitModel[T]) View() string {
	if m.result != nil {
		return ""
	}

	line := m.spinner.View() + " " + m.label
	if elapsed := m.now().Sub(m.started); elapsed >= slowWaitThreshold {
		line += " " + m.hint.Render(fmt.Sprintf("(%ds)", int(elapsed.Seconds())))
	}
	return line
}

// waitWithSpinner animates label on output while work runs and returns its
// result. The line is cleared when work finishes.
func waitWithSpinner[T any](ctx context.Context, output io.Writer, label string, work func(context.Context) (T, error)) (T, error) {
	var zero T

	model := waitModel[T]{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("212"))),
		),
		label:   label,
		hint:    lipgloss.NewStyle().Faint(true),
		started: time.Now(),
		now:     time.Now,
		work: func() tea.Msg {
			value, err := work(ctx)
			return waitResultMsg[T]{value: value, err: err}
		},
	}

	final, err := tea.NewProgram(model,
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	).Run()
	if err != nil {
		return zero, err
	}

	done, ok := final.(waitModel[T])
	if !ok || done.result == nil {
		return zero, fmt.Errorf("spinner ended without a result (%T)", final)
	}
	return done.result.value, done.result.err
}
