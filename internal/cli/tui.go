package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/legalize/pkg/legalize"
	"github.com/matzehuels/legalize/pkg/pipeline"
)

const defaultBarWidth = 40

// progressMsg carries an annealing progress report into the program.
type progressMsg legalize.Progress

// doneMsg ends the program with the pipeline's outcome.
type doneMsg struct {
	res *pipeline.Result
	err error
}

// =============================================================================
// AnnealModel - Live annealing progress
// =============================================================================

// AnnealModel is the bubbletea model for the --tui progress view.
type AnnealModel struct {
	Design   string
	Progress legalize.Progress
	Started  bool
	Stopped  bool // the user asked to stop early
	Width    int

	cancel context.CancelFunc
	res    *pipeline.Result
	err    error
}

// NewAnnealModel creates a progress view for design. cancel is called when
// the user stops the run.
func NewAnnealModel(design string, cancel context.CancelFunc) AnnealModel {
	return AnnealModel{Design: design, Width: defaultBarWidth, cancel: cancel}
}

func (m AnnealModel) Init() tea.Cmd {
	return nil
}

func (m AnnealModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// Annealing stops at its next check and keeps the best
			// placement; the program quits once the pipeline returns.
			if !m.Stopped {
				m.Stopped = true
				if m.cancel != nil {
					m.cancel()
				}
			}
		}
	case tea.WindowSizeMsg:
		m.Width = min(defaultBarWidth, max(10, msg.Width-30))
	case progressMsg:
		m.Progress = legalize.Progress(msg)
		m.Started = true
	case doneMsg:
		m.res, m.err = msg.res, msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m AnnealModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Legalizing " + m.Design))
	b.WriteString("\n\n")

	if !m.Started {
		b.WriteString(StyleDim.Render("  loading and placing cells..."))
		b.WriteString("\n")
		return b.String()
	}

	p := m.Progress
	b.WriteString("  " + progressBar(p.Fraction(), m.Width))
	b.WriteString(fmt.Sprintf(" %3.0f%%\n", 100*p.Fraction()))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %s / %s", p.Elapsed.Round(time.Second), p.Budget)))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  %s %s\n", StyleDim.Render("phase    "), StyleValue.Render(p.Phase)))
	b.WriteString(fmt.Sprintf("  %s %s\n", StyleDim.Render("iteration"), StyleNumber.Render(fmt.Sprint(p.Iteration))))
	b.WriteString(fmt.Sprintf("  %s %s\n", StyleDim.Render("best     "), StyleNumber.Render(formatFloat(p.Best))))
	b.WriteString("\n")
	if m.Stopped {
		b.WriteString(StyleWarning.Render("  stopping, keeping the best placement..."))
	} else {
		b.WriteString(StyleDim.Render("  q stop early and keep the best placement"))
	}
	b.WriteString("\n")
	return b.String()
}

// progressBar renders fraction (0..1) as a bar of width cells.
func progressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = min(width, max(0, filled))
	return StyleNumber.Render(strings.Repeat("█", filled)) +
		StyleDim.Render(strings.Repeat("░", width-filled))
}

// runWithTUI executes the pipeline while a bubbletea program shows annealing
// progress on stderr. Stopping from the view ends annealing early; the run
// still completes and writes its outputs.
func runWithTUI(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	name := opts.Input
	if opts.Design != nil && opts.Design.Name != "" {
		name = opts.Design.Name
	}
	prog := tea.NewProgram(NewAnnealModel(name, cancel), tea.WithOutput(os.Stderr))
	opts.Reporter = legalize.ReporterFunc(func(p legalize.Progress) {
		prog.Send(progressMsg(p))
	})

	out := make(chan doneMsg, 1)
	go func() {
		res, err := runner.Execute(ctx, opts)
		out <- doneMsg{res, err}
		prog.Send(doneMsg{res, err})
	}()

	if _, err := prog.Run(); err != nil {
		cancel()
		<-out
		return nil, fmt.Errorf("progress view: %w", err)
	}
	done := <-out
	return done.res, done.err
}
