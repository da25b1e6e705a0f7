package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/legalize/pkg/legalize"
)

func TestAnnealModelProgress(t *testing.T) {
	m := NewAnnealModel("toy", nil)
	if view := m.View(); !strings.Contains(view, "placing cells") {
		t.Errorf("initial view = %q", view)
	}

	next, cmd := m.Update(progressMsg(legalize.Progress{
		Elapsed:   30 * time.Second,
		Budget:    time.Minute,
		Iteration: 4,
		Phase:     "global",
		Best:      17.25,
	}))
	if cmd != nil {
		t.Error("progress update returned a command")
	}
	view := next.View()
	for _, want := range []string{"Legalizing toy", "50%", "global", "17.25"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestAnnealModelStop(t *testing.T) {
	calls := 0
	m := NewAnnealModel("toy", func() { calls++ })

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if got, want := calls, 1; got != want {
		t.Errorf("cancel calls = %d, want %d", got, want)
	}
	if !next.(AnnealModel).Stopped {
		t.Error("model not marked stopped")
	}

	final, cmd := next.Update(doneMsg{err: errors.New("boom")})
	if cmd == nil {
		t.Fatal("done did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("done command is not tea.Quit")
	}
	if final.(AnnealModel).err == nil {
		t.Error("error not recorded")
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		fraction float64
		filled   int
	}{
		{0, 0},
		{0.5, 5},
		{1, 10},
		{1.5, 10},
		{-1, 0},
	}
	for _, tt := range tests {
		bar := progressBar(tt.fraction, 10)
		if got, want := lipgloss.Width(bar), 10; got != want {
			t.Errorf("progressBar(%g) width = %d, want %d", tt.fraction, got, want)
		}
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("progressBar(%g) filled = %d, want %d", tt.fraction, got, tt.filled)
		}
	}
}
