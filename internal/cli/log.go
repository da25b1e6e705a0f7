package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/legalize/pkg/legalize"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Legalized adaptec1 (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// logReporter logs annealing progress. The legalizer already limits reports
// to one per ReportEvery.
func logReporter(l *log.Logger) legalize.Reporter {
	return legalize.ReporterFunc(func(p legalize.Progress) {
		l.Info("annealing",
			"phase", p.Phase,
			"iteration", p.Iteration,
			"best", p.Best,
			"elapsed", p.Elapsed.Round(time.Second),
			"budget", p.Budget)
	})
}
