package legalize

import (
	"math/rand/v2"
	"time"
)

// Clock supplies the current time to the annealing deadline and the progress
// reporter. Implementations must be safe for concurrent use when
// Config.Workers > 1, because cluster passes sample the deadline in parallel.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Rand is the random source driving proposal selection and Metropolis
// acceptance. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// NewRand returns the default seeded source: a PCG generator.
func NewRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

// Progress is a snapshot handed to a Reporter.
type Progress struct {
	Elapsed   time.Duration
	Budget    time.Duration
	Iteration int     // completed outer iterations
	Phase     string  // "cluster", "global" or "done"
	Best      float64 // best-known total displacement
}

// Fraction returns the elapsed share of the budget, clamped to [0, 1].
func (p Progress) Fraction() float64 {
	if p.Budget <= 0 {
		return 1
	}
	return min(1, max(0, float64(p.Elapsed)/float64(p.Budget)))
}

// Reporter receives annealing progress at a fixed cadence. Reporting never
// influences the search.
type Reporter interface {
	Report(Progress)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Progress)

// Report calls f(p).
func (f ReporterFunc) Report(p Progress) { f(p) }

type nopReporter struct{}

func (nopReporter) Report(Progress) {}

// ticker gates reports to one per interval of clock time.
type ticker struct {
	clock Clock
	every time.Duration
	last  time.Time
}

func (t *ticker) due() bool {
	now := t.clock.Now()
	if now.Sub(t.last) < t.every {
		return false
	}
	t.last = now
	return true
}

// passSeed derives an independent seed for one anneal pass so that results do
// not depend on how many workers run the cluster passes.
func passSeed(base uint64, iteration, scope int) uint64 {
	x := base ^ uint64(iteration)*0x9e3779b97f4a7c15 ^ uint64(scope+1)*0xbf58476d1ce4e5b9
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
