package sqp

import (
	"fmt"
	"strings"
	"time"
)

// phase names the four timed regions of one Solve, per spec.md section
// 4.8 step 6 and section 6's "benchmarking report" output.
type phase int

const (
	phaseAssembly phase = iota
	phaseQP
	phaseLineSearch
	phaseController
	numPhases
)

func (p phase) String() string {
	switch p {
	case phaseAssembly:
		return "assembly"
	case phaseQP:
		return "qp"
	case phaseLineSearch:
		return "lineSearch"
	case phaseController:
		return "controller"
	default:
		return "unknown"
	}
}

// Benchmark is the per-phase timing report of one Solve: total and
// average milliseconds per phase, and each phase's percent of total.
type Benchmark struct {
	Total    time.Duration
	Phases   [numPhases]time.Duration
	Counts   [numPhases]int
}

// Report renders the textual table named in spec.md section 6.
func (b Benchmark) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "phase       total(ms)  avg(ms)  pct\n")
	for p := phase(0); p < numPhases; p++ {
		total := b.Phases[p]
		count := b.Counts[p]
		avg := time.Duration(0)
		if count > 0 {
			avg = total / time.Duration(count)
		}
		pct := 0.0
		if b.Total > 0 {
			pct = 100 * float64(total) / float64(b.Total)
		}
		fmt.Fprintf(&sb, "%-10s  %9.3f  %7.3f  %5.1f\n", p.String(), total.Seconds()*1000, avg.Seconds()*1000, pct)
	}
	return sb.String()
}

type benchmarkAccumulator struct {
	phases [numPhases]time.Duration
	counts [numPhases]int
}

func newBenchmarkAccumulator() *benchmarkAccumulator {
	return &benchmarkAccumulator{}
}

func (b *benchmarkAccumulator) add(p phase, d time.Duration) {
	b.phases[p] += d
	b.counts[p]++
}

func (b *benchmarkAccumulator) finish() Benchmark {
	var total time.Duration
	for _, d := range b.phases {
		total += d
	}
	return Benchmark{Total: total, Phases: b.phases, Counts: b.counts}
}
