// Package bench provides benchmarking primitives for the nbtok bench command.
package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/example/go-nbtok/internal/tokenizer"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing and throughput of a single tokenize run.
type RunResult struct {
	Index        int
	Cold         bool // true for the first run (cold-start)
	Duration     time.Duration
	Tokens       int
	Bytes        int
	TokensPerSec float64
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
// An empty slice yields zero Stats.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}
		if d > mx {
			mx = d
		}
		sum += d
	}
	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// Durations extracts the run durations, optionally skipping the cold run.
func Durations(runs []RunResult, skipCold bool) []time.Duration {
	out := make([]time.Duration, 0, len(runs))
	for _, r := range runs {
		if skipCold && r.Cold && len(runs) > 1 {
			continue
		}
		out = append(out, r.Duration)
	}
	return out
}

// ---------------------------------------------------------------------------
// Running
// ---------------------------------------------------------------------------

// Run tokenizes text n times with tok and records each run. The first run is
// marked cold.
func Run(tok tokenizer.Tokenizer, text string, n int) []RunResult {
	runs := make([]RunResult, 0, n)
	for i := range n {
		start := time.Now()
		tokens := tok.Tokenize(text)
		d := time.Since(start)

		runs = append(runs, RunResult{
			Index:        i,
			Cold:         i == 0,
			Duration:     d,
			Tokens:       len(tokens),
			Bytes:        len(text),
			TokensPerSec: CalcThroughput(len(tokens), d),
		})
	}
	return runs
}

// ---------------------------------------------------------------------------
// Throughput helpers
// ---------------------------------------------------------------------------

// CalcThroughput returns tokens per second. Returns 0 if d is zero to avoid
// division by zero.
func CalcThroughput(tokens int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(tokens) / d.Seconds()
}

// MeanThroughput averages TokensPerSec over runs, skipping the cold run when
// there is more than one.
func MeanThroughput(runs []RunResult) float64 {
	var (
		sum float64
		n   int
	)
	for _, r := range runs {
		if r.Cold && len(runs) > 1 {
			continue
		}
		sum += r.TokensPerSec
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// ---------------------------------------------------------------------------
// Throughput threshold gate
// ---------------------------------------------------------------------------

// CheckThroughputThreshold returns an error if meanTPS < minTPS.
// A threshold of 0 disables the gate.
func CheckThroughputThreshold(meanTPS, minTPS float64) error {
	if minTPS <= 0 {
		return nil
	}
	if meanTPS < minTPS {
		return fmt.Errorf("mean throughput %.0f tokens/s is below threshold %.0f", meanTPS, minTPS)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %8s  %14s\n", "Run", "Cold", "MS", "Tokens", "Tokens/s")
	fmt.Fprintln(sb, strings.Repeat("-", 50))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		fmt.Fprintf(sb, "%-5d  %-5s  %10.3f  %8d  %14.0f\n",
			r.Index+1,
			cold,
			ms(r.Duration),
			r.Tokens,
			r.TokensPerSec,
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 50))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  %8s  %14s  (min)\n", "", "", ms(stats.Min), "", "")
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  %8s  %14s  (mean)\n", "", "", ms(stats.Mean), "", "")
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  %8s  %14s  (max)\n", "", "", ms(stats.Max), "", "")

	fmt.Fprint(w, sb.String())
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index        int     `json:"index"`
	Cold         bool    `json:"cold"`
	DurationMS   float64 `json:"duration_ms"`
	Tokens       int     `json:"tokens"`
	Bytes        int     `json:"bytes"`
	TokensPerSec float64 `json:"tokens_per_sec"`
}

type jsonStats struct {
	MinMS            float64 `json:"min_ms"`
	MeanMS           float64 `json:"mean_ms"`
	MaxMS            float64 `json:"max_ms"`
	MeanTokensPerSec float64 `json:"mean_tokens_per_sec"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:            ms(stats.Min),
			MeanMS:           ms(stats.Mean),
			MaxMS:            ms(stats.Max),
			MeanTokensPerSec: MeanThroughput(runs),
		},
	}
	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:        r.Index,
			Cold:         r.Cold,
			DurationMS:   ms(r.Duration),
			Tokens:       r.Tokens,
			Bytes:        r.Bytes,
			TokensPerSec: r.TokensPerSec,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(jr)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
