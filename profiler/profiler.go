// Package profiler times the stages of a processing run.
package profiler

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// StageStats is a snapshot of the timings recorded for one stage.
type StageStats struct {
	Name  string
	Count int64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Avg returns the mean duration, or 0 when nothing was recorded.
func (s StageStats) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// timeTracker tracks operation timing statistics.
type timeTracker struct {
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// StageProfiler accumulates per-stage durations for one run.
//
// It is safe for concurrent use, though a run records from a single goroutine.
type StageProfiler struct {
	mu        sync.Mutex
	startTime time.Time
	now       func() time.Time
	stages    map[string]*timeTracker
	// observe, when set, receives every recorded duration.
	observe func(stage string, d time.Duration)
}

// New creates a profiler whose uptime starts now.
func New() *StageProfiler {
	return &StageProfiler{
		startTime: time.Now(),
		now:       time.Now,
		stages:    make(map[string]*timeTracker),
	}
}

// OnRecord registers fn to receive every recorded stage duration, e.g. to
// feed a histogram.
func (p *StageProfiler) OnRecord(fn func(stage string, d time.Duration)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observe = fn
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the stage to track
//
// Returns:
// - A function to call when the operation completes
func (p *StageProfiler) StartOperation(name string) func() {
	start := p.now()
	return func() {
		p.Record(name, p.now().Sub(start))
	}
}

// Record adds one duration to a stage.
func (p *StageProfiler) Record(name string, d time.Duration) {
	p.mu.Lock()
	tracker, exists := p.stages[name]
	if !exists {
		tracker = &timeTracker{minTime: d, maxTime: d}
		p.stages[name] = tracker
	}
	tracker.totalTime += d
	tracker.count++
	if d < tracker.minTime {
		tracker.minTime = d
	}
	if d > tracker.maxTime {
		tracker.maxTime = d
	}
	observe := p.observe
	p.mu.Unlock()

	if observe != nil {
		observe(name, d)
	}
}

// Snapshot returns the statistics of every stage, sorted by name.
func (p *StageProfiler) Snapshot() []StageStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]StageStats, 0, len(p.stages))
	for name, t := range p.stages {
		out = append(out, StageStats{
			Name:  name,
			Count: t.count,
			Total: t.totalTime,
			Min:   t.minTime,
			Max:   t.maxTime,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Report logs one line per stage plus a memory summary.
func (p *StageProfiler) Report(logger logrus.FieldLogger) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	logger.WithFields(logrus.Fields{
		"uptime":     p.now().Sub(p.startTime).Truncate(time.Millisecond).String(),
		"heap_alloc": formatBytes(mem.HeapAlloc),
		"sys":        formatBytes(mem.Sys),
		"gc_cycles":  mem.NumGC,
	}).Debug("profiler summary")

	for _, s := range p.Snapshot() {
		logger.WithFields(logrus.Fields{
			"stage": s.Name,
			"avg":   s.Avg().Truncate(time.Microsecond).String(),
			"min":   s.Min.Truncate(time.Microsecond).String(),
			"max":   s.Max.Truncate(time.Microsecond).String(),
			"count": s.Count,
		}).Debug("stage timing")
	}
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
