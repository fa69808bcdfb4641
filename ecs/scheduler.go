package ecs

import (
	"context"
	"time"
)

// SchedulerStats is a snapshot of frame timing across all systems.
type SchedulerStats struct {
	Frames          int64
	SystemCount     int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats is a snapshot of one system's timing and membership.
type SystemStats struct {
	Name           string
	Enabled        bool
	Members        int
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

// systemTimer accumulates the durations of one system's enabled updates.
type systemTimer struct {
	name  string
	runs  int64
	min   time.Duration
	max   time.Duration
	total time.Duration
	last  time.Duration
}

func (t *systemTimer) record(d time.Duration) {
	if t.runs == 0 || d < t.min {
		t.min = d
	}
	t.max = max(t.max, d)
	t.total += d
	t.last = d
	t.runs++
}

func (t *systemTimer) snapshot(b *Base) SystemStats {
	s := SystemStats{
		Name:           t.name,
		Enabled:        b.Enabled(),
		Members:        b.Len(),
		ExecutionCount: t.runs,
		MinDuration:    t.min,
		MaxDuration:    t.max,
		LastDuration:   t.last,
		TotalDuration:  t.total,
	}
	if t.runs > 0 {
		s.AvgDuration = t.total / time.Duration(t.runs)
	}
	return s
}

// Update runs every system once, in registration order, then flushes the
// command buffer. Disabled systems are skipped and not timed.
func (w *World) Update(elapsed float64) {
	for i, system := range w.systems {
		b := system.base()
		if !b.Enabled() {
			continue
		}

		start := time.Now()
		b.Update(elapsed)
		w.timers[i].record(time.Since(start))
	}

	w.commands.Flush(w)
	w.frames++
}

// Run calls Update every interval, passing the measured time since the previous
// tick, until ctx is cancelled.
func (w *World) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.Update(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Stats returns a snapshot of system timings.
func (w *World) Stats() *SchedulerStats {
	stats := &SchedulerStats{
		Frames:      w.frames,
		SystemCount: len(w.systems),
		Systems:     make([]SystemStats, len(w.timers)),
	}
	for i, timer := range w.timers {
		stats.Systems[i] = timer.snapshot(w.systems[i].base())
		stats.TotalExecutions += timer.runs
	}
	return stats
}
