package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Progress tracks and displays batch progress on a single terminal line.
type Progress struct {
	startTime time.Time
	output    io.Writer
	unit      string
	total     int
	completed int
	failed    int
	mu        sync.RWMutex
	enabled   bool
}

// NewProgress creates a progress tracker counting textures.
func NewProgress(total int, enabled bool) *Progress {
	return NewProgressUnit(total, enabled, "textures")
}

// NewProgressUnit creates a progress tracker with a custom unit label.
func NewProgressUnit(total int, enabled bool, unit string) *Progress {
	return &Progress{
		total:     total,
		startTime: time.Now(),
		output:    os.Stderr,
		unit:      unit,
		enabled:   enabled,
	}
}

// Update records the completion of a task.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.completed = completed
	p.total = total
	p.failed = failed
	p.mu.Unlock()

	if p.enabled {
		p.Print()
	}
}

// Callback returns a ProgressFunc suitable for use with Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

type snapshot struct {
	start     time.Time
	total     int
	completed int
	failed    int
}

func (p *Progress) snapshot() snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return snapshot{start: p.startTime, total: p.total, completed: p.completed, failed: p.failed}
}

// Print displays the current progress to output.
func (p *Progress) Print() {
	s := p.snapshot()
	elapsed := time.Since(s.start)

	var rate float64
	var eta time.Duration
	if s.completed > 0 {
		rate = float64(s.completed) / elapsed.Seconds()
		if rate > 0 {
			eta = time.Duration(float64(s.total-s.completed)/rate) * time.Second
		}
	}

	filled := 0
	if s.total > 0 {
		filled = s.completed * barWidth / s.total
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	var b strings.Builder
	fmt.Fprintf(&b, "\r[%s] %d/%d %s", bar, s.completed, s.total, p.unit)
	if s.failed > 0 {
		fmt.Fprintf(&b, " (%d failed)", s.failed)
	}
	fmt.Fprintf(&b, " - %.1f %s/sec", rate, p.unit)
	if eta > 0 && s.completed < s.total {
		fmt.Fprintf(&b, " - ETA: %s", formatDuration(eta))
	}
	if s.completed == s.total {
		fmt.Fprintf(&b, " - Done in %s", formatDuration(elapsed))
	}
	// Pad to clear previous line content
	b.WriteString("          ")

	fmt.Fprint(p.output, b.String())
}

// Done prints the final progress and a newline.
func (p *Progress) Done() {
	if p.enabled {
		p.Print()
		fmt.Fprintln(p.output)
	}
}

// Summary returns a summary string of the completed work.
func (p *Progress) Summary() string {
	s := p.snapshot()
	elapsed := time.Since(s.start)

	var rate float64
	if elapsed.Seconds() > 0 {
		rate = float64(s.completed) / elapsed.Seconds()
	}

	return fmt.Sprintf("Generated %d/%d %s (%d failed) in %s (%.1f %s/sec)",
		s.completed-s.failed, s.total, p.unit, s.failed, formatDuration(elapsed), rate, p.unit)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
