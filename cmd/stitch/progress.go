package main

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// progressTracker reports how many items of a job have finished.
type progressTracker struct {
	writer    io.Writer
	total     int
	current   int
	reported  int
	startTime time.Time
	started   bool
	now       func() time.Time
	mu        sync.Mutex
}

func newProgressTracker(writer io.Writer) *progressTracker {
	return &progressTracker{writer: writer, reported: -1, now: time.Now}
}

// Start begins tracking total items.
func (p *progressTracker) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = p.now()
	p.started = true
	p.total = total
	p.current = 0
	p.reported = -1
}

func (p *progressTracker) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// Update sets the number of finished items. Progress is printed only when
// it changes.
func (p *progressTracker) Update(current int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.current = min(current, p.total)
	if p.current != p.reported {
		p.report()
		p.reported = p.current
	}
}

// Finish prints the final progress line.
func (p *progressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// report prints the current progress. Must be called with lock held.
func (p *progressTracker) report() {
	elapsed := p.now().Sub(p.startTime)

	percentage := 100.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}
	fmt.Fprintf(p.writer, "\rItems: %d/%d (%.1f%%) - %s",
		p.current, p.total, percentage, elapsed.Round(time.Millisecond))
}
