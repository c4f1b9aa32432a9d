// Package progress renders one terminal progress bar per pipeline stage.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/gosuri/uiprogress"
)

// Bars lazily adds a bar the first time a stage reports progress.
type Bars struct {
	mu      sync.Mutex
	p       *uiprogress.Progress
	bars    map[string]*uiprogress.Bar
	started bool
}

// New returns bars drawn to out.
func New(out io.Writer) *Bars {
	p := uiprogress.New()
	p.SetOut(out)
	return &Bars{p: p, bars: make(map[string]*uiprogress.Bar)}
}

// Update moves the bar of stage to done out of total. It matches the
// pipeline's progress callback signature.
func (b *Bars) Update(stage string, done, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		b.p.Start()
		b.started = true
	}
	bar, ok := b.bars[stage]
	if !ok || bar.Total != total {
		bar = b.p.AddBar(total)
		label := fmt.Sprintf("%-10s", stage)
		bar.PrependFunc(func(*uiprogress.Bar) string { return label })
		bar.AppendCompleted()
		bar.PrependElapsed()
		b.bars[stage] = bar
	}
	if done > total {
		done = total
	}
	_ = bar.Set(done)
}

// Current returns how far the bar of stage has moved.
func (b *Bars) Current(stage string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bar, ok := b.bars[stage]; ok {
		return bar.Current()
	}
	return 0
}

// Stop flushes and stops rendering.
func (b *Bars) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		b.p.Stop()
		b.started = false
	}
}
