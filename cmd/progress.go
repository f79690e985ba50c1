package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/seca-audit/internal/domain/check"
	"github.com/khanhnv2901/seca-audit/internal/infrastructure/events"
)

type progressPrinter struct {
	out       io.Writer
	total     int
	name      string
	mu        sync.Mutex
	ok        int
	fail      int
	duration  float64
	updates   chan struct{}
	done      chan struct{}
	exited    chan struct{}
	following chan struct{}
	started   bool
	stopOnce  sync.Once
}

func newProgressPrinter(out io.Writer, total int, name string) *progressPrinter {
	if total <= 0 {
		total = 1
	}
	return &progressPrinter{
		out:     out,
		total:   total,
		name:    name,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
}

func (p *progressPrinter) Start() {
	p.started = true
	go p.loop()
}

func (p *progressPrinter) Increment(success bool, duration float64) {
	p.mu.Lock()
	if success {
		p.ok++
	} else {
		p.fail++
	}
	p.duration += duration
	p.mu.Unlock()

	select {
	case p.updates <- struct{}{}:
	default:
	}
}

// Follow sizes the bar from check_started events and counts the matching
// check_finished events until the channel closes or the printer stops.
// Runs that began before the subscription are ignored. On Stop, events already
// buffered in feed are still counted.
func (p *progressPrinter) Follow(feed <-chan events.Event) {
	p.following = make(chan struct{})
	go func() {
		defer close(p.following)
		started := make(map[string]bool)
		handle := func(ev events.Event) {
			switch ev.Type {
			case events.CheckStarted:
				if !started[ev.Kind] {
					started[ev.Kind] = true
					p.expect(len(started))
				}
			case events.CheckFinished:
				if started[ev.Kind] {
					p.Increment(!check.CheckStatus(ev.Status).Problem(), ev.DurationSeconds)
				}
			}
		}
		for {
			select {
			case ev, ok := <-feed:
				if !ok {
					return
				}
				handle(ev)
			case <-p.done:
				for {
					select {
					case ev, ok := <-feed:
						if !ok {
							return
						}
						handle(ev)
					default:
						return
					}
				}
			}
		}
	}()
}

func (p *progressPrinter) expect(total int) {
	p.mu.Lock()
	p.total = total
	p.mu.Unlock()
}

func (p *progressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	if p.started {
		<-p.exited
	}
	if p.following != nil {
		<-p.following
	}
	fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 80))
	p.print()
	fmt.Fprintln(p.out)
}

func (p *progressPrinter) loop() {
	defer close(p.exited)
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.updates:
			p.print()
		case <-ticker.C:
			p.print()
		case <-p.done:
			return
		}
	}
}

func (p *progressPrinter) print() {
	p.mu.Lock()
	defer p.mu.Unlock()

	completed := p.ok + p.fail
	if completed > p.total {
		p.total = completed
	}

	percent := (float64(completed) / float64(p.total)) * 100
	avg := 0.0
	if completed > 0 {
		avg = p.duration / float64(completed)
	}

	fmt.Fprintf(p.out, "\r[%s] Progress: %d/%d (%.1f%%) OK:%d Problems:%d Avg:%.2fs",
		p.name, completed, p.total, percent, p.ok, p.fail, avg)
}
