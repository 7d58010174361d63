package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/camuig/pankou/internal/changes"
	"github.com/camuig/pankou/internal/clock"
	"github.com/camuig/pankou/internal/grouping"
	"github.com/camuig/pankou/internal/logger"
)

type Fetcher interface {
	FetchChanges(ctx context.Context) ([]changes.Event, error)
}

// Recorder keeps an audit row per fetch attempt.
type Recorder interface {
	RecordFetch(events, sectors int, took time.Duration, fetchErr error) error
}

type Notifier interface {
	NotifyHighlights(hs []grouping.Highlighted)
	NotifyError(context string, err error)
	NotifyStatus(message string)
}

type EmptyPolicy int

const (
	// EmptyKeep leaves the previous view untouched on an empty payload.
	EmptyKeep EmptyPolicy = iota
	// EmptyClear replaces the view with an empty one.
	EmptyClear
)

func ParseEmptyPolicy(s string) EmptyPolicy {
	if s == "clear" {
		return EmptyClear
	}
	return EmptyKeep
}

type Options struct {
	Interval    time.Duration
	EmptyPolicy EmptyPolicy
	Highlight   grouping.HighlightRule
	Recorder    Recorder
	Notifier    Notifier
	Now         func() time.Time
}

const DefaultInterval = 2 * time.Second

type Poller struct {
	fetcher Fetcher
	clock   *clock.Clock
	opts    Options
	logger  *logger.Logger

	mu      sync.RWMutex
	snap    Snapshot
	failing bool

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan Snapshot
}

func New(fetcher Fetcher, clk *clock.Clock, opts Options, log *logger.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Poller{
		fetcher: fetcher,
		clock:   clk,
		opts:    opts,
		logger:  log,
		snap: Snapshot{
			View:    grouping.Empty(),
			Sectors: []string{},
			Status:  StatusLoading,
			State:   StatePolling,
		},
		subs: make(map[int]chan Snapshot),
	}
}

// Run drives the poller until ctx is cancelled. It ticks immediately, then
// every Interval while Polling. On entering Waiting the ticker is stopped
// and a single timer is armed for the next session open; when it fires the
// poller fetches at once and resumes ticking. Both timers are released on
// return.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.logger.Info("poller started", "interval", p.opts.Interval.String())

	wait := p.Tick(ctx)
	for {
		if wait > 0 {
			ticker.Stop()
			wake := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				wake.Stop()
				p.logger.Info("poller stopped")
				return nil
			case <-wake.C:
			}

			p.update(func(s *Snapshot) {
				s.State = StatePolling
				s.NextOpen = time.Time{}
			})
			p.logger.Info("session boundary reached, resuming polling")
			ticker.Reset(p.opts.Interval)
			wait = p.Tick(ctx)
			continue
		}

		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return nil
		case <-ticker.C:
			wait = p.Tick(ctx)
		}
	}
}

// Tick runs one cycle. A positive return value means the market is closed
// with data already loaded and the caller should sleep that long.
func (p *Poller) Tick(ctx context.Context) (wait time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic in poller tick", "panic", fmt.Sprint(r))
			p.notifyError("poller panic", fmt.Errorf("%v", r))
			wait = 0
		}
	}()

	now := p.opts.Now().In(p.clock.Location())
	st := p.clock.State(now)

	p.mu.RLock()
	hasData := p.snap.HasData
	p.mu.RUnlock()

	if !st.Trading && hasData {
		p.update(func(s *Snapshot) {
			s.State = StateWaiting
			s.NextOpen = st.NextOpen
			s.Status = StatusWaiting
		})
		p.logger.Info("market closed, waiting for next session",
			"next_open", st.NextOpen.Format(time.DateTime), "delay", st.Delay.String())
		return st.Delay
	}

	if !hasData {
		p.update(func(s *Snapshot) { s.Status = StatusUpdating })
	}
	p.fetch(ctx, now)
	return 0
}

func (p *Poller) fetch(ctx context.Context, now time.Time) {
	start := time.Now()
	events, err := p.fetcher.FetchChanges(ctx)
	took := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			// shutting down
			return
		}
		p.handleFailure(err)
		p.record(0, 0, took, err)
		return
	}

	if len(events) == 0 {
		p.handleEmpty(now)
		p.record(0, 0, took, nil)
		return
	}

	view := grouping.Build(events, p.opts.Highlight)

	var prev *grouping.View
	var recovered bool
	p.update(func(s *Snapshot) {
		if s.HasData {
			prev = s.View
		}
		recovered = p.failing
		p.failing = false

		s.View = view
		s.Sectors = view.Sectors()
		s.HasData = true
		s.UpdatedAt = now
		s.Status = StatusOK
		s.LastError = ""
		s.State = StatePolling
		s.NextOpen = time.Time{}
	})
	p.logger.Info("changes updated", "events", len(events), "sectors", view.Len(), "took", took.String())
	p.record(len(events), view.Len(), took, nil)

	if recovered {
		p.notifyStatus("数据源已恢复")
	}
	if prev != nil {
		if hs := grouping.NewHighlights(prev, view); len(hs) > 0 && p.opts.Notifier != nil {
			p.opts.Notifier.NotifyHighlights(hs)
		}
	}
}

// handleFailure keeps the previous view; only the status line changes.
func (p *Poller) handleFailure(err error) {
	var first bool
	p.update(func(s *Snapshot) {
		first = !p.failing
		p.failing = true
		s.LastError = err.Error()
		if s.HasData {
			s.Status = StatusRetrying
		} else {
			s.Status = StatusStarting
		}
	})
	p.logger.Warn("fetch changes failed", "error", err)
	if first {
		p.notifyError("changes source", err)
	}
}

// handleEmpty treats an empty array as a successful answer: any outage is
// over and a loaded view goes back to the normal status line.
func (p *Poller) handleEmpty(now time.Time) {
	var recovered bool
	p.update(func(s *Snapshot) {
		recovered = p.failing
		p.failing = false
		s.LastError = ""
		s.State = StatePolling
		s.NextOpen = time.Time{}
		if p.opts.EmptyPolicy == EmptyClear {
			s.View = grouping.Empty()
			s.Sectors = []string{}
			s.HasData = true
			s.UpdatedAt = now
		}
		if s.HasData {
			s.Status = StatusOK
		} else {
			s.Status = StatusLoading
		}
	})
	p.logger.Debug("changes source returned no events", "clear", p.opts.EmptyPolicy == EmptyClear)
	if recovered {
		p.notifyStatus("数据源已恢复")
	}
}

func (p *Poller) record(events, sectors int, took time.Duration, fetchErr error) {
	if p.opts.Recorder == nil {
		return
	}
	if err := p.opts.Recorder.RecordFetch(events, sectors, took, fetchErr); err != nil {
		p.logger.Error("record fetch", "error", err)
	}
}

func (p *Poller) notifyError(context string, err error) {
	if p.opts.Notifier != nil {
		p.opts.Notifier.NotifyError(context, err)
	}
}

func (p *Poller) notifyStatus(msg string) {
	if p.opts.Notifier != nil {
		p.opts.Notifier.NotifyStatus(msg)
	}
}
