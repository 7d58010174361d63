package poller

import (
	"time"

	"github.com/camuig/pankou/internal/grouping"
)

type State string

const (
	StatePolling State = "polling"
	StateWaiting State = "waiting"
)

// Status lines shown above the table.
const (
	StatusOK       = ""
	StatusLoading  = "Loading data..."
	StatusUpdating = "正在更新数据..."
	StatusStarting = "启动服务中，请稍后..."
	StatusRetrying = "数据源暂不可用，正在重试..."
	StatusWaiting  = "休市中，等待下一交易时段"
)

// Snapshot is a consistent copy of the poller's published state. View is
// shared between snapshots and must not be mutated.
type Snapshot struct {
	View      *grouping.View `json:"view"`
	Sectors   []string       `json:"sectors"`
	Status    string         `json:"status"`
	UpdatedAt time.Time      `json:"updated_at"`
	HasData   bool           `json:"has_data"`
	State     State          `json:"state"`
	NextOpen  time.Time      `json:"next_open"`
	LastError string         `json:"last_error,omitempty"`
}

// Select narrows the view to the named sectors. The sector list is left
// whole so a client can still offer every option.
func (s Snapshot) Select(names []string) Snapshot {
	s.View = s.View.Select(names)
	return s
}

func (s Snapshot) clone() Snapshot {
	sectors := make([]string, len(s.Sectors))
	copy(sectors, s.Sectors)
	s.Sectors = sectors
	return s
}

// Snapshot returns the current state. Safe to call from any goroutine.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap.clone()
}

// Subscribe registers a channel that receives every published snapshot.
// Slow subscribers miss intermediate snapshots but always get the latest.
func (p *Poller) Subscribe(buf int) (int, <-chan Snapshot) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Snapshot, buf)

	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	p.nextSubID++
	id := p.nextSubID
	p.subs[id] = ch
	return id, ch
}

func (p *Poller) Unsubscribe(id int) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	if ch, ok := p.subs[id]; ok {
		delete(p.subs, id)
		close(ch)
	}
}

// update applies fn under the write lock and publishes the result.
func (p *Poller) update(fn func(*Snapshot)) {
	p.mu.Lock()
	fn(&p.snap)
	snap := p.snap.clone()
	p.mu.Unlock()

	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- snap:
		default:
			// full: replace the stale snapshot with the latest one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
