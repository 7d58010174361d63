// Package grouping turns a flat list of change events into the nested
// sector → session → time → entries view shown by the dashboard. It only
// produces structured data; escaping and markup belong to the renderer.
package grouping

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/camuig/pankou/internal/changes"
)

// HighlightRule decides which entries are flagged for emphasis.
type HighlightRule int

const (
	// RuleTag flags only entries whose type tag is the limit-up marker.
	RuleTag HighlightRule = iota
	// RuleTagOrMagnitude also flags |rounded change| >= HighlightMagnitude.
	RuleTagOrMagnitude
)

const HighlightMagnitude = 10

// ParseHighlightRule maps the config value; anything but "tag_or_magnitude"
// selects RuleTag.
func ParseHighlightRule(s string) HighlightRule {
	if s == "tag_or_magnitude" {
		return RuleTagOrMagnitude
	}
	return RuleTag
}

// Sessions in display order.
var Sessions = []string{changes.SessionMorning, changes.SessionAfternoon}

type Entry struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Magnitude int64  `json:"magnitude"`
	Highlight bool   `json:"highlight"`
}

// Sector holds one row of the table: time buckets for each session.
type Sector struct {
	Name     string
	sessions map[string]map[string][]Entry
}

// Bucket returns the entries at a time label, in payload order.
func (s *Sector) Bucket(session, label string) []Entry {
	return s.sessions[session][label]
}

// Times returns the session's time labels sorted ascending. Labels are
// zero-padded HH:MM, so lexicographic order is chronological.
func (s *Sector) Times(session string) []string {
	buckets := s.sessions[session]
	times := make([]string, 0, len(buckets))
	for label := range buckets {
		times = append(times, label)
	}
	sort.Strings(times)
	return times
}

// View is built once per successful fetch and never mutated afterwards.
type View struct {
	order   []string
	sectors map[string]*Sector
}

// Empty returns a view with no sectors.
func Empty() *View {
	return &View{sectors: make(map[string]*Sector)}
}

// Build groups events in payload order. Sectors keep first-seen order;
// entries within a bucket keep payload order. Events without a sector name
// have no row to land in and are skipped.
func Build(events []changes.Event, rule HighlightRule) *View {
	v := Empty()
	for _, e := range events {
		if e.Sector == "" {
			continue
		}
		sec, ok := v.sectors[e.Sector]
		if !ok {
			sec = &Sector{Name: e.Sector, sessions: make(map[string]map[string][]Entry, len(Sessions))}
			v.sectors[e.Sector] = sec
			v.order = append(v.order, e.Sector)
		}

		buckets, ok := sec.sessions[e.Session]
		if !ok {
			buckets = make(map[string][]Entry)
			sec.sessions[e.Session] = buckets
		}

		n := e.Value()
		buckets[e.Time] = append(buckets[e.Time], Entry{
			Name:      e.Name,
			Value:     FormatValue(n),
			Magnitude: n,
			Highlight: highlighted(e, n, rule),
		})
	}
	return v
}

func highlighted(e changes.Event, n int64, rule HighlightRule) bool {
	if e.IsLimitUp() {
		return true
	}
	if rule == RuleTagOrMagnitude {
		if n < 0 {
			n = -n
		}
		return n >= HighlightMagnitude
	}
	return false
}

// FormatValue prefixes positive values with "+"; zero and negatives use
// the plain integer form.
func FormatValue(n int64) string {
	if n > 0 {
		return "+" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// Sectors returns the distinct sector names in first-seen order.
func (v *View) Sectors() []string {
	out := make([]string, len(v.order))
	copy(out, v.order)
	return out
}

func (v *View) Sector(name string) (*Sector, bool) {
	s, ok := v.sectors[name]
	return s, ok
}

func (v *View) Len() int { return len(v.order) }

// Select narrows the view to the named sectors, in the order given.
// Unknown names are skipped; an empty selection returns v itself.
func (v *View) Select(names []string) *View {
	if len(names) == 0 {
		return v
	}
	out := Empty()
	for _, name := range names {
		s, ok := v.sectors[name]
		if !ok {
			continue
		}
		if _, dup := out.sectors[name]; dup {
			continue
		}
		out.sectors[name] = s
		out.order = append(out.order, name)
	}
	return out
}

// Equal reports structural equality, including sector order and entry
// order within each bucket.
func (v *View) Equal(o *View) bool {
	if v == nil || o == nil {
		return v == o
	}
	if len(v.order) != len(o.order) {
		return false
	}
	for i, name := range v.order {
		if o.order[i] != name {
			return false
		}
		a, b := v.sectors[name], o.sectors[name]
		if len(a.sessions) != len(b.sessions) {
			return false
		}
		for session, buckets := range a.sessions {
			other, ok := b.sessions[session]
			if !ok || len(buckets) != len(other) {
				return false
			}
			for label, entries := range buckets {
				oe, ok := other[label]
				if !ok || len(entries) != len(oe) {
					return false
				}
				for j := range entries {
					if entries[j] != oe[j] {
						return false
					}
				}
			}
		}
	}
	return true
}

// Wire form for the render layer. Maps would lose sector order, so the
// view encodes as arrays.

type TimeGroupJSON struct {
	Time   string  `json:"time"`
	Stocks []Entry `json:"stocks"`
}

type SectorJSON struct {
	Sector    string          `json:"sector"`
	Morning   []TimeGroupJSON `json:"morning"`
	Afternoon []TimeGroupJSON `json:"afternoon"`
}

func (v *View) Rows() []SectorJSON {
	rows := make([]SectorJSON, 0, len(v.order))
	for _, name := range v.order {
		s := v.sectors[name]
		rows = append(rows, SectorJSON{
			Sector:    name,
			Morning:   s.timeGroups(changes.SessionMorning),
			Afternoon: s.timeGroups(changes.SessionAfternoon),
		})
	}
	return rows
}

func (s *Sector) timeGroups(session string) []TimeGroupJSON {
	times := s.Times(session)
	groups := make([]TimeGroupJSON, 0, len(times))
	for _, label := range times {
		groups = append(groups, TimeGroupJSON{Time: label, Stocks: s.Bucket(session, label)})
	}
	return groups
}

func (v *View) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Rows())
}
