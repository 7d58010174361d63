package grouping

// Highlighted locates one flagged entry inside a view.
type Highlighted struct {
	Sector  string
	Session string
	Time    string
	Entry   Entry
}

type highlightKey struct {
	sector, session, time, name string
}

// NewHighlights lists flagged entries of next that prev did not already
// flag, in next's sector order and chronological time order. A nil prev
// treats every flagged entry as new.
func NewHighlights(prev, next *View) []Highlighted {
	if next == nil {
		return nil
	}

	seen := make(map[highlightKey]bool)
	if prev != nil {
		for _, h := range prev.highlights() {
			seen[highlightKey{h.Sector, h.Session, h.Time, h.Entry.Name}] = true
		}
	}

	var out []Highlighted
	for _, h := range next.highlights() {
		if !seen[highlightKey{h.Sector, h.Session, h.Time, h.Entry.Name}] {
			out = append(out, h)
		}
	}
	return out
}

func (v *View) highlights() []Highlighted {
	var out []Highlighted
	for _, name := range v.order {
		s := v.sectors[name]
		for _, session := range Sessions {
			for _, label := range s.Times(session) {
				for _, e := range s.Bucket(session, label) {
					if e.Highlight {
						out = append(out, Highlighted{Sector: name, Session: session, Time: label, Entry: e})
					}
				}
			}
		}
	}
	return out
}
