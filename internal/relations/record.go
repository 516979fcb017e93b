// Package relations keeps the per-group registry of diplomatic relations
// between chat groups ("palaces").
//
// Records within a group are kept in insertion order. The 1-based display
// index shown to users is recomputed from that order on every call and
// shifts whenever a record is deleted or edited; Record.ID is the stable
// identifier for programmatic access.
package relations

import "strings"

// Key identifies a relation within one group.
type Key struct {
	PartnerName string
	PartnerID   string
}

// Record is one diplomatic relation.
type Record struct {
	ID            string
	PartnerName   string
	PartnerID     string
	TheirDiplomat string
	OurDiplomat   string
	Screenshot    string // URL, file reference, or opaque image id; empty when absent
}

// Key returns the record's relation key.
func (r Record) Key() Key {
	return Key{PartnerName: r.PartnerName, PartnerID: r.PartnerID}
}

// ScreenshotIsLink reports whether the screenshot reference can be shown
// as-is (http(s) URL or file reference) rather than as an opaque image id.
func (r Record) ScreenshotIsLink() bool {
	return strings.HasPrefix(r.Screenshot, "http") || strings.HasPrefix(r.Screenshot, "file")
}

// Entry is a record paired with its current display index.
type Entry struct {
	Index int
	Record
}

// Page is one page of a group's relation listing.
type Page struct {
	Group      string
	Number     int
	TotalPages int
	Total      int
	Entries    []Entry
}

// GroupEntry is a group id paired with its current display index.
type GroupEntry struct {
	Index int
	Group string
}

// GroupPage is one page of the group listing.
type GroupPage struct {
	Number     int
	TotalPages int
	Total      int
	Groups     []GroupEntry
}

// group holds one group's records in insertion order.
type group struct {
	id      string
	order   []Key
	records map[Key]*Record
}

func newGroup(id string) *group {
	return &group{id: id, records: make(map[Key]*Record)}
}

// put stores rec under its key. An existing key is overwritten in place;
// a new key is appended.
func (g *group) put(rec Record) {
	k := rec.Key()
	if existing, ok := g.records[k]; ok {
		*existing = rec
		return
	}
	r := rec
	g.records[k] = &r
	g.order = append(g.order, k)
}

func (g *group) remove(k Key) {
	if _, ok := g.records[k]; !ok {
		return
	}
	delete(g.records, k)
	for i, o := range g.order {
		if o == k {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

func (g *group) list() []Record {
	out := make([]Record, 0, len(g.order))
	for _, k := range g.order {
		out = append(out, *g.records[k])
	}
	return out
}
