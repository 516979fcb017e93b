package relations

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/apperr"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/storage"
)

// DefaultPageSize is the number of entries per listing page.
const DefaultPageSize = 10

// Registry owns the relations of every group. Memory is authoritative;
// every mutation rewrites the document.
type Registry struct {
	mu     sync.Mutex
	doc    *storage.Document
	logger *slog.Logger
	groups []*group
	index  map[string]*group
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for persistence diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a registry backed by doc and loads its current content.
// A missing or unreadable document yields an empty registry.
func New(doc *storage.Document, opts ...Option) *Registry {
	r := &Registry{
		doc:    doc,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.mu.Lock()
	r.load()
	r.mu.Unlock()
	return r
}

// load replaces the in-memory state with the stored document. Records that
// were already in memory keep their ID. Callers hold mu.
func (r *Registry) load() {
	known := make(map[string]map[Key]string, len(r.groups))
	for _, g := range r.groups {
		ids := make(map[Key]string, len(g.records))
		for k, rec := range g.records {
			ids[k] = rec.ID
		}
		known[g.id] = ids
	}

	r.groups = nil
	r.index = make(map[string]*group)

	var fd fileDoc
	found, err := r.doc.Load(&fd)
	if err != nil {
		r.logger.Error("relations: load failed, starting empty",
			slog.String("document", r.doc.Name()),
			slog.String("error", err.Error()))
		return
	}
	if !found {
		r.logger.Info("relations: no stored data, starting empty", slog.String("document", r.doc.Name()))
		return
	}
	records := 0
	for _, gd := range fd.Groups {
		g := r.ensureGroup(gd.ID)
		for _, rd := range gd.Records {
			rec := fromRecordDoc(rd)
			switch existing, ok := g.records[rec.Key()]; {
			case ok:
				rec.ID = existing.ID
			case known[gd.ID][rec.Key()] != "":
				rec.ID = known[gd.ID][rec.Key()]
			default:
				rec.ID = uuid.NewString()
			}
			g.put(rec)
			records++
		}
	}
	r.logger.Info("relations: loaded",
		slog.Int("groups", len(r.groups)),
		slog.Int("records", records))
}

// persist writes the full state. A failed write is logged and the
// in-memory mutation is kept. Callers hold mu.
func (r *Registry) persist() {
	fd := fileDoc{Groups: make([]groupDoc, 0, len(r.groups))}
	for _, g := range r.groups {
		gd := groupDoc{ID: g.id, Records: make([]recordDoc, 0, len(g.order))}
		for _, rec := range g.list() {
			gd.Records = append(gd.Records, toRecordDoc(rec))
		}
		fd.Groups = append(fd.Groups, gd)
	}
	if err := r.doc.Save(fd); err != nil {
		r.logger.Error("relations: save failed, memory and disk diverge",
			slog.String("document", r.doc.Name()),
			slog.String("error", err.Error()))
	}
}

// Reload re-reads the document if it was changed outside this registry and
// reports whether it did.
func (r *Registry) Reload() bool {
	stale, err := r.doc.Stale()
	if err != nil {
		r.logger.Warn("relations: stale check failed", slog.String("error", err.Error()))
		return false
	}
	if !stale {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()
	return true
}

func (r *Registry) ensureGroup(id string) *group {
	if g, ok := r.index[id]; ok {
		return g
	}
	g := newGroup(id)
	r.groups = append(r.groups, g)
	r.index[id] = g
	return g
}

func requireGroup(groupID string) error {
	if groupID == "" {
		return apperr.New(apperr.ErrInvalidContext, "this command is only available in group chats")
	}
	return nil
}

// Add stores rec in the group, overwriting any record with the same key
// in place. The stored record, with its ID, is returned.
func (r *Registry) Add(groupID string, rec Record) (Record, error) {
	if err := requireGroup(groupID); err != nil {
		return Record{}, err
	}
	if rec.PartnerName == "" || rec.PartnerID == "" {
		return Record{}, apperr.New(apperr.ErrInvalidArguments, "partner name and id are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g := r.ensureGroup(groupID)
	if existing, ok := g.records[rec.Key()]; ok {
		rec.ID = existing.ID
	} else {
		rec.ID = uuid.NewString()
	}
	g.put(rec)
	r.persist()
	return rec, nil
}

// List returns one page of the group's relations. A group without
// relations yields a Page with Total == 0 rather than an error.
func (r *Registry) List(groupID string, page, pageSize int) (Page, error) {
	if err := requireGroup(groupID); err != nil {
		return Page{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var records []Record
	if g, ok := r.index[groupID]; ok {
		records = g.list()
	}
	out := Page{Group: groupID, Number: page, Total: len(records)}
	if len(records) == 0 {
		return out, nil
	}
	start, end, totalPages, err := paginate(len(records), page, pageSize)
	if err != nil {
		return Page{}, err
	}
	out.TotalPages = totalPages
	for i := start; i < end; i++ {
		out.Entries = append(out.Entries, Entry{Index: i + 1, Record: records[i]})
	}
	return out, nil
}

// Records returns every relation of the group with its display index.
func (r *Registry) Records(groupID string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.index[groupID]
	if !ok {
		return nil
	}
	records := g.list()
	out := make([]Entry, len(records))
	for i, rec := range records {
		out[i] = Entry{Index: i + 1, Record: rec}
	}
	return out
}

// Detail resolves selector within the group: a numeric selector is a
// display index, anything else must equal a partner name.
func (r *Registry) Detail(groupID, selector string) (Entry, error) {
	if err := requireGroup(groupID); err != nil {
		return Entry{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.resolve(groupID, selector)
}

// FindByPartnerID returns the first relation of the group whose partner id
// equals partnerID.
func (r *Registry) FindByPartnerID(groupID, partnerID string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.index[groupID]; ok {
		for i, rec := range g.list() {
			if rec.PartnerID == partnerID {
				return Entry{Index: i + 1, Record: rec}, nil
			}
		}
	}
	return Entry{}, apperr.New(apperr.ErrNotFound, "relation not found")
}

// Get looks a relation up by its stable ID across all groups.
func (r *Registry) Get(id string) (string, Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, g := range r.groups {
		for _, k := range g.order {
			if rec := g.records[k]; rec.ID == id {
				return g.id, *rec, nil
			}
		}
	}
	return "", Record{}, apperr.New(apperr.ErrNotFound, "relation not found")
}

// Edit replaces the relation selected by selector with rec. The old entry
// is removed and rec is inserted under its own key, so an edited relation
// moves to the end of the listing. The record keeps its ID.
func (r *Registry) Edit(groupID, selector string, rec Record) (Record, error) {
	if err := requireGroup(groupID); err != nil {
		return Record{}, err
	}
	if rec.PartnerName == "" || rec.PartnerID == "" {
		return Record{}, apperr.New(apperr.ErrInvalidArguments, "partner name and id are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, err := r.resolve(groupID, selector)
	if err != nil {
		return Record{}, err
	}
	g := r.index[groupID]
	g.remove(old.Key())
	rec.ID = old.ID
	g.put(rec)
	r.persist()
	return rec, nil
}

// Delete removes the relation selected by selector and reports how many
// relations the group has left.
func (r *Registry) Delete(groupID, selector string) (Record, int, error) {
	if err := requireGroup(groupID); err != nil {
		return Record{}, 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, err := r.resolve(groupID, selector)
	if err != nil {
		return Record{}, 0, err
	}
	g := r.index[groupID]
	g.remove(old.Key())
	r.persist()
	return old.Record, len(g.order), nil
}

// Groups returns every known group id in insertion order.
func (r *Registry) Groups() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.groups))
	for i, g := range r.groups {
		out[i] = g.id
	}
	return out
}

// ListGroups returns one page of the group listing.
func (r *Registry) ListGroups(page, pageSize int) (GroupPage, error) {
	groups := r.Groups()
	out := GroupPage{Number: page, Total: len(groups)}
	if len(groups) == 0 {
		return out, nil
	}
	start, end, totalPages, err := paginate(len(groups), page, pageSize)
	if err != nil {
		return GroupPage{}, err
	}
	out.TotalPages = totalPages
	for i := start; i < end; i++ {
		out.Groups = append(out.Groups, GroupEntry{Index: i + 1, Group: groups[i]})
	}
	return out, nil
}

// ResolveGroup resolves a numeric display index or an exact group id.
func (r *Registry) ResolveGroup(selector string) (string, error) {
	groups := r.Groups()
	if len(groups) == 0 {
		return "", apperr.New(apperr.ErrNotFound, "no groups yet")
	}
	if idx, ok := displayIndex(selector); ok {
		if idx >= 1 && idx <= len(groups) {
			return groups[idx-1], nil
		}
	} else {
		for _, g := range groups {
			if g == selector {
				return g, nil
			}
		}
	}
	return "", apperr.New(apperr.ErrNotFound, "group not found")
}

// resolve finds the entry addressed by selector. Callers hold mu.
func (r *Registry) resolve(groupID, selector string) (Entry, error) {
	notFound := apperr.New(apperr.ErrNotFound, "relation not found")
	g, ok := r.index[groupID]
	if !ok {
		return Entry{}, notFound
	}
	records := g.list()
	if idx, ok := displayIndex(selector); ok {
		if idx >= 1 && idx <= len(records) {
			return Entry{Index: idx, Record: records[idx-1]}, nil
		}
		return Entry{}, notFound
	}
	for i, rec := range records {
		if rec.PartnerName == selector {
			return Entry{Index: i + 1, Record: rec}, nil
		}
	}
	return Entry{}, notFound
}

// displayIndex parses s as a display index when it consists of digits only.
func displayIndex(s string) (int, bool) {
	if !IsDigits(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1, true
	}
	return n, true
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	return strings.Trim(s, "0123456789") == ""
}

// paginate returns the [start,end) slice bounds of page within total items.
// total must be positive.
func paginate(total, page, pageSize int) (int, int, int, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	totalPages := (total + pageSize - 1) / pageSize
	if page < 1 || page > totalPages {
		return 0, 0, totalPages, apperr.New(apperr.ErrOutOfRange, "page out of range, %d page(s) in total", totalPages)
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	return start, end, totalPages, nil
}
