package index

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/watchmonkey/stocktags/internal/tags"
)

// Store owns the current stock snapshot and the category index derived
// from it. Writers (Load, UpdateTags) hold the write lock; every read goes
// through Read and sees a consistent state.
type Store struct {
	mu sync.RWMutex

	records []StockRecord
	byCode  map[string]int

	catOrder []string
	cats     map[string]*category

	// owned lists the (category, tag) pairs each stock code contributed,
	// declared the categories it named, with or without tags.
	owned    map[string][]ownedTag
	declared map[string][]string

	now    func() time.Time
	logger *slog.Logger
}

// category lives while at least one stock names it. A stock naming it with
// empty content ("行业:") holds it without contributing a tag.
type category struct {
	name    string
	order   []TagKey
	tags    map[TagKey]map[string]struct{}
	holders map[string]struct{}
}

type ownedTag struct {
	category string
	key      TagKey
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for rebuild and update events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the clock used to stamp updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		byCode:   map[string]int{},
		cats:     map[string]*category{},
		owned:    map[string][]ownedTag{},
		declared: map[string][]string{},
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Read runs fn with a read-only view of the index. The view must not be
// retained after fn returns.
func (s *Store) Read(fn func(v *View)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&View{s: s})
}

// Record returns a copy of the record for code.
func (s *Store) Record(code string) (StockRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byCode[code]
	if !ok {
		return StockRecord{}, false
	}
	return cloneRecord(s.records[i]), true
}

// Records returns a copy of all records in snapshot order.
func (s *Store) Records() []StockRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StockRecord, len(s.records))
	for i, r := range s.records {
		out[i] = cloneRecord(r)
	}
	return out
}

// DataStatistics returns record and category totals.
func (s *Store) DataStatistics() DataStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	withTags := 0
	for _, r := range s.records {
		if r.CustomTags != "" {
			withTags++
		}
	}
	return DataStatistics{
		TotalStocks:     len(s.records),
		StocksWithTags:  withTags,
		TotalCategories: len(s.catOrder),
	}
}

// UpdateTags replaces the custom tags of one stock and re-indexes only that
// stock. Unknown codes return ErrNotFound and leave the index untouched.
func (s *Store) UpdateTags(code, raw string) error {
	parsed := tags.Parse(raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byCode[code]
	if !ok {
		s.logger.Warn("tag update for unknown stock", "stock_code", code)
		return fmt.Errorf("update tags for %s: %w", code, ErrNotFound)
	}

	removed := len(s.owned[code])
	s.unindex(code)
	s.records[i].CustomTags = raw
	s.records[i].UpdatedAt = s.now().UTC().Format(time.RFC3339)
	s.index(code, parsed)

	s.logger.Info("stock tags updated",
		"stock_code", code,
		"removed", removed,
		"added", len(s.owned[code]),
		"categories", len(s.catOrder),
	)
	return nil
}

// index inserts every entry of parsed for code. Callers hold the write lock.
func (s *Store) index(code string, parsed tags.Parsed) {
	for _, catName := range parsed.Categories() {
		c, ok := s.cats[catName]
		if !ok {
			c = &category{
				name:    catName,
				tags:    map[TagKey]map[string]struct{}{},
				holders: map[string]struct{}{},
			}
			s.cats[catName] = c
			s.catOrder = append(s.catOrder, catName)
		}
		if _, held := c.holders[code]; !held {
			c.holders[code] = struct{}{}
			s.declared[code] = append(s.declared[code], catName)
		}
		for _, e := range parsed.Entries(catName) {
			key := KeyOf(e)
			members, ok := c.tags[key]
			if !ok {
				members = map[string]struct{}{}
				c.tags[key] = members
				c.order = append(c.order, key)
			}
			if _, dup := members[code]; dup {
				continue
			}
			members[code] = struct{}{}
			s.owned[code] = append(s.owned[code], ownedTag{category: catName, key: key})
		}
	}
}

// unindex removes every membership attributed to code, dropping tags left
// without members and categories no stock names any more. Callers hold the
// write lock.
func (s *Store) unindex(code string) {
	touched := map[string]bool{}
	for _, ot := range s.owned[code] {
		c := s.cats[ot.category]
		if c == nil {
			continue
		}
		members := c.tags[ot.key]
		delete(members, code)
		if len(members) == 0 {
			delete(c.tags, ot.key)
			touched[ot.category] = true
		}
	}
	delete(s.owned, code)

	for _, name := range s.declared[code] {
		if c := s.cats[name]; c != nil {
			delete(c.holders, code)
			touched[name] = true
		}
	}
	delete(s.declared, code)

	removed := false
	for name := range touched {
		c := s.cats[name]
		c.order = retainKeys(c.order, c.tags)
		if len(c.holders) == 0 {
			delete(s.cats, name)
			removed = true
		}
	}
	if removed {
		kept := s.catOrder[:0]
		for _, name := range s.catOrder {
			if _, ok := s.cats[name]; ok {
				kept = append(kept, name)
			}
		}
		s.catOrder = kept
	}
}

func retainKeys(order []TagKey, live map[TagKey]map[string]struct{}) []TagKey {
	kept := order[:0]
	for _, k := range order {
		if _, ok := live[k]; ok {
			kept = append(kept, k)
		}
	}
	return kept
}

func cloneRecord(r StockRecord) StockRecord {
	if r.SectorsConcepts != nil {
		r.SectorsConcepts = append([]string(nil), r.SectorsConcepts...)
	}
	return r
}

// View is a read-only window on a Store, valid only inside Store.Read.
type View struct {
	s *Store
}

// Categories returns category names in first-encounter order.
func (v *View) Categories() []string {
	out := make([]string, len(v.s.catOrder))
	copy(out, v.s.catOrder)
	return out
}

// HasCategory reports whether any stock names the category, even with no
// tag under it.
func (v *View) HasCategory(name string) bool {
	_, ok := v.s.cats[name]
	return ok
}

// Tags returns the tag identities of category in first-encounter order.
func (v *View) Tags(categoryName string) []TagKey {
	c, ok := v.s.cats[categoryName]
	if !ok {
		return nil
	}
	out := make([]TagKey, len(c.order))
	copy(out, c.order)
	return out
}

// Count returns the number of distinct stocks carrying the tag.
func (v *View) Count(categoryName string, key TagKey) int {
	c, ok := v.s.cats[categoryName]
	if !ok {
		return 0
	}
	return len(c.tags[key])
}

// Stocks materializes the records carrying the tag, in snapshot order.
func (v *View) Stocks(categoryName string, key TagKey) []StockRecord {
	c, ok := v.s.cats[categoryName]
	if !ok {
		return []StockRecord{}
	}
	members := c.tags[key]
	pos := make([]int, 0, len(members))
	for code := range members {
		if i, ok := v.s.byCode[code]; ok {
			pos = append(pos, i)
		}
	}
	sort.Ints(pos)
	out := make([]StockRecord, len(pos))
	for j, i := range pos {
		out[j] = cloneRecord(v.s.records[i])
	}
	return out
}

// Record looks up a record by code.
func (v *View) Record(code string) (StockRecord, bool) {
	i, ok := v.s.byCode[code]
	if !ok {
		return StockRecord{}, false
	}
	return cloneRecord(v.s.records[i]), true
}
