package index

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/watchmonkey/stocktags/internal/tags"
)

// Load replaces the whole index with records. Tag strings are parsed in
// parallel; insertion is sequential so category and tag order follow the
// snapshot. When a stock code repeats, the later record wins and keeps the
// position of the first.
func (s *Store) Load(ctx context.Context, records []StockRecord) error {
	start := time.Now()

	deduped, byCode, dups := dedupe(records)
	for _, code := range dups {
		s.logger.Warn("duplicate stock code in snapshot, keeping last record", "stock_code", code)
	}

	parsed := make([]tags.Parsed, len(deduped))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range deduped {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i] = tags.Parse(deduped[i].CustomTags)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = deduped
	s.byCode = byCode
	s.catOrder = nil
	s.cats = map[string]*category{}
	s.owned = map[string][]ownedTag{}
	s.declared = map[string][]string{}
	for i, r := range deduped {
		s.index(r.StockCode, parsed[i])
	}

	identities := 0
	for _, c := range s.cats {
		identities += len(c.tags)
	}
	s.logger.Info("tag index rebuilt",
		"records", len(s.records),
		"categories", len(s.catOrder),
		"tags", identities,
		"took", time.Since(start),
	)
	return nil
}

func dedupe(records []StockRecord) ([]StockRecord, map[string]int, []string) {
	out := make([]StockRecord, 0, len(records))
	byCode := make(map[string]int, len(records))
	var dups []string
	for _, r := range records {
		r = cloneRecord(r)
		if i, ok := byCode[r.StockCode]; ok {
			out[i] = r
			dups = append(dups, r.StockCode)
			continue
		}
		byCode[r.StockCode] = len(out)
		out = append(out, r)
	}
	return out, byCode, dups
}
