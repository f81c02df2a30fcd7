package content

import (
	"context"
	"fmt"

	"github.com/faciam-dev/guidecms/internal/logger"
	"github.com/faciam-dev/guidecms/pkg/metrics"
)

// OrphanScanner finds metadata slots whose key matches no active field of
// the page's post type. Deleting a field leaves its slots behind, so they
// accumulate here until purged.
type OrphanScanner struct {
	Meta   *MetaStore
	Schema Schema
}

// Scan lists orphaned slots and updates the orphan gauge.
func (o *OrphanScanner) Scan(ctx context.Context) ([]KeyRef, error) {
	refs, err := o.Meta.Keys(ctx)
	if err != nil {
		return nil, err
	}
	active := map[string]map[string]bool{}
	var orphans []KeyRef
	for _, r := range refs {
		keys, ok := active[r.PostType]
		if !ok {
			fields, _, err := o.Schema.Resolve(ctx, r.PostType)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", r.PostType, err)
			}
			keys = make(map[string]bool, len(fields))
			for _, f := range fields {
				keys[f.Key] = true
			}
			active[r.PostType] = keys
		}
		if !keys[r.Key] {
			orphans = append(orphans, r)
		}
	}
	metrics.OrphanMeta.Set(float64(len(orphans)))
	return orphans, nil
}

// Purge deletes the given slots and returns how many rows were removed.
func (o *OrphanScanner) Purge(ctx context.Context, orphans []KeyRef) (int64, error) {
	byPage := map[int64][]string{}
	var order []int64
	for _, r := range orphans {
		if _, ok := byPage[r.PageID]; !ok {
			order = append(order, r.PageID)
		}
		byPage[r.PageID] = append(byPage[r.PageID], r.Key)
	}
	var total int64
	for _, id := range order {
		n, err := o.Meta.Delete(ctx, id, byPage[id]...)
		if err != nil {
			return total, err
		}
		total += n
	}
	logger.L.Info("purged orphan meta", "rows", total, "pages", len(order))
	return total, nil
}

// RunScan is the scheduled job body: it scans and logs the result.
func (o *OrphanScanner) RunScan(ctx context.Context) {
	orphans, err := o.Scan(ctx)
	if err != nil {
		logger.L.Error("orphan scan", "err", err)
		return
	}
	logger.L.Info("orphan scan", "orphans", len(orphans))
}
