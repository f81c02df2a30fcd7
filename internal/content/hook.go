package content

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/faciam-dev/guidecms/internal/customfield/interpreter"
	"github.com/faciam-dev/guidecms/internal/customfield/projector"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	"github.com/faciam-dev/guidecms/internal/events"
	"github.com/faciam-dev/guidecms/pkg/metrics"
)

// Schema resolves the active fields of a post type.
type Schema interface {
	Resolve(ctx context.Context, postType string) ([]registry.Field, registry.Source, error)
}

// SaveEvent is a page save as seen by the save hook.
type SaveEvent struct {
	PageID   int64
	PostType string
	Autosave bool
	Bag      interpreter.Bag
}

// SaveResult reports what the hook did.
type SaveResult struct {
	Skipped bool
	Written []string
}

// Hook projects submitted field values onto page metadata when a page is
// saved.
type Hook struct {
	Schema    Schema
	Projector *projector.Projector
	Checker   capability.Checker
}

// OnSave writes the field values carried by ev. Autosaves are ignored and the
// principal must be allowed to edit pages.
func (h *Hook) OnSave(ctx context.Context, p capability.Principal, ev SaveEvent) (SaveResult, error) {
	if ev.Autosave {
		return SaveResult{Skipped: true}, nil
	}
	if err := capability.Require(h.Checker, p, capability.EditPages); err != nil {
		return SaveResult{}, err
	}
	fields, _, err := h.Schema.Resolve(ctx, ev.PostType)
	if err != nil {
		return SaveResult{}, fmt.Errorf("resolve schema: %w", err)
	}
	if len(fields) == 0 {
		return SaveResult{Skipped: true}, nil
	}
	bag := ev.Bag
	if bag == nil {
		bag = interpreter.Bag{}
	}
	written, err := h.Projector.Save(ctx, ev.PageID, fields, bag)
	if err != nil {
		return SaveResult{}, err
	}
	keys := slices.Sorted(maps.Keys(written))
	metrics.MetaWrites.WithLabelValues(ev.PostType).Add(float64(len(keys)))
	events.Emit(ctx, events.For(events.PageMetaSaved, ev.PostType, p.Subject, map[string]any{
		"page_id": ev.PageID,
		"keys":    keys,
	}))
	return SaveResult{Written: keys}, nil
}
