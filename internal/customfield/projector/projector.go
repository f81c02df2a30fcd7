// Package projector maps between a page's metadata slots and field values.
package projector

import (
	"context"
	"fmt"

	"github.com/faciam-dev/guidecms/internal/customfield/interpreter"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/logger"
)

// MetaStore reads and writes page metadata slots.
type MetaStore interface {
	// GetAll returns every slot of the page in one read.
	GetAll(ctx context.Context, pageID int64) (map[string]string, error)
	// SetMany upserts the given slots in one transaction.
	SetMany(ctx context.Context, pageID int64, slots map[string]string) error
}

// Image is an expanded image field value.
type Image struct {
	ID     int64  `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Alt    string `json:"alt"`
}

// ImageResolver looks up media metadata by URL. ok is false when the URL is
// not a registered media item.
type ImageResolver interface {
	ResolveImage(ctx context.Context, url string) (img Image, ok bool, err error)
}

// Projector loads and saves field values for pages.
type Projector struct {
	Meta      MetaStore
	Sanitizer *interpreter.Sanitizer
	Images    ImageResolver
}

// New returns a Projector with the default sanitizer. images may be nil.
func New(meta MetaStore, images ImageResolver) *Projector {
	return &Projector{Meta: meta, Sanitizer: interpreter.NewSanitizer(), Images: images}
}

// Load returns one value per field. Missing slots yield the zero value of the
// field type.
func (p *Projector) Load(ctx context.Context, pageID int64, fields []registry.Field) (interpreter.Values, error) {
	slots, err := p.Meta.GetAll(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	vals := make(interpreter.Values, len(fields))
	for _, f := range fields {
		raw, ok := slots[f.Key]
		if !ok {
			vals[f.Key] = interpreter.Zero(f)
			continue
		}
		vals[f.Key] = interpreter.Decode(f, raw)
	}
	return vals, nil
}

// Save sanitizes the submitted bag against fields and writes the result.
// Fields absent from the bag keep their stored value, except booleans which
// are written as "0". It returns the slots that were written.
func (p *Projector) Save(ctx context.Context, pageID int64, fields []registry.Field, bag interpreter.Bag) (map[string]string, error) {
	s := p.Sanitizer
	if s == nil {
		s = interpreter.NewSanitizer()
	}
	slots := make(map[string]string, len(fields))
	for _, f := range fields {
		raw, present := bag.Lookup(f.Key)
		v, write := s.Sanitize(f, raw, present)
		if !write {
			continue
		}
		enc, err := v.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.Key, err)
		}
		slots[f.Key] = enc
	}
	if len(slots) == 0 {
		return slots, nil
	}
	if err := p.Meta.SetMany(ctx, pageID, slots); err != nil {
		return nil, fmt.Errorf("save meta: %w", err)
	}
	return slots, nil
}

// Expand prepares values for API output: image URLs become Image objects
// (nil when empty) and every other value is returned as is.
func (p *Projector) Expand(ctx context.Context, fields []registry.Field, vals interpreter.Values) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, ok := vals[f.Key]
		if !ok {
			v = interpreter.Zero(f)
		}
		if f.Type.Normalize() != registry.TypeImage {
			out[f.Key] = v
			continue
		}
		if v.Scalar == "" {
			out[f.Key] = nil
			continue
		}
		img := Image{URL: v.Scalar}
		if p.Images != nil {
			found, ok, err := p.Images.ResolveImage(ctx, v.Scalar)
			if err != nil {
				logger.L.Warn("resolve image", "url", v.Scalar, "err", err)
			} else if ok {
				img = found
			}
		}
		out[f.Key] = img
	}
	return out
}
