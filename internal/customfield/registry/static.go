package registry

import (
	_ "embed"
	"fmt"
	"os"
	"sync"
)

//go:embed defaults.yaml
var defaultSchema []byte

// StaticProvider serves the built-in schemas, optionally replaced by a YAML
// file. Static fields carry negative ids and cannot be edited.
type StaticProvider struct {
	mu     sync.RWMutex
	schema Schema
}

// NewStaticProvider loads the embedded defaults.
func NewStaticProvider() (*StaticProvider, error) {
	p := &StaticProvider{}
	if err := p.Load(defaultSchema); err != nil {
		return nil, fmt.Errorf("embedded defaults: %w", err)
	}
	return p, nil
}

// DefaultSchema returns the embedded defaults document.
func DefaultSchema() []byte {
	out := make([]byte, len(defaultSchema))
	copy(out, defaultSchema)
	return out
}

// Load replaces the served schema with the YAML document b.
func (p *StaticProvider) Load(b []byte) error {
	s, err := DecodeYAML(b)
	if err != nil {
		return err
	}
	for i := range s.PostTypes {
		for j := range s.PostTypes[i].Fields {
			s.PostTypes[i].Fields[j].ID = -int64(j + 1)
		}
	}
	p.mu.Lock()
	p.schema = s
	p.mu.Unlock()
	return nil
}

// LoadFile reads path and loads it.
func (p *StaticProvider) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return p.Load(b)
}

// Fields returns a copy of the static fields of postType.
func (p *StaticProvider) Fields(postType string) []Field {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pt, ok := p.schema.Lookup(postType)
	if !ok {
		return nil
	}
	out := make([]Field, len(pt.Fields))
	copy(out, pt.Fields)
	return out
}

// PostTypes returns the declared content types in file order.
func (p *StaticProvider) PostTypes() []PostType {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PostType, len(p.schema.PostTypes))
	for i, pt := range p.schema.PostTypes {
		out[i] = PostType{Key: pt.Key, Label: pt.Label}
	}
	return out
}
