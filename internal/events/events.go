package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/faciam-dev/guidecms/internal/logger"
	"github.com/faciam-dev/guidecms/pkg/metrics"
	pkgutil "github.com/faciam-dev/guidecms/pkg/util"
)

// Event names emitted by the field and page services.
const (
	FieldCreated     = "cms.field.created"
	FieldUpdated     = "cms.field.updated"
	FieldDeleted     = "cms.field.deleted"
	FieldMoved       = "cms.field.moved"
	TemplateReplaced = "cms.template.replaced"
	PageCreated      = "cms.page.created"
	PageUpdated      = "cms.page.updated"
	PageDeleted      = "cms.page.deleted"
	PageMetaSaved    = "cms.page.meta_saved"
)

// Default is the global dispatcher used by Emit.
var Default *Dispatcher

// Event is a change notification. PostType and Actor are lifted out of Data
// so sinks can route and partition without decoding the payload.
type Event struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	PostType string    `json:"post_type,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	Time     time.Time `json:"time"`
	Data     any       `json:"data"`
}

// New stamps an event with a fresh id and the current time.
func New(name string, data any) Event {
	return Event{Name: name, Time: time.Now().UTC(), Data: data, ID: uuid.NewString()}
}

// For is New for a change made by actor to postType.
func For(name, postType, actor string, data any) Event {
	e := New(name, data)
	e.PostType = postType
	e.Actor = actor
	return e
}

// Family returns the middle segment of an event name: "field" for
// cms.field.created, "page" for cms.page.meta_saved.
func Family(name string) string {
	parts := strings.SplitN(name, ".", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}

// Filter selects the events a sink receives. Events entries are exact names
// or family wildcards such as cms.field.*. Empty lists match everything.
type Filter struct {
	Events    []string `yaml:"events"`
	PostTypes []string `yaml:"post_types"`
}

// Match reports whether e passes f.
func (f Filter) Match(e Event) bool {
	if len(f.PostTypes) > 0 && e.PostType != "" && !contains(f.PostTypes, e.PostType) {
		return false
	}
	if len(f.Events) == 0 {
		return true
	}
	for _, pat := range f.Events {
		if pat == e.Name {
			return true
		}
		if prefix, ok := strings.CutSuffix(pat, "*"); ok && strings.HasPrefix(e.Name, prefix) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Filtered restricts s to the events f matches. A nil sink stays nil.
func Filtered(s Sink, f Filter) Sink {
	if s == nil || (len(f.Events) == 0 && len(f.PostTypes) == 0) {
		return s
	}
	return &filteredSink{Sink: s, filter: f}
}

type filteredSink struct {
	Sink
	filter Filter
}

func (s *filteredSink) Match(e Event) bool { return s.filter.Match(e) }

// Sink publishes events.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// DLQ stores failed events.
type DLQ interface {
	Store(ctx context.Context, e Event, attempts int, lastErr string) error
}

// Dispatcher broadcasts events to multiple sinks with retries.
type Dispatcher struct {
	sinks        []Sink
	maxAttempts  int
	initialDelay time.Duration
	dlq          DLQ
	wg           sync.WaitGroup
}

// Config provides dispatcher settings.
type Config struct {
	Sinks struct {
		Webhook WebhookConfig `yaml:"webhook"`
		Redis   RedisConfig   `yaml:"redis"`
		Kafka   KafkaConfig   `yaml:"kafka"`
	} `yaml:"sinks"`
	Retry RetryConfig `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
}

// NewDispatcher creates a dispatcher from sinks and retry config. Nil sinks
// are skipped.
func NewDispatcher(cfg Config, dlq DLQ, sinks ...Sink) *Dispatcher {
	d := &Dispatcher{maxAttempts: 3, initialDelay: time.Second}
	if cfg.Retry.MaxAttempts > 0 {
		d.maxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.InitialDelay > 0 {
		d.initialDelay = cfg.Retry.InitialDelay
	}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	d.dlq = dlq
	return d
}

// Emit sends an event using the global dispatcher if set.
func Emit(ctx context.Context, e Event) {
	if Default != nil {
		Default.Dispatch(ctx, e)
	}
}

// Dispatch sends the event to every sink whose filter matches, asynchronously.
// Delivery outlives the request that triggered it.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) {
	ctx = context.WithoutCancel(ctx)
	for _, s := range d.sinks {
		if m, ok := s.(interface{ Match(Event) bool }); ok && !m.Match(e) {
			continue
		}
		d.wg.Add(1)
		go func(sink Sink) {
			defer d.wg.Done()
			d.retrySend(ctx, sink, e)
		}(s)
	}
}

// Wait blocks until every dispatched event was delivered or dead-lettered.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) retrySend(ctx context.Context, s Sink, e Event) {
	delay := d.initialDelay
	var err error
	for i := 1; i <= d.maxAttempts; i++ {
		if err = s.Emit(ctx, e); err == nil {
			return
		}
		if i < d.maxAttempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	metrics.EventFailures.WithLabelValues(e.Name).Inc()
	logger.L.Warn("event delivery failed", "event", e.Name, "id", e.ID, "post_type", e.PostType, "err", err)
	if d.dlq != nil {
		if derr := d.dlq.Store(ctx, e, d.maxAttempts, err.Error()); derr != nil {
			logger.L.Error("store failed event", "event", e.Name, "err", derr)
		}
	}
}

// SQLDLQ stores failed events in the events_failed table.
type SQLDLQ struct {
	DB          *sql.DB
	Driver      string
	TablePrefix string
}

// Store inserts the failed event.
func (q *SQLDLQ) Store(ctx context.Context, e Event, attempts int, lastErr string) error {
	if q == nil || q.DB == nil {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	tbl := q.TablePrefix + "events_failed"
	stmt := fmt.Sprintf("INSERT INTO %s (name, payload, attempts, last_error) VALUES (%s)", tbl, pkgutil.Placeholders(q.Driver, 1, 4))
	_, err = q.DB.ExecContext(ctx, stmt, e.Name, string(data), attempts, lastErr)
	return err
}
