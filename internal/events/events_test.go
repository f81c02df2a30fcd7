package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/alicebob/miniredis/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"

	"github.com/faciam-dev/guidecms/pkg/migrator"
)

type flakySink struct {
	mu    sync.Mutex
	fails int
	got   []Event
}

func (s *flakySink) Emit(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails > 0 {
		s.fails--
		return errors.New("unavailable")
	}
	s.got = append(s.got, e)
	return nil
}

type memDLQ struct {
	mu      sync.Mutex
	entries []string
}

func (q *memDLQ) Store(_ context.Context, e Event, attempts int, lastErr string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, e.Name+":"+lastErr)
	return nil
}

func fastRetry(n int) Config {
	var c Config
	c.Retry = RetryConfig{MaxAttempts: n, InitialDelay: time.Millisecond}
	return c
}

func TestDispatcherRetries(t *testing.T) {
	sink := &flakySink{fails: 2}
	dlq := &memDLQ{}
	d := NewDispatcher(fastRetry(3), dlq, sink)
	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, New(FieldCreated, map[string]string{"field_key": "meta_title"}))
	cancel()
	d.Wait()
	if len(sink.got) != 1 || sink.got[0].Name != FieldCreated || sink.got[0].ID == "" {
		t.Fatalf("unexpected deliveries %+v", sink.got)
	}
	if len(dlq.entries) != 0 {
		t.Fatalf("unexpected dead letters %v", dlq.entries)
	}
}

func TestDispatcherDeadLetters(t *testing.T) {
	sink := &flakySink{fails: 5}
	dlq := &memDLQ{}
	d := NewDispatcher(fastRetry(2), dlq, sink)
	d.Dispatch(context.Background(), New(PageDeleted, nil))
	d.Wait()
	if len(dlq.entries) != 1 || dlq.entries[0] != PageDeleted+":unavailable" {
		t.Fatalf("dead letters = %v", dlq.entries)
	}
}

func TestSQLDLQ(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()
	m, err := migrator.New("sqlite3", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Up(context.Background(), db, 0); err != nil {
		t.Fatal(err)
	}
	q := &SQLDLQ{DB: db, Driver: "sqlite3", TablePrefix: migrator.DefaultPrefix}
	if err := q.Store(context.Background(), New(FieldMoved, map[string]int{"id": 1}), 3, "boom"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	var name, lastErr string
	var attempts int
	row := db.QueryRow("SELECT name, attempts, last_error FROM guide_cms_events_failed")
	if err := row.Scan(&name, &attempts, &lastErr); err != nil {
		t.Fatal(err)
	}
	if name != FieldMoved || attempts != 3 || lastErr != "boom" {
		t.Fatalf("got %s %d %s", name, attempts, lastErr)
	}
}

func TestWebhookSink(t *testing.T) {
	var gotSig, gotName, gotPostType, gotDelivery string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotName = r.Header.Get(EventHeader)
		gotPostType = r.Header.Get(PostTypeHeader)
		gotDelivery = r.Header.Get(DeliveryHeader)
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewWebhookSink(WebhookConfig{Enabled: true, Endpoint: srv.URL, Secret: "s3cret"})
	e := For(PageCreated, "service_page", "7", map[string]any{"page_id": 1})
	if err := s.Emit(context.Background(), e); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if gotName != PageCreated || gotPostType != "service_page" || gotDelivery != e.ID {
		t.Fatalf("headers: event=%q post_type=%q delivery=%q", gotName, gotPostType, gotDelivery)
	}
	if gotSig != "sha256="+Sign("s3cret", body) {
		t.Fatalf("signature mismatch: %q", gotSig)
	}
}

func TestWebhookSinkStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	s := NewWebhookSink(WebhookConfig{Enabled: true, Endpoint: srv.URL})
	if err := s.Emit(context.Background(), New(PageCreated, nil)); err == nil {
		t.Fatal("expected error for 502")
	}
	if NewWebhookSink(WebhookConfig{}) != nil {
		t.Fatal("disabled webhook should be nil")
	}
}

func TestRedisSink(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisSink(RedisConfig{Enabled: true, DSN: "redis://" + mr.Addr(), PerPostType: true})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	all := s.Client.Subscribe(ctx, defaultRedisChannel)
	defer all.Close()
	guides := s.Client.Subscribe(ctx, defaultRedisChannel+":guide_page")
	defer guides.Close()
	for _, sub := range []*redis.PubSub{all, guides} {
		if _, err := sub.Receive(ctx); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}

	if err := s.Emit(ctx, For(TemplateReplaced, "guide_page", "1", map[string]int{"fields": 3})); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	for _, sub := range []*redis.PubSub{all, guides} {
		select {
		case msg := <-sub.Channel():
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				t.Fatal(err)
			}
			if e.Name != TemplateReplaced || e.PostType != "guide_page" || e.Actor != "1" {
				t.Fatalf("got event %+v on %s", e, msg.Channel)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no message received")
		}
	}
	if got := s.Channels(New(FieldMoved, nil)); len(got) != 1 {
		t.Fatalf("event without post type published on %v", got)
	}
}

func TestKafkaSink(t *testing.T) {
	prod := mocks.NewAsyncProducer(t, nil)
	s := &KafkaSink{Producer: prod, Topic: "cms", TopicPerFamily: true}
	prod.ExpectInputWithMessageCheckerFunctionAndSucceed(func(m *sarama.ProducerMessage) error {
		key, _ := m.Key.Encode()
		if m.Topic != "cms.field" || string(key) != "local_page" {
			t.Errorf("topic=%q key=%q", m.Topic, key)
		}
		if len(m.Headers) != 2 || string(m.Headers[0].Value) != FieldCreated {
			t.Errorf("headers = %+v", m.Headers)
		}
		return nil
	})
	prod.ExpectInputWithMessageCheckerFunctionAndSucceed(func(m *sarama.ProducerMessage) error {
		key, _ := m.Key.Encode()
		if m.Topic != "cms.page" || string(key) != PageDeleted {
			t.Errorf("topic=%q key=%q", m.Topic, key)
		}
		return nil
	})
	if err := s.Emit(context.Background(), For(FieldCreated, "local_page", "1", nil)); err != nil {
		t.Fatal(err)
	}
	if err := s.Emit(context.Background(), New(PageDeleted, nil)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if got := (&KafkaSink{}).TopicFor(New(FieldMoved, nil)); got != defaultKafkaTopic {
		t.Fatalf("default topic = %q", got)
	}
}

func TestFilter(t *testing.T) {
	cases := []struct {
		name string
		f    Filter
		e    Event
		want bool
	}{
		{"empty matches all", Filter{}, New(PageDeleted, nil), true},
		{"exact", Filter{Events: []string{FieldMoved}}, New(FieldMoved, nil), true},
		{"exact miss", Filter{Events: []string{FieldMoved}}, New(FieldCreated, nil), false},
		{"family wildcard", Filter{Events: []string{"cms.field.*"}}, New(FieldDeleted, nil), true},
		{"family wildcard miss", Filter{Events: []string{"cms.field.*"}}, New(PageMetaSaved, nil), false},
		{"post type", Filter{PostTypes: []string{"guide_page"}}, For(PageCreated, "guide_page", "", nil), true},
		{"other post type", Filter{PostTypes: []string{"guide_page"}}, For(PageCreated, "local_page", "", nil), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.f.Match(tc.e); got != tc.want {
				t.Fatalf("Match = %v, want %v", got, tc.want)
			}
		})
	}
	if Family(PageMetaSaved) != "page" || Family("bogus") != "" {
		t.Fatal("Family")
	}
}

func TestDispatcherSkipsFilteredSinks(t *testing.T) {
	fields := &flakySink{}
	pages := &flakySink{}
	d := NewDispatcher(fastRetry(1), nil,
		Filtered(fields, Filter{Events: []string{"cms.field.*"}}),
		Filtered(pages, Filter{Events: []string{"cms.page.*"}, PostTypes: []string{"guide_page"}}),
	)
	d.Dispatch(context.Background(), For(FieldCreated, "guide_page", "1", nil))
	d.Dispatch(context.Background(), For(PageCreated, "local_page", "1", nil))
	d.Dispatch(context.Background(), For(PageCreated, "guide_page", "1", nil))
	d.Wait()
	if len(fields.got) != 1 || fields.got[0].Name != FieldCreated {
		t.Fatalf("field sink got %+v", fields.got)
	}
	if len(pages.got) != 1 || pages.got[0].PostType != "guide_page" {
		t.Fatalf("page sink got %+v", pages.got)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("HOOK_SECRET", "from-env")
	path := filepath.Join(t.TempDir(), "events.yaml")
	doc := "sinks:\n  webhook:\n    enabled: true\n    endpoint: http://hooks.local/cms\n    secret: ${HOOK_SECRET}\nretry:\n  max_attempts: 5\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Sinks.Webhook.Secret != "from-env" || c.Retry.MaxAttempts != 5 {
		t.Fatalf("unexpected config %+v", c)
	}
	if c, err := LoadConfig(""); err != nil || c.Sinks.Webhook.Enabled {
		t.Fatalf("empty path: %+v %v", c, err)
	}
}

func TestLoadConfigValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	doc := "sinks:\n  webhook:\n    enabled: true\n    endpoint: hooks.local\n  kafka:\n    enabled: true\n    events: [cms.widget.*]\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"webhook", "brokers are required", `"cms.widget.*"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q lacks %q", err, want)
		}
	}

	doc = "sinks:\n  redis:\n    enabled: true\n    dsn: redis://localhost:6379\n    per_post_type: true\n    events: [cms.page.*]\n    post_types: [guide_page]\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Sinks.Redis.PerPostType || len(c.Sinks.Redis.Events) != 1 || c.Sinks.Redis.PostTypes[0] != "guide_page" {
		t.Fatalf("unexpected redis config %+v", c.Sinks.Redis)
	}
}
