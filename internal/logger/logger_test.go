package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json", "info")
	l.Debug("hidden")
	l.Info("shown", "post_type", "guide_page")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["msg"] != "shown" || rec["post_type"] != "guide_page" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestSetIgnoresNil(t *testing.T) {
	prev := L
	Set(nil)
	if L != prev {
		t.Fatalf("nil logger replaced L")
	}
}
