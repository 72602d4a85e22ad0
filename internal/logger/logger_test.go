package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	return entry
}

func TestFromContext_AttachesCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, "info")

	ctx := WithUserID(WithRequestID(context.Background(), "req-1"), "user-7")
	FromContext(ctx, base).Info("task created", "task_id", "t-1")

	entry := decodeLine(t, &buf)
	for key, want := range map[string]string{"request_id": "req-1", "user_id": "user-7", "task_id": "t-1", "msg": "task created"} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %s", key, entry[key], want)
		}
	}
}

func TestFromContext_EmptyContextReturnsBase(t *testing.T) {
	base := New("info")
	if FromContext(context.Background(), base) != base {
		t.Error("expected the base logger when the context carries no fields")
	}
	if RequestIDFromContext(context.Background()) != "" || UserIDFromContext(context.Background()) != "" {
		t.Error("expected empty IDs on a bare context")
	}
}

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record written at warn level: %s", buf.String())
	}
	log.Warn("kept")
	if decodeLine(t, &buf)["level"] != "WARN" {
		t.Errorf("unexpected record: %s", buf.String())
	}

	if New("nonsense").Enabled(context.Background(), slog.LevelDebug) {
		t.Error("unknown level should fall back to info")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}
