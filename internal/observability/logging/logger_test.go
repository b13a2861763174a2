package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSONLoggerTagsService(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, "document-portal", "info")
	logger.Debug("hidden")
	logger.Info("upload_completed", "blob_name", "x.pdf")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single json line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "document-portal" || entry["msg"] != "upload_completed" || entry["blob_name"] != "x.pdf" {
		t.Fatalf("unexpected entry %v", entry)
	}
}
