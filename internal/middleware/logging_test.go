package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestWriteAuditLog(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	WriteAuditLog(context.Background(), "TOKENIZE", "reg-1", ResultFailed, "error_code", "09101")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log: %v", err)
	}
	want := map[string]string{
		"operation":       "TOKENIZE",
		"registration_id": "reg-1",
		"result":          "FAILED",
		"error_code":      "09101",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("want %s=%s, got %v", k, v, entry[k])
		}
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("want timestamp field")
	}
}
