package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// accessLine is one decoded JSON log record.
type accessLine struct {
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Route     string `json:"route"`
	Status    int    `json:"status"`
	Size      int64  `json:"size"`
	RequestID string `json:"request_id"`
	TraceID   string `json:"trace_id"`
	UserID    string `json:"user_id"`
	ErrorCode string `json:"error_code"`
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// accessLines decodes every "request completed" record in buf.
func accessLines(t *testing.T, buf *bytes.Buffer) []accessLine {
	t.Helper()
	var lines []accessLine
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var l accessLine
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			t.Fatalf("failed to decode log line %q: %v", raw, err)
		}
		if l.Msg == "request completed" {
			lines = append(lines, l)
		}
	}
	return lines
}

// onlyAccessLine returns the single access log record in buf.
func onlyAccessLine(t *testing.T, buf *bytes.Buffer) accessLine {
	t.Helper()
	lines := accessLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 access log line, got %d: %s", len(lines), buf.String())
	}
	return lines[0]
}
