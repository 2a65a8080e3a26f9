package logx

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWritesJSONWithService(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, Config{Service: "booking"})
	logger.Info().Str("session_id", "s1").Msg("hello")
	logger.Debug().Msg("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line at info level, got %d: %s", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["service"] != "booking" || entry["session_id"] != "s1" || entry["message"] != "hello" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["caller"]; !ok {
		t.Fatalf("expected caller field: %v", entry)
	}
}

func TestLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		conf Config
		want string
	}{
		{Config{}, "info"},
		{Config{Debug: true, Level: "error"}, "debug"},
		{Config{Level: "WARN"}, "warn"},
		{Config{Level: "nonsense"}, "info"},
	}
	for _, tc := range cases {
		if got := level(&tc.conf).String(); got != tc.want {
			t.Fatalf("level(%+v) = %s, want %s", tc.conf, got, tc.want)
		}
	}
}
