package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLoggerWritesJSON(t *testing.T) {
	var a, b bytes.Buffer
	logger := NewLogger(&a, &b)
	logger.Info().Str("component", "export").Msg("done")

	for name, buf := range map[string]*bytes.Buffer{"first": &a, "second": &b} {
		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("%s writer: %v (%q)", name, err, buf.String())
		}
		if entry["message"] != "done" || entry["component"] != "export" {
			t.Errorf("%s writer entry = %v", name, entry)
		}
	}
}
