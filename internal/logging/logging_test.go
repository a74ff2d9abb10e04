package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"Warn", LevelWarn},
		{"warning", LevelWarn},
		{"ERROR", LevelError},
		{"", LevelInfo},
		{"trace", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestParseFormat(t *testing.T) {
	require.Equal(t, FormatJSON, ParseFormat("Json"))
	require.Equal(t, FormatText, ParseFormat("text"))
	require.Equal(t, FormatText, ParseFormat("xml"))
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelWarn, Format: FormatJSON, Output: &buf})
	log.Info("dropped")
	log.Warn("kept", "field", "Query.viewer")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "kept", entry["msg"])
	require.Equal(t, "Query.viewer", entry["field"])
}

func TestNop(t *testing.T) {
	log := Nop()
	require.NotNil(t, log)
	log.Error("ignored")
}
