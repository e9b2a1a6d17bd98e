package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	require.NotNil(t, l)
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithConfig("scheduler", Config{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	l.Infof("hidden")
	l.With("run", "r1").Warnf("block %d infeasible", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "warn", rec["level"])
	assert.Equal(t, "scheduler", rec["component"])
	assert.Equal(t, "r1", rec["run"])
	assert.Equal(t, "block 3 infeasible", rec["message"])
}

func TestDebugwFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithConfig("c", Config{Format: "json"}, &buf)
	require.NoError(t, err)
	l.Debugw("model encoded", map[string]any{"rows": 12})
	assert.Contains(t, buf.String(), `"rows":12`)
}

func TestBadConfig(t *testing.T) {
	_, err := NewWithConfig("c", Config{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
	_, err = NewWithConfig("c", Config{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}
