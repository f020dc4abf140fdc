package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	log, closeFn, err := New(Config{Level: "debug", Encoding: "json"}, &buf)
	require.NoError(t, err)
	defer closeFn()

	Component(log, "planner").Debug("hello")
	require.NoError(t, log.Sync())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "planner", entry["logger"])
	assert.Contains(t, entry, "timestamp")
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := New(Config{Level: "loud", Encoding: "console"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "docket.log")
	log, closeFn, err := New(Config{Level: "info", Path: path}, nil)
	require.NoError(t, err)

	log.Info("to file")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "to file"))
}

func TestComponent_NilBase(t *testing.T) {
	assert.NotNil(t, Component(nil, "x"))
}
