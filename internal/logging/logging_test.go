package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{Output: &bytes.Buffer{}}, false},
		{"json to file", Config{Level: "info", Format: "json", Path: filepath.Join(tmpDir, "a", "gitmetrics.log")}, false},
		{"text debug", Config{Level: "debug", Format: "text", Output: &bytes.Buffer{}}, false},
		{"invalid level", Config{Level: "loud"}, true},
		{"invalid format", Config{Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, logger.Close())
		})
	}
}

func TestJSONComponentFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	logger.WithComponent("gitrepo").WithRepo("/src/app").WarnCtx("skipping malformed line", map[string]any{"line": 3})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "gitrepo", entry["component"])
	assert.Equal(t, "/src/app", entry["repo"])
	assert.Equal(t, float64(3), entry["line"])
	assert.Equal(t, "skipping malformed line", entry["message"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json", Output: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Infof("hidden %d", 1)
	assert.Empty(t, buf.String())

	logger.Err(errors.New("boom")).Msg("store failed")
	assert.Contains(t, buf.String(), "boom")
}

func TestLogFileWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gitmetrics.log")
	logger, err := New(Config{Level: "info", Format: "text", Path: path})
	require.NoError(t, err)

	logger.Info("hello file")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close(), "close is idempotent")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "hello file"))
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "info", Format: "json", Output: &buf}))

	comp := Component("collector")
	assert.Equal(t, "collector", comp.Component())
	comp.Info("collected")
	assert.Contains(t, buf.String(), `"component":"collector"`)
	assert.NotNil(t, Get())
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Error("discarded")
	logger.WithComponent("x").Warnf("discarded %s", "too")
	assert.NoError(t, logger.Close())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"DEBUG", false},
		{"invalid", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			_, err := parseLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}
