package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := New(Config{Level: "warn", Format: "json", Output: "stdout"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	log.Info("hidden")
	log.Warn("stock low", "sku", "MIE-01")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "stock low", record["msg"])
	assert.Equal(t, "MIE-01", record["sku"])
	assert.Equal(t, "WARN", record["level"])
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pos.log")
	var stdout bytes.Buffer
	log, closer, err := New(Config{Level: "info", Format: "text", Output: "both", FilePath: path, MaxSizeMB: 1}, &stdout)
	require.NoError(t, err)

	log.Info("checkout complete")
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "checkout complete")
	assert.Contains(t, stdout.String(), "checkout complete")
}

func TestNewRequiresFilePath(t *testing.T) {
	_, _, err := New(Config{Output: "file"}, nil)
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestWriterEmitsOneRecordPerWrite(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	w := Writer{Logger: log, Level: slog.LevelWarn}

	w.Printf("slow query %dms\n", 250)
	n, err := w.Write([]byte("second\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "level=WARN"))
	assert.Contains(t, out, `msg="slow query 250ms"`)
}
