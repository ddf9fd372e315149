package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureJSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Options{Level: "warn", Format: "json", Output: &buf}))
	t.Cleanup(func() { _ = Configure(Options{Level: "info", Format: "text"}) })

	Info("hidden")
	Warn("shown", "app", "blog")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "blog", rec["app"])
}

func TestSetLevelAppliesInPlace(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Options{Level: "info", Output: &buf}))
	t.Cleanup(func() { _ = Configure(Options{Level: "info", Format: "text"}) })

	Debug("before")
	SetLevel("debug")
	Debug("after")

	assert.NotContains(t, buf.String(), "before")
	assert.Contains(t, buf.String(), "after")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

type recordingHandler struct {
	records *[]string
}

func (h recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h recordingHandler) Handle(_ context.Context, r slog.Record) error {
	*h.records = append(*h.records, r.Message)
	return nil
}
func (h recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h recordingHandler) WithGroup(string) slog.Handler      { return h }

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b []string
	log := slog.New(NewMultiHandler(recordingHandler{&a}, recordingHandler{&b}))

	log.With("command", "migrate").Info("hello")

	assert.Equal(t, []string{"hello"}, a)
	assert.Equal(t, []string{"hello"}, b)
}
