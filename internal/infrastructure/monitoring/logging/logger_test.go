package logging

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// newTestLogger writes JSON entries to a buffer for verification.
func newTestLogger() (Logger, *zaptest.Buffer) {
	buf := &zaptest.Buffer{}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), buf, zapcore.DebugLevel)
	return &zapLogger{z: zap.New(core)}, buf
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := NewLogger(LogConfig{Level: "debug", Format: format, OutputPaths: []string{"stdout"}})
		require.NoError(t, err, format)
		assert.NotNil(t, l)
	}
}

func TestNewLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motiveq.log")
	l, err := NewLogger(LogConfig{Level: "info", OutputPaths: []string{path}})
	require.NoError(t, err)
	l.Info("written")
	assert.FileExists(t, path)
}

func TestNewLogger_BadOutputPath(t *testing.T) {
	l, err := NewLogger(LogConfig{OutputPaths: []string{"/nonexistent-dir/x/y.log"}})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"Error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestZapLogger_FieldTypes(t *testing.T) {
	l, buf := newTestLogger()

	l.Info("evaluated",
		Signature("Atoms[C]"),
		StructureID("1tqn"),
		Int("count", 3),
		Int64("nanos", 42),
		Float64("ratio", 0.5),
		Bool("cached", true),
		Duration("elapsed", time.Second),
		Any("labels", []string{"a", "b"}),
		Err(errors.New("boom")),
	)

	out := buf.String()
	assert.Contains(t, out, `"signature":"Atoms[C]"`)
	assert.Contains(t, out, `"structure_id":"1tqn"`)
	assert.Contains(t, out, `"count":3`)
	assert.Contains(t, out, `"cached":true`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"labels":["a","b"]`)
}

func TestErr_Nil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLoggerFromCore(core)

	child := l.Named("batch").With(RunID("r-1"))
	child.Debug("started")
	l.Warn("parent")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "batch", entries[0].LoggerName)
	assert.Equal(t, "r-1", entries[0].ContextMap()["run_id"])
	assert.Empty(t, entries[1].ContextMap())
}

func TestNopLogger_AllMethodsNoOp(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Debug("msg")
		l.Info("msg")
		l.Warn("msg")
		l.Error("msg")
		l.With(String("k", "v")).Named("x").Info("msg")
	})
}

func TestDefault_SetAndGet(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	core, logs := observer.New(zapcore.InfoLevel)
	SetDefault(NewLoggerFromCore(core))
	SetDefault(nil)

	Default().Info("hello")
	assert.Equal(t, 1, logs.Len())
}
