package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFilter_OnlyErrorsAndWarnings(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewLevelFilter(handler, slog.LevelWarn))

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestLevelFilter_Enabled(t *testing.T) {
	inner := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError})
	f := NewLevelFilter(inner, slog.LevelWarn)

	assert.False(t, f.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, f.Enabled(context.Background(), slog.LevelWarn), "inner handler still decides")
	assert.True(t, f.Enabled(context.Background(), slog.LevelError))
}

func TestLevelFilter_HandleBelowMinimum(t *testing.T) {
	m := &mockHandler{enabled: true}
	f := NewLevelFilter(m, slog.LevelWarn)

	assert.NoError(t, f.Handle(context.Background(), record(slog.LevelInfo, "skip")))
	assert.NoError(t, f.Handle(context.Background(), record(slog.LevelError, "keep")))
	assert.Equal(t, 1, m.handled)
}

func TestLevelFilter_DynamicLevel(t *testing.T) {
	var lv slog.LevelVar
	lv.Set(slog.LevelError)
	buf := &bytes.Buffer{}
	logger := slog.New(NewLevelFilter(slog.NewTextHandler(buf, nil), &lv))

	logger.Warn("first")
	lv.Set(slog.LevelWarn)
	logger.Warn("second")

	assert.NotContains(t, buf.String(), "first")
	assert.Contains(t, buf.String(), "second")
}

func TestLevelFilter_WithAttrsAndGroup(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(NewLevelFilter(slog.NewTextHandler(buf, nil), slog.LevelInfo)).
		With("component", "relay").
		WithGroup("g")
	logger.Info("m", "k", "v")

	assert.Contains(t, buf.String(), "component=relay")
	assert.Contains(t, buf.String(), "g.k=v")
}
