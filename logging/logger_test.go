/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_Levels(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewSlog(slog.New(handler))

	logger.Debug("debug message", "key", "value")
	logger.Info("info message", "table", "SentNotificationData")
	logger.Warn("warn message")
	logger.Error("error message", "op", "get")

	output := buf.String()
	assert.Contains(t, output, "level=DEBUG")
	assert.Contains(t, output, "key=value")
	assert.Contains(t, output, "table=SentNotificationData")
	assert.Contains(t, output, "level=WARN")
	assert.Contains(t, output, "level=ERROR")
	assert.Contains(t, output, "op=get")
}

func TestNewSlogDefault(t *testing.T) {
	logger := NewSlogDefault()
	require.NotNil(t, logger)
	require.NotNil(t, logger.logger)
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()
	require.NotPanics(t, func() {
		logger.Debug("m", "k", "v")
		logger.Info("m")
		logger.Warn("m", nil)
		logger.Error("m", "single")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
