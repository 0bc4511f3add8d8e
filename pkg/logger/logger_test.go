/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{TraceLevel, "TRACE"},
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(999), "UNKNOWN"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, test.level.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"trace":   TraceLevel,
		"DEBUG":   DebugLevel,
		"info":    InfoLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
		"":        InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestInitializeDefaultsComponent(t *testing.T) {
	require.NoError(t, Initialize(Config{Level: InfoLevel}))
	require.NotNil(t, defaultLogger)
	assert.Equal(t, "tipguard", defaultLogger.config.Component)
}

func TestLoggerPrettyFormatting(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, Component: "test", Output: &buf})

	entry := LogEntry{
		Time:      time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Level:     "INFO",
		Message:   "test message",
		Component: "test",
		Fields:    map[string]interface{}{"b": "2", "a": "1"},
	}

	result := l.formatPretty(entry)

	for _, part := range []string{"2025-01-01 12:00:00", "[INFO]", "test:", "test message", "{a=1, b=2}"} {
		assert.Contains(t, result, part)
	}
}

func TestLoggerNoOpMarker(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, NoOp: true, Output: &buf})
	l.Log(InfoLevel, "would write", Doc("tips/a.md"))
	assert.Contains(t, buf.String(), "[NO-OP]")
	assert.Contains(t, buf.String(), "doc=tips/a.md")
}

func TestLoggerJSONFormatting(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, JSON: true, Component: "test", Output: &buf})

	l.Log(InfoLevel, "test message", String("key", "value"), Strings("ids", []string{"a", "b"}))

	var parsed LogEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &parsed))
	assert.Equal(t, "test message", parsed.Message)
	assert.Equal(t, "INFO", parsed.Level)
	assert.Equal(t, "a,b", parsed.Fields["ids"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: WarnLevel, Output: &buf})

	l.Log(InfoLevel, "info message")
	l.Log(DebugLevel, "debug message")
	l.Log(WarnLevel, "warn message")
	l.Log(ErrorLevel, "error message")

	output := buf.String()
	assert.NotContains(t, output, "info message")
	assert.NotContains(t, output, "debug message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestFieldConstructors(t *testing.T) {
	assert.Equal(t, Field{Key: "key", Value: "value"}, String("key", "value"))
	assert.Equal(t, Field{Key: "count", Value: 42}, Int("count", 42))
	assert.Equal(t, Field{Key: "enabled", Value: true}, Bool("enabled", true))
	assert.Equal(t, Field{Key: "doc", Value: "tips/x.md"}, Doc("tips/x.md"))
}

func TestErrField(t *testing.T) {
	f := Err(errors.New("test error"))
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "test error", f.Value)

	assert.Equal(t, "", Err(nil).Value)
}

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Initialize(Config{Level: InfoLevel, Component: "test"}))
	SetOutput(&buf)

	Info("output test message")
	Debug("filtered debug message")

	assert.Contains(t, buf.String(), "output test message")
	assert.NotContains(t, buf.String(), "filtered debug message")
}

func TestFallbackLogging(t *testing.T) {
	original := defaultLogger
	defaultLogger = nil
	defer func() { defaultLogger = original }()

	// Must not panic without an initialized logger
	Info("fallback test message")
	Warn("fallback warning")
	Debug("dropped")
}

func TestPrettyKeepsFieldOrder(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, Output: &buf})
	l.Log(InfoLevel, "Uploading media", Doc("tips/a.md"), String("key", "a-1234abcd.gif"), Int("bytes", 6))

	line := buf.String()
	assert.Contains(t, line, "tipguard: Uploading media {doc=tips/a.md, key=a-1234abcd.gif, bytes=6}")
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Equal(t, 1, strings.Count(line, "\n"))
}

func TestColorOnlyWhenEnabled(t *testing.T) {
	var plain, colored bytes.Buffer
	New(Config{Level: InfoLevel, Output: &plain}).Log(WarnLevel, "careful")
	New(Config{Level: InfoLevel, UseColor: true, NoOp: true, Output: &colored}).Log(WarnLevel, "careful")

	assert.NotContains(t, plain.String(), "\033[")
	assert.Contains(t, colored.String(), "\033[33mWARN\033[0m")
	assert.Contains(t, colored.String(), "\033[35m[NO-OP]\033[0m")
}

func TestDebugRecordsCaller(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: DebugLevel, Output: &buf})
	l.Log(DebugLevel, "where")
	assert.Contains(t, buf.String(), "logger_test.go:")
}
