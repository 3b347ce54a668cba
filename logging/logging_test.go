package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{" error ", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"loud", InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultLoggerRoutesByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewDefaultLoggerWithWriters(&out, &errOut)
	l.SetLevel(DebugLevel)

	l.Debug("debug line")
	l.Info("info line", Fields{"b": 2, "a": 1})
	l.Warn("warn line")
	l.Error(errors.New("boom"), "error line")

	assert.Contains(t, out.String(), "[DEBUG] debug line")
	assert.Contains(t, out.String(), "[INFO] info line a=1 b=2")
	assert.Contains(t, errOut.String(), "[WARN] warn line")
	assert.Contains(t, errOut.String(), "[ERROR] error line: boom")
	assert.NotContains(t, out.String(), "warn line")
}

func TestDefaultLoggerLevelFilterIsShared(t *testing.T) {
	var out, errOut bytes.Buffer
	root := NewDefaultLoggerWithWriters(&out, &errOut)
	child := root.WithFields(Fields{"component": "test"})

	child.Debug("hidden")
	assert.Empty(t, out.String())

	root.SetLevel(DebugLevel)
	child.Debug("shown")
	assert.Contains(t, out.String(), "[DEBUG] shown component=test")
}

func TestWithContextFields(t *testing.T) {
	var out bytes.Buffer
	l := NewDefaultLoggerWithWriters(&out, &out)
	ctx := ContextWithFields(context.Background(), Fields{"request_id": "abc"})

	l.WithContext(ctx).Info("hello")
	assert.Contains(t, out.String(), "request_id=abc")

	out.Reset()
	l.WithContext(context.Background()).Info("plain")
	assert.NotContains(t, out.String(), "request_id")
}

func TestFatalCallsExit(t *testing.T) {
	var out bytes.Buffer
	l := NewDefaultLoggerWithWriters(&out, &out)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatal(errors.New("bad"), "giving up")
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "[FATAL] giving up: bad")
}

func TestSetGlobalLoggerNil(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	require.True(t, ok)
	Info("dropped")
}
