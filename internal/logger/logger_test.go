package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FormatFollowsEnvironment(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{"production uses json", "production", true},
		{"development uses pretty", "development", false},
		{"staging uses pretty", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{
				Level:       slog.LevelInfo,
				Environment: tt.environment,
				Writer:      &buf,
			})

			log.Info("place created", "place_id", "place-abc")

			output := buf.String()
			if tt.wantJSON {
				assert.Contains(t, output, `"msg":"place created"`)
				assert.Contains(t, output, `"place_id":"place-abc"`)
			} else {
				assert.Contains(t, output, "place created")
				assert.Contains(t, output, "place_id=place-abc")
			}
		})
	}
}

func TestNew_ExplicitFormatWins(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Level:       slog.LevelInfo,
		Format:      "json",
		Environment: "development",
		Writer:      &buf,
	})

	log.Info("startup")

	assert.Contains(t, buf.String(), `"msg":"startup"`)
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Level:  slog.LevelWarn,
		Format: "json",
		Writer: &buf,
	})

	log.Debug("geocode cache hit")
	log.Info("place created")
	log.Warn("search index unavailable")
	log.Error("store commit failed")

	output := buf.String()
	assert.NotContains(t, output, "geocode cache hit")
	assert.NotContains(t, output, "place created")
	assert.Contains(t, output, "search index unavailable")
	assert.Contains(t, output, "store commit failed")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "input %q", tt.input)
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	var buf bytes.Buffer
	handler := NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	assert.False(t, handler.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, handler.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, handler.Enabled(context.Background(), slog.LevelError))
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	handler := NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	log := slog.New(handler)
	log.Info("place created", "place_id", "place-abc", "creator_id", "user-xyz")

	output := buf.String()
	assert.Contains(t, output, "INF")
	assert.Contains(t, output, "place created")
	assert.Contains(t, output, "place_id=place-abc")
	assert.Contains(t, output, "creator_id=user-xyz")
}

func TestPrettyHandler_LevelIndicators(t *testing.T) {
	var buf bytes.Buffer
	handler := NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(handler)

	log.Debug("a")
	log.Info("b")
	log.Warn("c")
	log.Error("d")

	output := buf.String()
	for _, indicator := range []string{"DBG", "INF", "WRN", "ERR"} {
		assert.Contains(t, output, indicator)
	}
}

func TestPrettyHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	log := slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("component", "geocoder"),
	}))
	log.Info("cache miss", "address", "20 W 34th St")

	output := buf.String()
	assert.Contains(t, output, "component=geocoder")
	assert.Contains(t, output, "address=20 W 34th St")
}

func TestPrettyHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	handler := NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	// An empty group name keeps the same handler.
	assert.Equal(t, handler, handler.WithGroup(""))

	grouped := handler.WithGroup("request")
	assert.NotEqual(t, handler, grouped)

	slog.New(grouped).Info("handled")
	assert.Contains(t, buf.String(), "handled")
}

func TestPrettyHandler_Source(t *testing.T) {
	var buf bytes.Buffer
	handler := NewPrettyHandler(&buf, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
	})

	slog.New(handler).Info("with source")

	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestPrettyHandler_NilOptions(t *testing.T) {
	var buf bytes.Buffer
	handler := NewPrettyHandler(&buf, nil)
	require.NotNil(t, handler.opts)

	slog.New(handler).Info("defaults")
	assert.Contains(t, buf.String(), "defaults")
}
