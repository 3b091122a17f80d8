package infra

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("production", &buf)
	logger.Debug().Msg("hidden")
	logger.Info().Str("project_id", "p1").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %s", out)
	}
	if !strings.Contains(out, `"project_id":"p1"`) || !strings.Contains(out, `"service":"kaleidoscope"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestNewLoggerDevelopmentLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("development", &buf)
	logger.Debug().Msg("poll tick")
	if !strings.Contains(buf.String(), "poll tick") {
		t.Fatalf("debug line missing: %q", buf.String())
	}
}
