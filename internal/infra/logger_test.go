package infra

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevelByEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	if got := NewLogger("development").GetLevel(); got != zerolog.DebugLevel {
		t.Fatalf("development level = %s, want debug", got)
	}
	if got := NewLogger("production").GetLevel(); got != zerolog.InfoLevel {
		t.Fatalf("production level = %s, want info", got)
	}
}

func TestNewLoggerHonorsLogLevelOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	if got := NewLogger("production").GetLevel(); got != zerolog.WarnLevel {
		t.Fatalf("level = %s, want warn", got)
	}
}
