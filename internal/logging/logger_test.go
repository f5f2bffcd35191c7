package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	logger, err := New("production", "warn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Core().Enabled(zap.InfoLevel) {
		t.Fatal("info should be disabled at warn level")
	}
	if !logger.Core().Enabled(zap.WarnLevel) {
		t.Fatal("warn should be enabled")
	}

	dev, err := New("development", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !dev.Core().Enabled(zap.DebugLevel) {
		t.Fatal("development logger should default to debug")
	}

	if _, err := New("development", "loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
