package config

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Engine.Alpha != 10.0 {
		t.Errorf("expected alpha 10.0, got %v", cfg.Engine.Alpha)
	}
	if cfg.Engine.Lambda != 1.0 {
		t.Errorf("expected lambda 1.0, got %v", cfg.Engine.Lambda)
	}
	if cfg.Model.Kind != "gaussian" {
		t.Errorf("expected gaussian model, got %q", cfg.Model.Kind)
	}
	if cfg.Model.NoiseFloor <= 0 {
		t.Errorf("noise floor must be positive, got %v", cfg.Model.NoiseFloor)
	}
	if cfg.Replay.RatePerSec != 0 {
		t.Errorf("replay pacing should default off, got %v", cfg.Replay.RatePerSec)
	}
}

func TestAutoPopulateFromEnv(t *testing.T) {
	t.Setenv("EVENTSEG_ALPHA", "2.5")
	t.Setenv("EVENTSEG_LAMBDA", "0.25")
	t.Setenv("EVENTSEG_MODEL", "knn")
	t.Setenv("EVENTSEG_DB", "/tmp/runs.db")

	cfg := DefaultConfig()
	cfg.AutoPopulateFromEnv()

	if cfg.Engine.Alpha != 2.5 {
		t.Errorf("expected alpha 2.5, got %v", cfg.Engine.Alpha)
	}
	if cfg.Engine.Lambda != 0.25 {
		t.Errorf("expected lambda 0.25, got %v", cfg.Engine.Lambda)
	}
	if cfg.Model.Kind != "knn" {
		t.Errorf("expected knn model, got %q", cfg.Model.Kind)
	}
	if cfg.DBPath != "/tmp/runs.db" {
		t.Errorf("expected db override, got %q", cfg.DBPath)
	}
}

func TestAutoPopulateIgnoresBadValues(t *testing.T) {
	t.Setenv("EVENTSEG_ALPHA", "not-a-number")

	cfg := DefaultConfig()
	cfg.AutoPopulateFromEnv()

	if cfg.Engine.Alpha != 10.0 {
		t.Errorf("malformed env value should be ignored, got %v", cfg.Engine.Alpha)
	}
}
