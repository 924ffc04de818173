package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	// Test that defaults are set via pointers
	if cfg.ConveyorSpeed == nil || *cfg.ConveyorSpeed != 0.05 {
		t.Errorf("Expected ConveyorSpeed 0.05, got %v", cfg.ConveyorSpeed)
	}
	if cfg.BasePosY == nil || *cfg.BasePosY != 0.0 {
		t.Errorf("Expected BasePosY 0, got %v", cfg.BasePosY)
	}
	if cfg.ProfileSize == nil || *cfg.ProfileSize != 640 {
		t.Errorf("Expected ProfileSize 640, got %v", cfg.ProfileSize)
	}
	if cfg.NbProfiles == nil || *cfg.NbProfiles != 100 {
		t.Errorf("Expected NbProfiles 100, got %v", cfg.NbProfiles)
	}
	if cfg.GrabTimeout == nil || *cfg.GrabTimeout != "5s" {
		t.Errorf("Expected GrabTimeout '5s', got %v", cfg.GrabTimeout)
	}

	// Test getter methods
	if cfg.GetConveyorSpeed() != 0.05 {
		t.Errorf("GetConveyorSpeed() = %f, want 0.05", cfg.GetConveyorSpeed())
	}
	if cfg.GetProfileSize() != 640 {
		t.Errorf("GetProfileSize() = %d, want 640", cfg.GetProfileSize())
	}
	if cfg.GetGrabTimeout() != 5*time.Second {
		t.Errorf("GetGrabTimeout() = %v, want 5s", cfg.GetGrabTimeout())
	}
	if cfg.GetStatsInterval() != time.Minute {
		t.Errorf("GetStatsInterval() = %v, want 1m", cfg.GetStatsInterval())
	}
}

func TestEmptyConfigFallsBackToDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetConveyorSpeed() != 0.05 {
		t.Errorf("GetConveyorSpeed() = %f, want default 0.05", cfg.GetConveyorSpeed())
	}
	if cfg.GetNbProfiles() != 100 {
		t.Errorf("GetNbProfiles() = %d, want default 100", cfg.GetNbProfiles())
	}
	if cfg.GetUDPRcvBuf() != 8*1024*1024 {
		t.Errorf("GetUDPRcvBuf() = %d, want default 8MB", cfg.GetUDPRcvBuf())
	}
	if cfg.GetEmulatorInterval() != 50*time.Millisecond {
		t.Errorf("GetEmulatorInterval() = %v, want default 50ms", cfg.GetEmulatorInterval())
	}
	if cfg.GetPlotDir() != "plots" {
		t.Errorf("GetPlotDir() = %q, want default 'plots'", cfg.GetPlotDir())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	// Partial config: unspecified fields fall back to defaults.
	testJSON := `{
  "conveyor_speed": 0.1,
  "profile_size": 1280,
  "grab_timeout": "10s",
  "emulator_dropout": 0
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}

	if cfg.GetConveyorSpeed() != 0.1 {
		t.Errorf("GetConveyorSpeed() = %f, want 0.1", cfg.GetConveyorSpeed())
	}
	if cfg.GetProfileSize() != 1280 {
		t.Errorf("GetProfileSize() = %d, want 1280", cfg.GetProfileSize())
	}
	if cfg.GetGrabTimeout() != 10*time.Second {
		t.Errorf("GetGrabTimeout() = %v, want 10s", cfg.GetGrabTimeout())
	}
	if cfg.GetEmulatorDropout() != 0 {
		t.Errorf("GetEmulatorDropout() = %d, want 0", cfg.GetEmulatorDropout())
	}
	// Unspecified field retains default.
	if cfg.GetNbProfiles() != 100 {
		t.Errorf("GetNbProfiles() = %d, want default 100", cfg.GetNbProfiles())
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	if _, err := LoadTuningConfig("tuning.yaml"); err == nil {
		t.Error("expected error for non-JSON extension")
	}
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		cfg  TuningConfig
	}{
		{"negative conveyor speed", TuningConfig{ConveyorSpeed: ptrFloat64(-0.05)}},
		{"zero profile size", TuningConfig{ProfileSize: ptrInt(0)}},
		{"zero nb profiles", TuningConfig{NbProfiles: ptrInt(0)}},
		{"bad grab timeout", TuningConfig{GrabTimeout: ptrString("fast")}},
		{"bad emulator interval", TuningConfig{EmulatorInterval: ptrString("50")}},
		{"negative dropout", TuningConfig{EmulatorDropout: ptrInt(-1)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Errorf("Validate() accepted %s", tc.name)
			}
		})
	}
}
