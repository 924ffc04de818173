package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TuningConfig represents the optional JSON tuning file for the profiler.
// All fields are pointers so a partial file only overrides what it names;
// the Get* methods provide fallback defaults for absent fields.
type TuningConfig struct {
	// Transport geometry
	ConveyorSpeed *float64 `json:"conveyor_speed,omitempty"` // mm of advance per profile
	BasePosY      *float64 `json:"base_pos_y,omitempty"`     // world Y of the first profile

	// Container geometry
	ProfileSize *int `json:"profile_size,omitempty"` // points per profile
	NbProfiles  *int `json:"nb_profiles,omitempty"`  // profiles per frame (depth-map mode)

	// Acquisition params
	GrabTimeout   *string `json:"grab_timeout,omitempty"` // duration string like "5s"
	UDPRcvBuf     *int    `json:"udp_rcvbuf,omitempty"`   // socket receive buffer, bytes
	StatsInterval *string `json:"stats_interval,omitempty"`

	// Emulator params
	EmulatorInterval *string `json:"emulator_interval,omitempty"` // time between frames
	EmulatorDropout  *int    `json:"emulator_dropout,omitempty"`  // every Nth sample invalid, 0 = none

	// Monitor params
	PlotDir *string `json:"plot_dir,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultTuningConfig returns a TuningConfig populated with the default
// values for every field.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		ConveyorSpeed:    ptrFloat64(0.05),
		BasePosY:         ptrFloat64(0.0),
		ProfileSize:      ptrInt(640),
		NbProfiles:       ptrInt(100),
		GrabTimeout:      ptrString("5s"),
		UDPRcvBuf:        ptrInt(8 * 1024 * 1024),
		StatsInterval:    ptrString("60s"),
		EmulatorInterval: ptrString("50ms"),
		EmulatorDropout:  ptrInt(97),
		PlotDir:          ptrString("plots"),
	}
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file fall back to defaults
// through the Get* methods, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.ConveyorSpeed != nil && *c.ConveyorSpeed <= 0 {
		return fmt.Errorf("conveyor_speed must be positive, got %g", *c.ConveyorSpeed)
	}
	if c.ProfileSize != nil && *c.ProfileSize <= 0 {
		return fmt.Errorf("profile_size must be positive, got %d", *c.ProfileSize)
	}
	if c.NbProfiles != nil && *c.NbProfiles <= 0 {
		return fmt.Errorf("nb_profiles must be positive, got %d", *c.NbProfiles)
	}
	if c.UDPRcvBuf != nil && *c.UDPRcvBuf < 0 {
		return fmt.Errorf("udp_rcvbuf must be non-negative, got %d", *c.UDPRcvBuf)
	}
	if c.EmulatorDropout != nil && *c.EmulatorDropout < 0 {
		return fmt.Errorf("emulator_dropout must be non-negative, got %d", *c.EmulatorDropout)
	}

	for name, v := range map[string]*string{
		"grab_timeout":      c.GrabTimeout,
		"stats_interval":    c.StatsInterval,
		"emulator_interval": c.EmulatorInterval,
	} {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
		}
	}

	return nil
}

// GetConveyorSpeed returns the conveyor advance per profile in mm.
func (c *TuningConfig) GetConveyorSpeed() float64 {
	if c.ConveyorSpeed == nil {
		return 0.05 // default
	}
	return *c.ConveyorSpeed
}

// GetBasePosY returns the world Y of the first profile of the first frame.
func (c *TuningConfig) GetBasePosY() float64 {
	if c.BasePosY == nil {
		return 0.0
	}
	return *c.BasePosY
}

// GetProfileSize returns the number of points per profile.
func (c *TuningConfig) GetProfileSize() int {
	if c.ProfileSize == nil {
		return 640
	}
	return *c.ProfileSize
}

// GetNbProfiles returns the number of profiles per depth-map frame.
func (c *TuningConfig) GetNbProfiles() int {
	if c.NbProfiles == nil {
		return 100
	}
	return *c.NbProfiles
}

// GetGrabTimeout returns the acquisition timeout as a duration.
func (c *TuningConfig) GetGrabTimeout() time.Duration {
	if c.GrabTimeout == nil {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(*c.GrabTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetUDPRcvBuf returns the UDP socket receive buffer size in bytes.
func (c *TuningConfig) GetUDPRcvBuf() int {
	if c.UDPRcvBuf == nil {
		return 8 * 1024 * 1024
	}
	return *c.UDPRcvBuf
}

// GetStatsInterval returns the stats logging interval as a duration.
func (c *TuningConfig) GetStatsInterval() time.Duration {
	if c.StatsInterval == nil {
		return time.Minute
	}
	d, err := time.ParseDuration(*c.StatsInterval)
	if err != nil {
		return time.Minute
	}
	return d
}

// GetEmulatorInterval returns the emulator frame interval as a duration.
func (c *TuningConfig) GetEmulatorInterval() time.Duration {
	if c.EmulatorInterval == nil {
		return 50 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.EmulatorInterval)
	if err != nil {
		return 50 * time.Millisecond
	}
	return d
}

// GetEmulatorDropout returns the emulator invalid-sample period.
func (c *TuningConfig) GetEmulatorDropout() int {
	if c.EmulatorDropout == nil {
		return 97
	}
	return *c.EmulatorDropout
}

// GetPlotDir returns the base directory for PNG snapshots.
func (c *TuningConfig) GetPlotDir() string {
	if c.PlotDir == nil {
		return "plots"
	}
	return *c.PlotDir
}
