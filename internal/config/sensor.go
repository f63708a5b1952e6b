package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical sensor defaults file.
const DefaultConfigPath = "config/sensor.defaults.json"

// Pulse and detection mode names accepted in the JSON file.
const (
	PulseManual        = "manual"
	PulseEachCycle     = "each_cycle"
	PulseFixedInterval = "fixed_interval"

	DetectColliders   = "colliders"
	DetectRigidBodies = "rigid_bodies"
)

// SensorConfig is the root configuration for one sensor process.
// Every field is optional; the Get* methods supply defaults for omitted keys.
type SensorConfig struct {
	SensorID *string `json:"sensor_id,omitempty"`

	// Pulse routine
	PulseMode     *string `json:"pulse_mode,omitempty"`
	PulseInterval *string `json:"pulse_interval,omitempty"` // duration string like "250ms"
	CycleInterval *string `json:"cycle_interval,omitempty"` // host cycle length for each_cycle

	// Detection
	DetectionMode *string     `json:"detection_mode,omitempty"`
	Range         *float64    `json:"range,omitempty"`
	Origin        *[3]float64 `json:"origin,omitempty"`

	// Signal filter
	EnableTagFilter *bool    `json:"enable_tag_filter,omitempty"`
	AllowedTags     []string `json:"allowed_tags,omitempty"`

	DebugAssertions *bool `json:"debug_assertions,omitempty"`

	// Process wiring
	SnapshotDB *string `json:"snapshot_db,omitempty"`
	Listen     *string `json:"listen,omitempty"`
	GRPCListen *string `json:"grpc_listen,omitempty"`
}

// EmptySensorConfig returns a SensorConfig with all fields unset.
func EmptySensorConfig() *SensorConfig {
	return &SensorConfig{}
}

// LoadSensorConfig loads a SensorConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadSensorConfig(path string) (*SensorConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySensorConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for tests and binaries started from the repository.
func MustLoadDefaultConfig() *SensorConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/sensor/<pkg>/
		"../../../../" + DefaultConfigPath, // from internal/sensor/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadSensorConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Validate checks that the configured values are usable.
func (c *SensorConfig) Validate() error {
	if c.SensorID != nil && *c.SensorID == "" {
		return fmt.Errorf("sensor_id must not be empty")
	}

	if c.PulseMode != nil {
		switch *c.PulseMode {
		case PulseManual, PulseEachCycle, PulseFixedInterval:
		default:
			return fmt.Errorf("unknown pulse_mode %q", *c.PulseMode)
		}
	}

	for name, v := range map[string]*string{"pulse_interval": c.PulseInterval, "cycle_interval": c.CycleInterval} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if c.DetectionMode != nil {
		switch *c.DetectionMode {
		case DetectColliders, DetectRigidBodies:
		default:
			return fmt.Errorf("unknown detection_mode %q", *c.DetectionMode)
		}
	}

	if c.Range != nil && *c.Range <= 0 {
		return fmt.Errorf("range must be positive, got %f", *c.Range)
	}

	for _, tag := range c.AllowedTags {
		if tag == "" {
			return fmt.Errorf("allowed_tags must not contain empty tags")
		}
	}

	return nil
}

// GetSensorID returns the sensor_id value or the default.
func (c *SensorConfig) GetSensorID() string {
	if c.SensorID == nil {
		return "sensor-01"
	}
	return *c.SensorID
}

// GetPulseMode returns the pulse_mode value or the default.
func (c *SensorConfig) GetPulseMode() string {
	if c.PulseMode == nil {
		return PulseEachCycle
	}
	return *c.PulseMode
}

// GetPulseInterval parses and returns the PulseInterval as a time.Duration.
func (c *SensorConfig) GetPulseInterval() time.Duration {
	return parseDurationOr(c.PulseInterval, time.Second)
}

// GetCycleInterval parses and returns the CycleInterval as a time.Duration.
func (c *SensorConfig) GetCycleInterval() time.Duration {
	return parseDurationOr(c.CycleInterval, 50*time.Millisecond)
}

// GetDetectionMode returns the detection_mode value or the default.
func (c *SensorConfig) GetDetectionMode() string {
	if c.DetectionMode == nil {
		return DetectColliders
	}
	return *c.DetectionMode
}

// GetRange returns the detection range in world units.
func (c *SensorConfig) GetRange() float64 {
	if c.Range == nil {
		return 10.0
	}
	return *c.Range
}

// GetOrigin returns the fixed sensor origin.
func (c *SensorConfig) GetOrigin() [3]float64 {
	if c.Origin == nil {
		return [3]float64{}
	}
	return *c.Origin
}

// GetEnableTagFilter returns the enable_tag_filter value or the default.
func (c *SensorConfig) GetEnableTagFilter() bool {
	if c.EnableTagFilter == nil {
		return false
	}
	return *c.EnableTagFilter
}

// GetAllowedTags returns a copy of the allowed tag list.
func (c *SensorConfig) GetAllowedTags() []string {
	return append([]string(nil), c.AllowedTags...)
}

// GetDebugAssertions returns the debug_assertions value or the default.
func (c *SensorConfig) GetDebugAssertions() bool {
	if c.DebugAssertions == nil {
		return false
	}
	return *c.DebugAssertions
}

// GetSnapshotDB returns the snapshot database path ("" disables snapshots).
func (c *SensorConfig) GetSnapshotDB() string {
	if c.SnapshotDB == nil {
		return "sensor_snapshots.db"
	}
	return *c.SnapshotDB
}

// GetListen returns the monitor HTTP listen address.
func (c *SensorConfig) GetListen() string {
	if c.Listen == nil {
		return ":8082"
	}
	return *c.Listen
}

// GetGRPCListen returns the gRPC health listen address ("" disables it).
func (c *SensorConfig) GetGRPCListen() string {
	if c.GRPCListen == nil {
		return ":50061"
	}
	return *c.GRPCListen
}

func parseDurationOr(v *string, fallback time.Duration) time.Duration {
	if v == nil || *v == "" {
		return fallback
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
