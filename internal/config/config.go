package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/flightpath/internal/datalink"
	"github.com/banshee-data/flightpath/internal/monitoring"
	"github.com/banshee-data/flightpath/internal/reconstruct"
	"github.com/banshee-data/flightpath/internal/units"
)

// DefaultConfigPath is the canonical defaults file, relative to the
// repository root.
const DefaultConfigPath = "config/flightpath.defaults.json"

// Defaults used by the Get* accessors when a field is unset.
const (
	DefaultOutputDir   = "."
	DefaultKMLFile     = "flightpath.kml"
	DefaultTrackFile   = "reconstructed.txt"
	DefaultDBPath      = "flightpath.db"
	DefaultSpeedUnits  = units.KTS
	DefaultUDPPort     = 5005
	DefaultDebugListen = "localhost:8080"
	DefaultGRPCListen  = "localhost:50051"
)

const maxFileSize = 1 * 1024 * 1024

// Config is the flightpath configuration. Every field is optional; unset
// fields fall back to the defaults returned by the Get* methods, so a
// partial file is valid.
type Config struct {
	Input     *string `json:"input,omitempty" env:"INPUT"`
	OutputDir *string `json:"output_dir,omitempty" env:"OUTPUT_DIR"`
	KMLFile   *string `json:"kml_file,omitempty" env:"KML_FILE"`
	TrackFile *string `json:"track_file,omitempty" env:"TRACK_FILE"`
	DBPath    *string `json:"db_path,omitempty" env:"DB_PATH"`

	// Reconstruction
	VelocitySource      *string `json:"velocity_source,omitempty" env:"VELOCITY_SOURCE"`
	OrthonormalizeEvery *int    `json:"orthonormalize_every,omitempty" env:"ORTHONORMALIZE_EVERY"`
	Orthonormalization  *string `json:"orthonormalization,omitempty" env:"ORTHONORMALIZATION"`

	LogLevel   *string `json:"log_level,omitempty" env:"LOG_LEVEL"`
	SpeedUnits *string `json:"speed_units,omitempty" env:"SPEED_UNITS"`

	// Live link
	Serial           SerialConfig `json:"serial" envPrefix:"SERIAL_"`
	UDPPort          *int         `json:"udp_port,omitempty" env:"UDP_PORT"`
	HealthStaleAfter *string      `json:"health_stale_after,omitempty" env:"HEALTH_STALE_AFTER"` // duration string like "5s"
	DebugListen      *string      `json:"debug_listen,omitempty" env:"DEBUG_LISTEN"`
	GRPCListen       *string      `json:"grpc_listen,omitempty" env:"GRPC_LISTEN"`
}

// SerialConfig holds the datalogger serial port settings.
type SerialConfig struct {
	Port     *string `json:"port,omitempty" env:"PORT"`
	BaudRate *int    `json:"baud_rate,omitempty" env:"BAUD_RATE"`
	DataBits *int    `json:"data_bits,omitempty" env:"DATA_BITS"`
	StopBits *int    `json:"stop_bits,omitempty" env:"STOP_BITS"`
	Parity   *string `json:"parity,omitempty" env:"PARITY"`
}

// EmptyConfig returns a Config with every field unset.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig reads a JSON config file. The path must have a .json
// extension and the file must be under 1 MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Load reads path (if not empty), applies FLIGHTPATH_* environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := EmptyConfig()
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the working directory
// or one of its parents. It panics when the file cannot be found and is
// meant for tests.
func MustLoadDefaultConfig() *Config {
	for _, prefix := range []string{"", "../", "../../", "../../../"} {
		if cfg, err := LoadConfig(prefix + DefaultConfigPath); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.VelocitySource != nil {
		if _, err := reconstruct.ParseVelocitySource(*c.VelocitySource); err != nil {
			return err
		}
	}
	if c.Orthonormalization != nil {
		if _, err := reconstruct.ParseMethod(*c.Orthonormalization); err != nil {
			return err
		}
	}
	if c.OrthonormalizeEvery != nil && *c.OrthonormalizeEvery < 0 {
		return fmt.Errorf("orthonormalize_every must be non-negative, got %d", *c.OrthonormalizeEvery)
	}
	if c.LogLevel != nil {
		if _, err := monitoring.ParseLevel(*c.LogLevel); err != nil {
			return err
		}
	}
	if c.SpeedUnits != nil && !units.IsValid(*c.SpeedUnits) {
		return fmt.Errorf("speed_units must be one of %s, got %q", units.GetValidUnitsString(), *c.SpeedUnits)
	}
	if c.UDPPort != nil && (*c.UDPPort < 0 || *c.UDPPort > 65535) {
		return fmt.Errorf("udp_port must be between 0 and 65535, got %d", *c.UDPPort)
	}
	if c.HealthStaleAfter != nil && *c.HealthStaleAfter != "" {
		d, err := time.ParseDuration(*c.HealthStaleAfter)
		if err != nil {
			return fmt.Errorf("invalid health_stale_after '%s': %w", *c.HealthStaleAfter, err)
		}
		if d <= 0 {
			return fmt.Errorf("health_stale_after must be positive, got %s", d)
		}
	}
	if _, err := c.GetPortOptions().Normalize(); err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	return nil
}

func stringOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func (c *Config) GetInput() string     { return stringOr(c.Input, "") }
func (c *Config) GetOutputDir() string { return stringOr(c.OutputDir, DefaultOutputDir) }
func (c *Config) GetKMLFile() string   { return stringOr(c.KMLFile, DefaultKMLFile) }
func (c *Config) GetTrackFile() string { return stringOr(c.TrackFile, DefaultTrackFile) }
func (c *Config) GetDBPath() string    { return stringOr(c.DBPath, DefaultDBPath) }

// GetVelocitySource returns the configured source, recorded by default.
func (c *Config) GetVelocitySource() reconstruct.VelocitySource {
	v, err := reconstruct.ParseVelocitySource(stringOr(c.VelocitySource, ""))
	if err != nil {
		return reconstruct.VelocityRecorded
	}
	return v
}

// GetMethod returns the orthonormalisation method, iterative by default.
func (c *Config) GetMethod() reconstruct.Method {
	m, err := reconstruct.ParseMethod(stringOr(c.Orthonormalization, ""))
	if err != nil {
		return reconstruct.MethodIterative
	}
	return m
}

func (c *Config) GetOrthonormalizeEvery() int {
	if c.OrthonormalizeEvery == nil {
		return reconstruct.DefaultOrthonormalizeEvery
	}
	return *c.OrthonormalizeEvery
}

func (c *Config) GetLogLevel() monitoring.Level {
	level, err := monitoring.ParseLevel(stringOr(c.LogLevel, ""))
	if err != nil {
		return monitoring.LevelInfo
	}
	return level
}

func (c *Config) GetSpeedUnits() string {
	u := stringOr(c.SpeedUnits, DefaultSpeedUnits)
	if !units.IsValid(u) {
		return DefaultSpeedUnits
	}
	return u
}

func (c *Config) GetSerialPort() string { return stringOr(c.Serial.Port, "") }

// GetPortOptions maps the serial settings onto datalink options. Unset
// values are left zero so that Normalize applies its defaults.
func (c *Config) GetPortOptions() datalink.PortOptions {
	var opts datalink.PortOptions
	if c.Serial.BaudRate != nil {
		opts.BaudRate = *c.Serial.BaudRate
	}
	if c.Serial.DataBits != nil {
		opts.DataBits = *c.Serial.DataBits
	}
	if c.Serial.StopBits != nil {
		opts.StopBits = *c.Serial.StopBits
	}
	if c.Serial.Parity != nil {
		opts.Parity = *c.Serial.Parity
	}
	return opts
}

func (c *Config) GetUDPPort() int {
	if c.UDPPort == nil {
		return DefaultUDPPort
	}
	return *c.UDPPort
}

func (c *Config) GetHealthStaleAfter() time.Duration {
	if c.HealthStaleAfter == nil || *c.HealthStaleAfter == "" {
		return datalink.DefaultStaleAfter
	}
	d, err := time.ParseDuration(*c.HealthStaleAfter)
	if err != nil || d <= 0 {
		return datalink.DefaultStaleAfter
	}
	return d
}

func (c *Config) GetDebugListen() string { return stringOr(c.DebugListen, DefaultDebugListen) }
func (c *Config) GetGRPCListen() string  { return stringOr(c.GRPCListen, DefaultGRPCListen) }

// ReconstructOptions builds the Application options for the configured
// input.
func (c *Config) ReconstructOptions() reconstruct.Options {
	return reconstruct.Options{
		Input:               c.GetInput(),
		Velocity:            c.GetVelocitySource(),
		Method:              c.GetMethod(),
		OrthonormalizeEvery: c.GetOrthonormalizeEvery(),
	}
}
