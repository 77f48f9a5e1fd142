package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override, e.g. FLIGHTPATH_DB_PATH
// or FLIGHTPATH_SERIAL_BAUD_RATE.
const EnvPrefix = "FLIGHTPATH_"

// ApplyEnv overrides cfg with any FLIGHTPATH_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
