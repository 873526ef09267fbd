package mip

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
)

var ConfigPath = "../../config.json"

const (
	defaultCbcPath        = "cbc"
	defaultIntegerBits    = 8
	defaultMaxIntegerBits = 24
	maxSupportedBits      = 40 // Keeps binary-expanded coefficients far from int64 overflow
)

type Config struct {
	CbcPath        string        // Executable used by the CBC solver
	Verbose        bool          // Log models and solver output
	TimeLimit      time.Duration // Zero means no limit
	IntegerBits    int           // Initial binary width of integer variables in the pseudo-boolean encoding
	MaxIntegerBits int           // Widest binary width tried before an improving model is declared unbounded
}

func DefaultConfig() Config {
	return Config{
		CbcPath:        defaultCbcPath,
		IntegerBits:    defaultIntegerBits,
		MaxIntegerBits: defaultMaxIntegerBits,
	}
}

// LoadConfig reads a JSON config file; keys that are absent keep their default value
func LoadConfig(file string) (Config, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config file: %w", err)
	}

	var configJson map[string]any
	if err := json.Unmarshal(bytes, &configJson); err != nil {
		return Config{}, fmt.Errorf("cannot parse config file: %w", err)
	}

	config := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &config,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(configJson); err != nil {
		return Config{}, fmt.Errorf("invalid config file: %w", err)
	}

	return config, config.Validate()
}

func (config Config) Validate() error {
	if config.IntegerBits < 1 {
		return fmt.Errorf("integer bits must be positive: %v", config.IntegerBits)
	} else if config.MaxIntegerBits < config.IntegerBits {
		return fmt.Errorf("max integer bits (%v) must not be smaller than integer bits (%v)", config.MaxIntegerBits, config.IntegerBits)
	} else if config.MaxIntegerBits > maxSupportedBits {
		return fmt.Errorf("max integer bits must not exceed %v: %v", maxSupportedBits, config.MaxIntegerBits)
	} else if config.TimeLimit < 0 {
		return fmt.Errorf("time limit must not be negative: %v", config.TimeLimit)
	}
	return nil
}
