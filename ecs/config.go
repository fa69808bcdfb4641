package ecs

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// maxFastMaskThreshold is the widest mask that fits the inline word.
const maxFastMaskThreshold = 64

// Config holds the settings a World and its systems are built with.
type Config struct {
	// MaxComponents is the number of component ids a mask can hold.
	MaxComponents uint `yaml:"max_components"`
	// FastMaskThreshold selects the inline mask backing when
	// MaxComponents <= FastMaskThreshold. At most 64.
	FastMaskThreshold uint `yaml:"fast_mask_threshold"`
	// EntityCapacity pre-sizes the entity tables.
	EntityCapacity int `yaml:"entity_capacity"`
	// LogLevel is a zerolog level name used by NewLogger.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		MaxComponents:     32,
		FastMaskThreshold: 32,
		EntityCapacity:    1024,
		LogLevel:          "info",
	}
}

// Validate reports whether the configuration can be used to build a World.
func (c Config) Validate() error {
	if c.MaxComponents == 0 {
		return eris.Wrap(ErrInvalidConfig, "max_components must be positive")
	}
	if c.FastMaskThreshold > maxFastMaskThreshold {
		return eris.Wrapf(ErrInvalidConfig, "fast_mask_threshold %d exceeds %d", c.FastMaskThreshold, maxFastMaskThreshold)
	}
	if c.EntityCapacity < 0 {
		return eris.Wrapf(ErrInvalidConfig, "entity_capacity %d is negative", c.EntityCapacity)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return eris.Wrapf(ErrInvalidConfig, "log_level %q: %v", c.LogLevel, err)
	}
	return nil
}

// newMask builds an empty mask sized for this configuration.
func (c Config) newMask() Mask {
	return NewMask(c.MaxComponents, c.FastMaskThreshold)
}

// LoadConfig decodes YAML from r on top of DefaultConfig and validates the result.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, eris.Wrap(err, "failed to decode config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, eris.Wrapf(err, "failed to open config %s", path)
	}
	defer f.Close()

	return LoadConfig(f)
}

// NewLogger builds a console logger at the configured level.
func NewLogger(cfg Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
}
