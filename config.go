package questlock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"
)

// Config is read from questlock.yaml next to the plugin.
type Config struct {
	// AddressLibrary is the address library file, or the directory holding
	// version-*.bin files.
	AddressLibrary string `yaml:"addressLibrary"`

	LogLevel string `yaml:"logLevel"`

	// ArenaSize is used when the loader doesn't supply trampoline memory.
	ArenaSize int `yaml:"arenaSize"`

	// Settings optionally points at a YAML file of fallback game settings.
	Settings string `yaml:"settings"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		AddressLibrary: "Data/F4SE/Plugins",
		LogLevel:       "info",
		ArenaSize:      DefaultArenaSize,
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	buf, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	if cfg.ArenaSize <= 0 {
		cfg.ArenaSize = DefaultArenaSize
	}
	if _, err := cfg.Level(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Level parses LogLevel.
func (c Config) Level() (log.Level, error) {
	if c.LogLevel == "" {
		return log.InfoLevel, nil
	}
	return log.ParseLevel(c.LogLevel)
}
