// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Game GameSection `toml:"game"`
	Log  LogSection  `toml:"log"`
}

// GameSection maps game-related settings. Unset keys stay nil.
type GameSection struct {
	Name        *string   `toml:"name"`
	Songs       *int      `toml:"songs"`
	TimeLimit   *float64  `toml:"time-limit"`
	Levels      *[]int    `toml:"levels"`
	Styles      *[]string `toml:"styles"`
	Artists     *[]string `toml:"artists"`
	Composers   *[]string `toml:"composers"`
	Candombe    *bool     `toml:"candombe"`
	Alternative *bool     `toml:"alternative"`
	Cancion     *bool     `toml:"cancion"`
	Penalty     *float64  `toml:"penalty"`
	Guess       *string   `toml:"guess"`
	Catalog     *string   `toml:"catalog"`
	Autoplay    *bool     `toml:"autoplay"`
	FocusWeak   *bool     `toml:"focus-weak"`
	WeakTop     *int      `toml:"weak-top"`
	WeakFactor  *float64  `toml:"weak-factor"`
	WeakWindow  *int      `toml:"weak-window"`
}

// LogSection maps logging settings.
type LogSection struct {
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
