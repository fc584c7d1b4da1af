package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultConcurrency bounds how many assets are analyzed at once when no
// setting says otherwise.
const DefaultConcurrency = 4

// Keys lists every settings key. Flags named after a key override it when
// they are set on the command line.
var Keys = []string{
	"profile",
	"profile-version",
	"cross-package",
	"allow-download",
	"workspace-root",
	"concurrency",
	"scan-embedded",
	"verbosity",
	"normalizer.command",
	"normalizer.args",
}

// Load resolves settings from the global config, the project-local config
// in the working directory and flags. flags may be nil.
func Load(flags *pflag.FlagSet) (*Settings, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("determining home directory: %w", err)
	}
	globalPath := filepath.Join(home, globalDirName, GlobalConfigFile)
	return loadSettings(flags, globalPath, LocalConfigFile)
}

// loadSettings is the internal implementation that accepts explicit paths,
// making it testable without touching the real home directory.
func loadSettings(flags *pflag.FlagSet, globalPath, localPath string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetDefault("concurrency", DefaultConcurrency)

	// Lowest priority: global config
	if _, err := os.Stat(globalPath); err == nil {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", globalPath, err)
		}
	}

	// Higher priority: project-local config
	if _, err := os.Stat(localPath); err == nil {
		v.SetConfigFile(localPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", localPath, err)
		}
	}

	// Highest priority: CLI flags that were explicitly set
	if flags != nil {
		for _, key := range Keys {
			f := flags.Lookup(key)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag --%s: %w", key, err)
			}
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}
	return s, nil
}
