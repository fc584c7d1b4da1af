package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	// LocalConfigFile is the project-local settings filename. It is not
	// meant to be committed.
	LocalConfigFile = "assetgraph.local.toml"
	// GlobalConfigFile is the settings filename inside GlobalDir.
	GlobalConfigFile = "config.toml"
	globalDirName    = ".assetgraph"
)

// Settings configures a resolver run. It is resolved with Viper precedence:
// CLI flags > assetgraph.local.toml (project-local) > ~/.assetgraph/config.toml
// (global).
type Settings struct {
	// Profile is the active technology profile: "", "universal" or
	// "high-definition".
	Profile        string `toml:"profile,omitempty" mapstructure:"profile"`
	ProfileVersion string `toml:"profile-version,omitempty" mapstructure:"profile-version"`
	CrossPackage   bool   `toml:"cross-package,omitempty" mapstructure:"cross-package"`
	AllowDownload  bool   `toml:"allow-download,omitempty" mapstructure:"allow-download"`
	WorkspaceRoot  string `toml:"workspace-root,omitempty" mapstructure:"workspace-root"`
	Concurrency    int    `toml:"concurrency,omitempty" mapstructure:"concurrency"`
	ScanEmbedded   bool   `toml:"scan-embedded,omitempty" mapstructure:"scan-embedded"`
	Verbosity      int    `toml:"verbosity,omitempty" mapstructure:"verbosity"`

	Normalizer NormalizerSettings `toml:"normalizer,omitempty" mapstructure:"normalizer"`
}

// NormalizerSettings names the external tool that rewrites binary files
// into text serialization. An empty Command disables normalization.
type NormalizerSettings struct {
	Command string   `toml:"command,omitempty" mapstructure:"command"`
	Args    []string `toml:"args,omitempty" mapstructure:"args"`
}

func UnmarshalSettings(data []byte) (*Settings, error) {
	s := &Settings{}
	err := toml.Unmarshal(data, s)

	return s, err
}

func (s *Settings) Marshal() ([]byte, error) {
	return toml.Marshal(s)
}

func LoadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return UnmarshalSettings(data)
}

func SaveFile(path string, s *Settings) error {
	data, err := s.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// GlobalDir returns the path to ~/.assetgraph, creating it if necessary.
func GlobalDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	dir := filepath.Join(home, globalDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return dir, nil
}

// WriteLocal persists settings to assetgraph.local.toml in projectDir.
func WriteLocal(projectDir string, s *Settings) error {
	return SaveFile(filepath.Join(projectDir, LocalConfigFile), s)
}

// WriteGlobal persists settings to ~/.assetgraph/config.toml.
func WriteGlobal(s *Settings) error {
	dir, err := GlobalDir()
	if err != nil {
		return err
	}
	return SaveFile(filepath.Join(dir, GlobalConfigFile), s)
}
