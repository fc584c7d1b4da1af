package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
)

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("profile", "", "")
	fs.Bool("cross-package", false, "")
	fs.Int("concurrency", 0, "")
	fs.Int("verbosity", 0, "")
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	return fs
}

func writeTestConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestLoadSettings(t *testing.T) {
	tests := map[string]struct {
		global string
		local  string
		args   []string
		want   Settings
	}{
		"no config files returns defaults": {
			want: Settings{Concurrency: DefaultConcurrency},
		},
		"global only": {
			global: "profile = \"universal\"\ncross-package = true\n",
			want:   Settings{Profile: "universal", CrossPackage: true, Concurrency: DefaultConcurrency},
		},
		"local merges over global": {
			global: "profile = \"universal\"\nconcurrency = 2\n",
			local:  "profile = \"high-definition\"\nprofile-version = \"14\"\n",
			want:   Settings{Profile: "high-definition", ProfileVersion: "14", Concurrency: 2},
		},
		"flags override everything": {
			global: "profile = \"universal\"\n",
			local:  "profile = \"high-definition\"\ncross-package = true\n",
			args:   []string{"--profile", "", "--cross-package=false", "--verbosity", "2"},
			want:   Settings{Concurrency: DefaultConcurrency, Verbosity: 2},
		},
		"unset flags do not override": {
			local: "concurrency = 8\n",
			args:  []string{"--verbosity", "1"},
			want:  Settings{Concurrency: 8, Verbosity: 1},
		},
		"normalizer table": {
			local: "[normalizer]\ncommand = \"reserialize\"\nargs = [\"-batch\", \"-quiet\"]\n",
			want: Settings{
				Concurrency: DefaultConcurrency,
				Normalizer:  NormalizerSettings{Command: "reserialize", Args: []string{"-batch", "-quiet"}},
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			globalPath := filepath.Join(dir, "global-config.toml")
			localPath := filepath.Join(dir, LocalConfigFile)
			if tc.global != "" {
				writeTestConfig(t, globalPath, tc.global)
			}
			if tc.local != "" {
				writeTestConfig(t, localPath, tc.local)
			}

			got, err := loadSettings(testFlags(t, tc.args...), globalPath, localPath)
			if err != nil {
				t.Fatalf("loadSettings() error = %v", err)
			}

			if got.Profile != tc.want.Profile ||
				got.ProfileVersion != tc.want.ProfileVersion ||
				got.CrossPackage != tc.want.CrossPackage ||
				got.Concurrency != tc.want.Concurrency ||
				got.Verbosity != tc.want.Verbosity ||
				got.Normalizer.Command != tc.want.Normalizer.Command ||
				!slices.Equal(got.Normalizer.Args, tc.want.Normalizer.Args) {
				t.Errorf("settings = %+v, want %+v", *got, tc.want)
			}
		})
	}
}

func TestLoadSettingsInvalidLocal(t *testing.T) {
	dir := t.TempDir()
	localPath := filepath.Join(dir, LocalConfigFile)
	writeTestConfig(t, localPath, "profile = [unterminated\n")

	if _, err := loadSettings(nil, filepath.Join(dir, "missing.toml"), localPath); err == nil {
		t.Fatal("expected error for malformed local config")
	}
}

func TestWriteLocal(t *testing.T) {
	dir := t.TempDir()
	in := &Settings{Profile: "universal", CrossPackage: true, Concurrency: 3}
	if err := WriteLocal(dir, in); err != nil {
		t.Fatalf("WriteLocal() error = %v", err)
	}

	got, err := loadSettings(nil, filepath.Join(dir, "missing.toml"), filepath.Join(dir, LocalConfigFile))
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	if got.Profile != "universal" || !got.CrossPackage || got.Concurrency != 3 {
		t.Errorf("settings after round trip = %+v", *got)
	}
}

func TestResolverOptions(t *testing.T) {
	tests := map[string]struct {
		settings Settings
		want     int
		wantErr  bool
	}{
		"defaults": {
			settings: Settings{},
			want:     6,
		},
		"with normalizer": {
			settings: Settings{Profile: "urp", Normalizer: NormalizerSettings{Command: "reserialize"}},
			want:     7,
		},
		"unknown profile": {
			settings: Settings{Profile: "mobile"},
			wantErr:  true,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			opts, err := tc.settings.ResolverOptions(logr.Discard())
			if (err != nil) != tc.wantErr {
				t.Fatalf("ResolverOptions() error = %v, wantErr %v", err, tc.wantErr)
			}
			if len(opts) != tc.want {
				t.Errorf("got %d options, want %d", len(opts), tc.want)
			}
		})
	}
}
