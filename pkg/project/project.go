package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentpkg/assetgraph/pkg/config"
)

// CatalogFiles are the catalog document names looked up in a project
// directory, in order of preference.
var CatalogFiles = []string{
	"assetgraph.catalog.toml",
	"assetgraph.catalog.yaml",
	"assetgraph.catalog.yml",
	"assetgraph.catalog.json",
}

// IgnoreEntries are the project files that should typically be gitignored.
var IgnoreEntries = []string{
	config.LocalConfigFile,
}

// ErrNoCatalog is returned by FindCatalog when dir holds no catalog document.
var ErrNoCatalog = errors.New("no catalog document found")

// FindCatalog returns the path of the first catalog document present in dir.
func FindCatalog(dir string) (string, error) {
	for _, name := range CatalogFiles {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("checking %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("%s (looked for %s): %w", dir, strings.Join(CatalogFiles, ", "), ErrNoCatalog)
}

// EnsureGitignore ensures that each entry appears somewhere in the .gitignore
// file within dir. Only entries not already present are appended. Returns the
// list of entries that were actually added.
func EnsureGitignore(dir string, entries []string) ([]string, error) {
	path := filepath.Join(dir, ".gitignore")

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(existing), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var toAdd []string
	for _, entry := range entries {
		if !present[entry] {
			toAdd = append(toAdd, entry)
		}
	}

	if len(toAdd) == 0 {
		return nil, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	// Start on a new line if the file doesn't end with one.
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		if _, err := f.WriteString("\n"); err != nil {
			return nil, err
		}
	}

	for _, entry := range toAdd {
		if _, err := f.WriteString(entry + "\n"); err != nil {
			return nil, err
		}
	}

	return toAdd, nil
}
