package project

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestFindCatalog(t *testing.T) {
	tests := map[string]struct {
		files   []string
		want    string
		wantErr error
	}{
		"toml preferred": {
			files: []string{"assetgraph.catalog.json", "assetgraph.catalog.toml"},
			want:  "assetgraph.catalog.toml",
		},
		"yaml": {
			files: []string{"assetgraph.catalog.yml"},
			want:  "assetgraph.catalog.yml",
		},
		"none": {
			files:   []string{"catalog.toml"},
			wantErr: ErrNoCatalog,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tc.files {
				if err := os.WriteFile(filepath.Join(dir, f), nil, 0o644); err != nil {
					t.Fatal(err)
				}
			}

			got, err := FindCatalog(dir)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("FindCatalog() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindCatalog() error = %v", err)
			}
			if got != filepath.Join(dir, tc.want) {
				t.Errorf("FindCatalog() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEnsureGitignore(t *testing.T) {
	tests := map[string]struct {
		existing  string
		entries   []string
		wantAdded []string
		wantFile  string
	}{
		"creates file": {
			entries:   []string{"assetgraph.local.toml"},
			wantAdded: []string{"assetgraph.local.toml"},
			wantFile:  "assetgraph.local.toml\n",
		},
		"skips present entries": {
			existing:  "bin/\nassetgraph.local.toml\n",
			entries:   []string{"assetgraph.local.toml"},
			wantAdded: nil,
			wantFile:  "bin/\nassetgraph.local.toml\n",
		},
		"adds newline before appending": {
			existing:  "bin/",
			entries:   []string{"assetgraph.local.toml"},
			wantAdded: []string{"assetgraph.local.toml"},
			wantFile:  "bin/\nassetgraph.local.toml\n",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, ".gitignore")
			if tc.existing != "" {
				if err := os.WriteFile(path, []byte(tc.existing), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			added, err := EnsureGitignore(dir, tc.entries)
			if err != nil {
				t.Fatalf("EnsureGitignore() error = %v", err)
			}
			if !slices.Equal(added, tc.wantAdded) {
				t.Errorf("added = %v, want %v", added, tc.wantAdded)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tc.wantFile {
				t.Errorf(".gitignore = %q, want %q", data, tc.wantFile)
			}
		})
	}
}
