package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"sigs.k8s.io/yaml"
)

// Document is the on-disk form of a catalog: a list of packages, each with
// its files. TOML documents use [[package]] / [[package.file]] tables; YAML
// and JSON documents use "packages" / "files" keys.
type Document struct {
	Packages []PackageEntry `toml:"package" json:"packages"`
}

type PackageEntry struct {
	Asset
	Files []AssetFile `toml:"file,omitempty" json:"files,omitempty"`
}

func UnmarshalTOML(data []byte) (*Document, error) {
	doc := &Document{}
	err := toml.Unmarshal(data, doc)
	return doc, err
}

func UnmarshalYAML(data []byte) (*Document, error) {
	doc := &Document{}
	err := yaml.Unmarshal(data, doc)
	return doc, err
}

func (d *Document) Marshal() ([]byte, error) {
	return toml.Marshal(d)
}

// Catalog builds an in-memory catalog from the document.
func (d *Document) Catalog() (*Memory, error) {
	m := NewMemory()
	seen := make(map[int64]bool, len(d.Packages))
	for _, p := range d.Packages {
		if p.ID == 0 {
			return nil, fmt.Errorf("package %q has no id", p.Name)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate package id %d", p.ID)
		}
		seen[p.ID] = true
		m.AddAsset(p.Asset)

		for _, f := range p.Files {
			if f.Path == "" {
				return nil, fmt.Errorf("package %d has a file without a path", p.ID)
			}
			f.AssetID = p.ID
			f.Path = filepath.ToSlash(f.Path)
			m.AddFile(f)
		}
	}
	return m, nil
}

// Load reads a catalog document. The format is chosen by extension: .toml,
// or .yaml/.yml/.json.
func Load(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc *Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		doc, err = UnmarshalTOML(data)
	case ".yaml", ".yml", ".json":
		doc, err = UnmarshalYAML(data)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc.Catalog()
}

func SaveFile(path string, doc *Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
