package catalog

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/agentpkg/assetgraph/pkg/filetype"
)

// Memory is an in-process Catalog. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	assets map[int64]Asset
	files  map[int64]AssetFile
	nextID int64
}

var _ Catalog = &Memory{}

func NewMemory() *Memory {
	return &Memory{
		assets: make(map[int64]Asset),
		files:  make(map[int64]AssetFile),
	}
}

// AddAsset inserts or replaces an asset.
func (m *Memory) AddAsset(a Asset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[a.ID] = a
}

// AddFile inserts a file and returns it with derived fields filled in: an id
// when none was given, the file name and, for Unknown, the type inferred
// from the path.
func (m *Memory) AddFile(f AssetFile) AssetFile {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f.ID == 0 {
		m.nextID++
		for m.files[m.nextID].ID != 0 {
			m.nextID++
		}
		f.ID = m.nextID
	}
	if f.FileName == "" {
		f.FileName = path.Base(f.Path)
	}
	if f.Type == filetype.Unknown {
		f.Type = filetype.FromPath(f.Path)
	}
	m.files[f.ID] = f
	return f
}

// Assets returns every asset sorted by id.
func (m *Memory) Assets() []Asset {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Asset, 0, len(m.assets))
	for _, a := range m.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AssetByName returns the first asset (lowest id) whose name matches,
// ignoring case.
func (m *Memory) AssetByName(name string) (Asset, error) {
	for _, a := range m.Assets() {
		if strings.EqualFold(a.Name, name) {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("asset %q: %w", name, ErrNotFound)
}

func (m *Memory) Asset(ctx context.Context, id int64) (Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assets[id]
	if !ok {
		return Asset{}, fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	return a, nil
}

func (m *Memory) FindByIdentifier(ctx context.Context, identifier string, scope int64) ([]AssetFile, error) {
	if identifier == "" {
		return nil, nil
	}
	return m.filter(func(f AssetFile) bool {
		return f.Identifier == identifier && (scope == 0 || f.AssetID == scope)
	}), nil
}

func (m *Memory) FindByPath(ctx context.Context, assetID int64, relPath string) (AssetFile, error) {
	relPath = path.Clean(relPath)
	found := m.filter(func(f AssetFile) bool {
		return f.AssetID == assetID && f.Path == relPath
	})
	if len(found) == 0 {
		return AssetFile{}, fmt.Errorf("file %q in asset %d: %w", relPath, assetID, ErrNotFound)
	}
	return found[0], nil
}

func (m *Memory) FindByName(ctx context.Context, assetID int64, fileName string) ([]AssetFile, error) {
	return m.filter(func(f AssetFile) bool {
		return f.AssetID == assetID && strings.EqualFold(f.FileName, fileName)
	}), nil
}

func (m *Memory) FindPackageOwning(ctx context.Context, fileID int64) (Asset, error) {
	m.mu.RLock()
	f, ok := m.files[fileID]
	m.mu.RUnlock()
	if !ok {
		return Asset{}, fmt.Errorf("file %d: %w", fileID, ErrNotFound)
	}
	return m.Asset(ctx, f.AssetID)
}

func (m *Memory) FilesOf(ctx context.Context, assetID int64) ([]AssetFile, error) {
	return m.filter(func(f AssetFile) bool { return f.AssetID == assetID }), nil
}

func (m *Memory) SiblingVariants(ctx context.Context, parentID int64, profile Profile, versionHint string) ([]Asset, error) {
	var out []Asset
	for _, a := range m.Assets() {
		if a.ParentID != parentID || !a.Supports(profile) {
			continue
		}
		if versionHint != "" && !strings.HasPrefix(a.ProfileVersion, versionHint) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// filter returns matching files sorted by asset id then path.
func (m *Memory) filter(match func(AssetFile) bool) []AssetFile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []AssetFile
	for _, f := range m.files {
		if match(f) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssetID != out[j].AssetID {
			return out[i].AssetID < out[j].AssetID
		}
		return out[i].Path < out[j].Path
	})
	return out
}
