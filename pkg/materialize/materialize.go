package materialize

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/agentpkg/assetgraph/pkg/catalog"
)

var (
	// ErrNotAvailable means the content does not exist at the asset's
	// location.
	ErrNotAvailable = errors.New("content not available")
	// ErrDownloadNotAllowed means the content is remote and the caller did
	// not allow downloading it.
	ErrDownloadNotAllowed = errors.New("download not allowed")
)

type Materializer interface {
	// Ensure makes file available at a local, readable path and returns it.
	// A nil file addresses the whole content of a single-file asset.
	Ensure(ctx context.Context, asset catalog.Asset, file *catalog.AssetFile, allowDownload bool) (string, error)
}

// Mux routes archive locations (.zip paths and http(s) URLs) to Archive and
// everything else to Dir.
type Mux struct {
	Dir     Materializer
	Archive Materializer
}

var _ Materializer = &Mux{}

func (m *Mux) Ensure(ctx context.Context, asset catalog.Asset, file *catalog.AssetFile, allowDownload bool) (string, error) {
	if IsArchiveLocation(asset.Location) {
		return m.Archive.Ensure(ctx, asset, file, allowDownload)
	}
	return m.Dir.Ensure(ctx, asset, file, allowDownload)
}

// IsArchiveLocation reports whether loc names a zip archive, local or remote.
func IsArchiveLocation(loc string) bool {
	return isRemote(loc) || strings.EqualFold(filepath.Ext(loc), ".zip")
}

func isRemote(loc string) bool {
	return strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://")
}

// resolveLocal joins a relative location onto root.
func resolveLocal(root, loc string) string {
	loc = filepath.FromSlash(loc)
	if filepath.IsAbs(loc) || root == "" {
		return loc
	}
	return filepath.Join(root, loc)
}
