package materialize

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/agentpkg/assetgraph/pkg/catalog"
	"github.com/agentpkg/assetgraph/pkg/filetype"
	"github.com/agentpkg/assetgraph/pkg/store"
	"github.com/go-logr/logr"
)

// Archive serves assets packed into zip archives. Entries are extracted
// into Cache on first request; remote archives are downloaded only when
// the caller allows it.
type Archive struct {
	Cache store.Store
	// Root resolves relative archive locations.
	Root   string
	Client *http.Client
	Log    logr.Logger
}

var _ Materializer = &Archive{}

func (a *Archive) Ensure(ctx context.Context, asset catalog.Asset, file *catalog.AssetFile, allowDownload bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	archivePath, err := a.archive(ctx, asset, allowDownload)
	if err != nil {
		return "", err
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer zr.Close()

	entry, err := findEntry(&zr.Reader, asset, file)
	if err != nil {
		return "", err
	}

	segs := append(a.assetSegments(asset), strings.Split(path.Clean(entry.Name), "/")...)
	cached, err := a.Cache.Exists(segs...)
	if err != nil {
		return "", fmt.Errorf("checking cache: %w", err)
	}
	if cached {
		return a.Cache.Path(segs...), nil
	}

	rc, err := entry.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s in %s: %w", entry.Name, archivePath, err)
	}
	defer rc.Close()

	if err := store.WriteFrom(a.Cache, rc, segs...); err != nil {
		return "", fmt.Errorf("extracting %s: %w", entry.Name, err)
	}
	return a.Cache.Path(segs...), nil
}

// archive returns a local path to the asset's archive, downloading it into
// the cache when the location is remote.
func (a *Archive) archive(ctx context.Context, asset catalog.Asset, allowDownload bool) (string, error) {
	if !isRemote(asset.Location) {
		return resolveLocal(a.Root, asset.Location), nil
	}

	segs := []string{"downloads", locationHash(asset.Location) + ".zip"}
	cached, err := a.Cache.Exists(segs...)
	if err != nil {
		return "", fmt.Errorf("checking cache: %w", err)
	}
	if cached {
		return a.Cache.Path(segs...), nil
	}
	if !allowDownload {
		return "", fmt.Errorf("asset %d at %s: %w", asset.ID, asset.Location, ErrDownloadNotAllowed)
	}

	a.Log.V(1).Info("downloading archive", "asset", asset.ID, "url", asset.Location)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.Location, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", asset.Location, err)
	}
	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", asset.Location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("downloading %s: %s: %w", asset.Location, resp.Status, ErrNotAvailable)
		}
		return "", fmt.Errorf("downloading %s: %s", asset.Location, resp.Status)
	}

	if err := store.WriteFrom(a.Cache, resp.Body, segs...); err != nil {
		return "", fmt.Errorf("saving %s: %w", asset.Location, err)
	}
	return a.Cache.Path(segs...), nil
}

// assetSegments returns the cache segments for one asset's extracted
// entries. The path is keyed on the location so a moved or re-released
// archive does not reuse stale extractions: archives/<id>/<sha256-prefix>.
func (a *Archive) assetSegments(asset catalog.Asset) []string {
	return []string{"archives", fmt.Sprint(asset.ID), locationHash(asset.Location)}
}

func locationHash(loc string) string {
	h := sha256.Sum256([]byte(loc))
	return hex.EncodeToString(h[:8])
}

// findEntry locates the archive member for file. Members may sit below a
// single top-level folder, so a suffix match on the package-relative path
// is accepted. A nil file selects the first regular member. Members whose
// names would land outside the cache are never selected.
func findEntry(zr *zip.Reader, asset catalog.Asset, file *catalog.AssetFile) (*zip.File, error) {
	if file == nil {
		for _, f := range zr.File {
			if !localEntry(f) {
				continue
			}
			if !f.FileInfo().IsDir() && !strings.HasSuffix(f.Name, filetype.SidecarExt) {
				return f, nil
			}
		}
		return nil, fmt.Errorf("asset %d archive is empty: %w", asset.ID, ErrNotAvailable)
	}

	want := path.Clean(file.Path)
	for _, f := range zr.File {
		if !localEntry(f) {
			continue
		}
		name := path.Clean(f.Name)
		if name == want || strings.HasSuffix(name, "/"+want) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%s not in archive of asset %d: %w", file.Path, asset.ID, ErrNotAvailable)
}

func localEntry(f *zip.File) bool {
	return !strings.Contains(f.Name, `\`) && filepath.IsLocal(filepath.FromSlash(f.Name))
}
