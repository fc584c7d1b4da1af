package materialize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentpkg/assetgraph/pkg/catalog"
	"github.com/agentpkg/assetgraph/pkg/filetype"
)

// Dir serves assets whose location is a directory on disk. Relative
// locations are taken relative to Root. Single-file assets point directly
// at their file.
type Dir struct {
	Root string
}

var _ Materializer = &Dir{}

func (d *Dir) Ensure(ctx context.Context, asset catalog.Asset, file *catalog.AssetFile, allowDownload bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if asset.Location == "" {
		return "", fmt.Errorf("asset %d has no location: %w", asset.ID, ErrNotAvailable)
	}

	base, err := filepath.Abs(resolveLocal(d.Root, asset.Location))
	if err != nil {
		return "", fmt.Errorf("resolving absolute path for %q: %w", asset.Location, err)
	}

	target := base
	switch {
	case file == nil:
	case asset.Kind == catalog.KindSingleFile:
		if file.Type == filetype.Meta {
			target = base + filetype.SidecarExt
		}
	default:
		target = filepath.Join(base, filepath.FromSlash(file.Path))
	}

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", target, ErrNotAvailable)
		}
		return "", fmt.Errorf("checking %s: %w", target, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory: %w", target, ErrNotAvailable)
	}

	return target, nil
}
