package materialize

import (
	"context"
	"fmt"

	"github.com/agentpkg/assetgraph/pkg/catalog"
	"golang.org/x/sync/singleflight"
)

// Shared collapses concurrent requests for the same file into one call to
// Next. Independent resolution runs materializing overlapping packages then
// share a single extraction or download.
type Shared struct {
	Next Materializer
	g    singleflight.Group
}

var _ Materializer = &Shared{}

func NewShared(next Materializer) *Shared {
	return &Shared{Next: next}
}

func (s *Shared) Ensure(ctx context.Context, asset catalog.Asset, file *catalog.AssetFile, allowDownload bool) (string, error) {
	key := fmt.Sprintf("%d|%t|", asset.ID, allowDownload)
	if file != nil {
		key += file.Path
	}

	ch := s.g.DoChan(key, func() (interface{}, error) {
		return s.Next.Ensure(context.WithoutCancel(ctx), asset, file, allowDownload)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}
