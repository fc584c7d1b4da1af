// Package resolver computes the dependency set of a cataloged asset.
//
// Analyze walks the asset's root file, extracts the references each file
// makes, resolves them through the catalog (variant package first, then the
// current package, then the pre-substitution package, then optionally the
// whole catalog) and recurses into every file not seen before. The outcome
// is written to the asset's Dependencies field.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentpkg/assetgraph/pkg/catalog"
	"github.com/agentpkg/assetgraph/pkg/materialize"
	"github.com/agentpkg/assetgraph/pkg/normalize"
	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoRootFile means the asset has no file to start the walk from.
	ErrNoRootFile = errors.New("asset has no root file")
	// ErrMissingIdentifier means the root file carries no identifier.
	ErrMissingIdentifier = errors.New("root file has no identifier")
)

type Resolver struct {
	catalog      catalog.Catalog
	materializer materialize.Materializer
	normalizer   normalize.Normalizer
	log          logr.Logger

	profile        catalog.Profile
	profileVersion string
	crossPackage   bool
	allowDownload  bool
	scanEmbedded   bool
	workspaceRoot  string

	variantPolicy VariantPolicy
	packagePolicy PackagePolicy
}

func New(c catalog.Catalog, m materialize.Materializer, opts ...Option) *Resolver {
	r := &Resolver{
		catalog:       c,
		materializer:  m,
		normalizer:    normalize.None{},
		log:           logr.Discard(),
		variantPolicy: PreferBundle,
		packagePolicy: PreferProfileName,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Analyze resolves the dependencies of asset starting from its root file:
// the file carrying the asset's identifier, else its first file by path.
// The result is stored in asset.Dependencies and returned. Callers must
// check the returned State; Analyze does not report failures any other way.
func (r *Resolver) Analyze(ctx context.Context, asset *catalog.Asset) catalog.Dependencies {
	root, err := r.rootFile(ctx, *asset)
	if err != nil {
		deps := catalog.Dependencies{State: catalog.Failed, Err: err}
		if ctx.Err() != nil {
			deps = catalog.Dependencies{State: catalog.Partial}
		}
		asset.Dependencies = deps
		return deps
	}
	return r.AnalyzeFile(ctx, asset, root)
}

// AnalyzeFile resolves the dependencies of one specific file of asset.
func (r *Resolver) AnalyzeFile(ctx context.Context, asset *catalog.Asset, root catalog.AssetFile) catalog.Dependencies {
	rn := newRun(*asset, r.workspaceRoot)
	rn.rootFile = root
	defer func() {
		if err := rn.ws.Close(); err != nil {
			r.log.V(1).Info("removing scratch workspace failed", "asset", asset.ID, "error", err.Error())
		}
	}()

	r.walk(ctx, rn)

	deps := rn.finish()
	asset.Dependencies = deps
	return deps
}

func (r *Resolver) walk(ctx context.Context, rn *run) {
	fr := frame{pkg: rn.root}
	root := rn.rootFile

	v, err := r.prepareVariant(ctx, rn.root)
	if err != nil {
		if ctx.Err() != nil {
			rn.settle(catalog.Partial)
			return
		}
		r.log.Info("variant lookup failed, continuing without", "asset", rn.root.ID, "error", err.Error())
	}
	if v != nil {
		rn.variant = v
		original := v.original
		fr = frame{pkg: rn.root, original: &original, variant: v}
		if f, ok := v.override(root.Identifier); ok {
			rn.variantUsed = true
			root = f
			fr = fr.in(v.pkg)
		}
	}

	if root.Identifier != "" {
		rn.visited.Add(root.Key())
	}
	r.visit(ctx, rn, fr, root, true)
}

func (r *Resolver) rootFile(ctx context.Context, asset catalog.Asset) (catalog.AssetFile, error) {
	if asset.Identifier != "" {
		files, err := r.catalog.FindByIdentifier(ctx, asset.Identifier, asset.ID)
		if err != nil {
			return catalog.AssetFile{}, fmt.Errorf("looking up root file of %d: %w", asset.ID, err)
		}
		if len(files) > 0 {
			return files[0], nil
		}
	}
	files, err := r.catalog.FilesOf(ctx, asset.ID)
	if err != nil {
		return catalog.AssetFile{}, fmt.Errorf("listing files of %d: %w", asset.ID, err)
	}
	if len(files) == 0 {
		return catalog.AssetFile{}, fmt.Errorf("asset %d: %w", asset.ID, ErrNoRootFile)
	}
	return files[0], nil
}

// AnalyzeAll analyzes independent assets concurrently, at most concurrency
// at a time (unbounded when <= 0). Each asset gets its own run state and
// scratch workspace. Only cancellation of ctx is reported as an error.
func (r *Resolver) AnalyzeAll(ctx context.Context, assets []*catalog.Asset, concurrency int) error {
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for _, a := range assets {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r.Analyze(gctx, a)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
