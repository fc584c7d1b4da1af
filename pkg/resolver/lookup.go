package resolver

import (
	"context"
	"errors"

	"github.com/agentpkg/assetgraph/pkg/catalog"
)

// frame is the view one recursion level resolves references from. It is
// passed by value; entering another package yields a new frame.
type frame struct {
	// pkg is the package references resolve in first.
	pkg catalog.Asset
	// original is the pre-substitution root package while a variant is
	// active, nil otherwise.
	original *catalog.Asset
	variant  *variant
}

func (f frame) in(pkg catalog.Asset) frame {
	f.pkg = pkg
	return f
}

// resolve maps an identifier to a file and the frame its own references
// resolve from. ok is false when no reachable file carries the identifier.
func (r *Resolver) resolve(ctx context.Context, rn *run, fr frame, identifier string) (catalog.AssetFile, frame, bool, error) {
	if f, ok := fr.variant.override(identifier); ok {
		rn.variantUsed = true
		return f, fr.in(fr.variant.pkg), true, nil
	}

	if f, ok, err := r.findIn(ctx, identifier, fr.pkg.ID); err != nil || ok {
		return f, fr, ok, err
	}

	if fr.original != nil && fr.original.ID != fr.pkg.ID {
		if f, ok, err := r.findIn(ctx, identifier, fr.original.ID); err != nil || ok {
			return f, fr.in(*fr.original), ok, err
		}
	}

	if !r.crossPackage {
		return catalog.AssetFile{}, fr, false, nil
	}
	return r.resolveElsewhere(ctx, rn, fr, identifier)
}

func (r *Resolver) findIn(ctx context.Context, identifier string, assetID int64) (catalog.AssetFile, bool, error) {
	files, err := r.catalog.FindByIdentifier(ctx, identifier, assetID)
	if err != nil || len(files) == 0 {
		return catalog.AssetFile{}, false, err
	}
	return files[0], true, nil
}

// resolveElsewhere searches the whole catalog and attributes the reference
// to one owning package, recorded as a cross-package dependency. The
// returned frame keeps the active variant so overrides still apply below.
func (r *Resolver) resolveElsewhere(ctx context.Context, rn *run, fr frame, identifier string) (catalog.AssetFile, frame, bool, error) {
	files, err := r.catalog.FindByIdentifier(ctx, identifier, 0)
	if err != nil || len(files) == 0 {
		return catalog.AssetFile{}, fr, false, err
	}

	var owners []catalog.Asset
	byOwner := make(map[int64]catalog.AssetFile)
	for _, f := range files {
		if _, ok := byOwner[f.AssetID]; ok {
			continue
		}
		owner, err := r.catalog.FindPackageOwning(ctx, f.ID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				continue
			}
			return catalog.AssetFile{}, fr, false, err
		}
		byOwner[owner.ID] = f
		owners = append(owners, owner)
	}
	if len(owners) == 0 {
		return catalog.AssetFile{}, fr, false, nil
	}

	pick := r.packagePolicy(r.profile, owners)
	rn.addCross(pick)
	r.log.V(1).Info("resolved reference in another package", "identifier", identifier, "package", pick.ID, "name", pick.Name)
	return byOwner[pick.ID], fr.in(pick), true, nil
}

// findPath looks a package-relative path up in the frame's package, then
// in the original package while a variant is active.
func (r *Resolver) findPath(ctx context.Context, fr frame, relPath string) (catalog.AssetFile, frame, bool, error) {
	for _, pkg := range fr.searchOrder() {
		f, err := r.catalog.FindByPath(ctx, pkg.ID, relPath)
		if err == nil {
			return f, fr.in(pkg), true, nil
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			return catalog.AssetFile{}, fr, false, err
		}
	}
	return catalog.AssetFile{}, fr, false, nil
}

// findName looks a file name up the same way findPath does.
func (r *Resolver) findName(ctx context.Context, fr frame, fileName string) (catalog.AssetFile, frame, bool, error) {
	for _, pkg := range fr.searchOrder() {
		files, err := r.catalog.FindByName(ctx, pkg.ID, fileName)
		if err != nil {
			return catalog.AssetFile{}, fr, false, err
		}
		if len(files) > 0 {
			return files[0], fr.in(pkg), true, nil
		}
	}
	return catalog.AssetFile{}, fr, false, nil
}

func (f frame) searchOrder() []catalog.Asset {
	order := []catalog.Asset{f.pkg}
	if f.original != nil && f.original.ID != f.pkg.ID {
		order = append(order, *f.original)
	}
	return order
}
