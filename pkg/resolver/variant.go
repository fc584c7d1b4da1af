package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agentpkg/assetgraph/pkg/catalog"
)

// VariantPolicy picks one variant package when several siblings support
// the active profile. candidates is never empty.
type VariantPolicy func(candidates []catalog.Asset) catalog.Asset

// PackagePolicy picks the package a cross-package reference is attributed
// to when several packages carry the identifier. candidates is never empty.
type PackagePolicy func(profile catalog.Profile, candidates []catalog.Asset) catalog.Asset

// PreferBundle picks the candidate whose name contains "all", else the
// lexicographically last name.
func PreferBundle(candidates []catalog.Asset) catalog.Asset {
	sorted := append([]catalog.Asset(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].ID < sorted[j].ID
	})
	for _, a := range sorted {
		if strings.Contains(strings.ToLower(a.Name), "all") {
			return a
		}
	}
	return sorted[len(sorted)-1]
}

// PreferProfileName picks the first candidate whose name mentions the
// active profile, else the candidate with the lowest id.
func PreferProfileName(profile catalog.Profile, candidates []catalog.Asset) catalog.Asset {
	sorted := append([]catalog.Asset(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	if key := profile.Key(); key != "" {
		for _, a := range sorted {
			name := strings.ToLower(a.Name)
			if strings.Contains(name, key) || strings.Contains(name, profile.String()) {
				return a
			}
		}
	}
	return sorted[0]
}

// variant is the replacement package chosen for one run.
type variant struct {
	pkg catalog.Asset
	// original is the root asset as it was before substitution.
	original catalog.Asset
	files    map[string]catalog.AssetFile
}

func (v *variant) override(identifier string) (catalog.AssetFile, bool) {
	if v == nil || identifier == "" {
		return catalog.AssetFile{}, false
	}
	f, ok := v.files[identifier]
	return f, ok
}

// prepareVariant finds the sibling package providing replacements for the
// active profile. It returns nil when no profile is active or no sibling
// qualifies.
func (r *Resolver) prepareVariant(ctx context.Context, asset catalog.Asset) (*variant, error) {
	if r.profile == catalog.ProfileNone || asset.ParentID == 0 {
		return nil, nil
	}

	candidates, err := r.siblings(ctx, asset, r.profileVersion)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 && r.profileVersion != "" {
		if candidates, err = r.siblings(ctx, asset, ""); err != nil {
			return nil, err
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	pick := r.variantPolicy(candidates)
	if len(candidates) > 1 {
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.Name
		}
		r.log.Info("multiple variant packages match, using one", "asset", asset.ID, "profile", r.profile.String(), "candidates", names, "picked", pick.Name)
	}

	files, err := r.catalog.FilesOf(ctx, pick.ID)
	if err != nil {
		return nil, fmt.Errorf("listing files of variant %d: %w", pick.ID, err)
	}

	v := &variant{pkg: pick, original: asset, files: make(map[string]catalog.AssetFile, len(files))}
	for _, f := range files {
		if f.Identifier == "" {
			continue
		}
		if _, dup := v.files[f.Identifier]; !dup {
			v.files[f.Identifier] = f
		}
	}
	return v, nil
}

func (r *Resolver) siblings(ctx context.Context, asset catalog.Asset, version string) ([]catalog.Asset, error) {
	found, err := r.catalog.SiblingVariants(ctx, asset.ParentID, r.profile, version)
	if err != nil {
		return nil, fmt.Errorf("querying variants of %d: %w", asset.ID, err)
	}
	out := found[:0:0]
	for _, a := range found {
		if a.ID != asset.ID {
			out = append(out, a)
		}
	}
	return out, nil
}
