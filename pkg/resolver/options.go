package resolver

import (
	"github.com/agentpkg/assetgraph/pkg/catalog"
	"github.com/agentpkg/assetgraph/pkg/normalize"
	"github.com/go-logr/logr"
)

type Option func(*Resolver)

func WithNormalizer(n normalize.Normalizer) Option {
	return func(r *Resolver) { r.normalizer = n }
}

func WithLogger(log logr.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithProfile activates variant substitution for p. version narrows the
// variant search; when nothing matches it the search is repeated without it.
func WithProfile(p catalog.Profile, version string) Option {
	return func(r *Resolver) {
		r.profile = p
		r.profileVersion = version
	}
}

// WithCrossPackage allows references missing from the current, variant and
// original packages to be searched for in the whole catalog.
func WithCrossPackage(enabled bool) Option {
	return func(r *Resolver) { r.crossPackage = enabled }
}

// WithAllowDownload lets the materializer fetch remote content.
func WithAllowDownload(allowed bool) Option {
	return func(r *Resolver) { r.allowDownload = allowed }
}

// WithEmbeddedScan enables recovering texture references from binary model
// files by searching for the texture file names.
func WithEmbeddedScan(enabled bool) Option {
	return func(r *Resolver) { r.scanEmbedded = enabled }
}

// WithWorkspaceRoot sets where per-run scratch workspaces are created.
func WithWorkspaceRoot(dir string) Option {
	return func(r *Resolver) { r.workspaceRoot = dir }
}

func WithVariantPolicy(p VariantPolicy) Option {
	return func(r *Resolver) { r.variantPolicy = p }
}

func WithPackagePolicy(p PackagePolicy) Option {
	return func(r *Resolver) { r.packagePolicy = p }
}
