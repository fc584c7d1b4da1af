package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups addressing a single record that does
// not exist.
var ErrNotFound = errors.New("not found")

// Catalog is the read-only view of the package database the resolver
// queries during a walk.
type Catalog interface {
	// Asset returns the asset with the given id.
	Asset(ctx context.Context, id int64) (Asset, error)
	// FindByIdentifier returns the files carrying identifier. A scope of 0
	// searches the whole catalog, otherwise only files of that asset.
	FindByIdentifier(ctx context.Context, identifier string, scope int64) ([]AssetFile, error)
	// FindByPath returns the file at the package-relative path.
	FindByPath(ctx context.Context, assetID int64, relPath string) (AssetFile, error)
	// FindByName returns the files of an asset with the given file name,
	// compared case-insensitively.
	FindByName(ctx context.Context, assetID int64, fileName string) ([]AssetFile, error)
	// FindPackageOwning returns the asset owning the file.
	FindPackageOwning(ctx context.Context, fileID int64) (Asset, error)
	// FilesOf returns every file of an asset sorted by path.
	FilesOf(ctx context.Context, assetID int64) ([]AssetFile, error)
	// SiblingVariants returns assets under parentID that support profile.
	// A non-empty versionHint further restricts to variants whose profile
	// version starts with it.
	SiblingVariants(ctx context.Context, parentID int64, profile Profile, versionHint string) ([]Asset, error)
}
