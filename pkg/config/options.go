package config

import (
	"fmt"

	"github.com/agentpkg/assetgraph/pkg/catalog"
	"github.com/agentpkg/assetgraph/pkg/normalize"
	"github.com/agentpkg/assetgraph/pkg/resolver"
	"github.com/go-logr/logr"
)

// ResolverOptions maps the settings onto resolver options.
func (s *Settings) ResolverOptions(log logr.Logger) ([]resolver.Option, error) {
	profile, err := catalog.ParseProfile(s.Profile)
	if err != nil {
		return nil, fmt.Errorf("invalid profile setting: %w", err)
	}

	opts := []resolver.Option{
		resolver.WithLogger(log),
		resolver.WithProfile(profile, s.ProfileVersion),
		resolver.WithCrossPackage(s.CrossPackage),
		resolver.WithAllowDownload(s.AllowDownload),
		resolver.WithEmbeddedScan(s.ScanEmbedded),
		resolver.WithWorkspaceRoot(s.WorkspaceRoot),
	}
	if n := s.Normalizer.Command; n != "" {
		opts = append(opts, resolver.WithNormalizer(&normalize.Command{
			Path: n,
			Args: s.Normalizer.Args,
			Log:  log.WithName("normalize"),
		}))
	}
	return opts, nil
}
