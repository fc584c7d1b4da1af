package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/agentpkg/assetgraph/pkg/catalog"
	"github.com/agentpkg/assetgraph/pkg/logging"
	"github.com/agentpkg/assetgraph/pkg/materialize"
	"github.com/agentpkg/assetgraph/pkg/project"
	"github.com/agentpkg/assetgraph/pkg/resolver"
	"github.com/agentpkg/assetgraph/pkg/store"
	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

var (
	flagCatalog string
	flagRoot    string
	flagFile    string
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <asset-id|name>...",
		Short: "Resolve the dependencies of cataloged assets",
		Long: `Loads the catalog, resolves every named asset and prints its dependency
files, total size and the other packages it pulls in.

Assets are given by numeric id or by name. Content is read from each asset's
location: a directory, a .zip archive or an http(s) URL to one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().StringVar(&flagCatalog, "catalog", "", "catalog document (.toml, .yaml, .json); default: assetgraph.catalog.* in the working directory")
	cmd.Flags().StringVar(&flagRoot, "root", "", "directory relative asset locations are resolved against (default: the catalog's directory)")
	cmd.Flags().StringVar(&flagFile, "file", "", "analyze this package-relative file instead of the asset's root file")
	cmd.Flags().String("profile-version", "", "version prefix narrowing the variant package search")
	cmd.Flags().Bool("allow-download", false, "download remote archives")
	cmd.Flags().Bool("scan-embedded", false, "recover texture references embedded in binary models")
	cmd.Flags().Int("concurrency", 0, "assets analyzed at once")
	cmd.Flags().String("workspace-root", "", "directory scratch workspaces are created in (default: system temp dir)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.New(cmd.ErrOrStderr(), Settings.Verbosity)

	catalogPath := flagCatalog
	if catalogPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		if catalogPath, err = project.FindCatalog(wd); err != nil {
			return err
		}
	}
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}

	assets, err := lookupAssets(cmd, cat, args)
	if err != nil {
		return err
	}

	wsRoot := workspaceRoot()
	if n, err := store.CleanupOrphans(wsRoot, store.WorkspacePrefix, store.OrphanAge); err != nil {
		log.Info("removing orphaned scratch workspaces failed", "root", wsRoot, "removed", n, "error", err.Error())
	} else if n > 0 {
		log.V(1).Info("removed orphaned scratch workspaces", "root", wsRoot, "removed", n)
	}

	m, err := newMaterializer(catalogPath, log)
	if err != nil {
		return err
	}
	opts, err := Settings.ResolverOptions(log.WithName("resolver"))
	if err != nil {
		return err
	}
	r := resolver.New(cat, m, opts...)

	if flagFile != "" {
		if len(assets) != 1 {
			return errors.New("--file requires exactly one asset")
		}
		f, err := cat.FindByPath(ctx, assets[0].ID, flagFile)
		if err != nil {
			return err
		}
		r.AnalyzeFile(ctx, assets[0], f)
	} else if err := r.AnalyzeAll(ctx, assets, Settings.Concurrency); err != nil {
		log.Info("analysis interrupted", "error", err.Error())
	}

	out := cmd.OutOrStdout()
	incomplete := 0
	for _, a := range assets {
		printDependencies(out, a)
		if a.Dependencies.State != catalog.Done {
			incomplete++
		}
	}
	if incomplete > 0 {
		return fmt.Errorf("%d of %d asset(s) did not resolve completely", incomplete, len(assets))
	}
	return nil
}

// lookupAssets maps each argument to a cataloged asset, by id when it is
// numeric and by name otherwise.
func lookupAssets(cmd *cobra.Command, cat *catalog.Memory, args []string) ([]*catalog.Asset, error) {
	assets := make([]*catalog.Asset, 0, len(args))
	for _, arg := range args {
		var (
			a   catalog.Asset
			err error
		)
		if id, perr := strconv.ParseInt(arg, 10, 64); perr == nil {
			a, err = cat.Asset(cmd.Context(), id)
		} else {
			a, err = cat.AssetByName(arg)
		}
		if err != nil {
			return nil, err
		}
		assets = append(assets, &a)
	}
	return assets, nil
}

func newMaterializer(catalogPath string, log logr.Logger) (materialize.Materializer, error) {
	root := flagRoot
	if root == "" {
		abs, err := filepath.Abs(catalogPath)
		if err != nil {
			return nil, fmt.Errorf("resolving absolute path for %q: %w", catalogPath, err)
		}
		root = filepath.Dir(abs)
	}
	cache, err := store.Default()
	if err != nil {
		return nil, err
	}
	return materialize.NewShared(&materialize.Mux{
		Dir:     &materialize.Dir{Root: root},
		Archive: &materialize.Archive{Cache: cache, Root: root, Log: log.WithName("archive")},
	}), nil
}

var (
	stateOK   = color.New(color.FgGreen, color.Bold).SprintFunc()
	stateWarn = color.New(color.FgYellow, color.Bold).SprintFunc()
	stateBad  = color.New(color.FgRed, color.Bold).SprintFunc()
	faint     = color.New(color.Faint).SprintFunc()
)

func stateLabel(s catalog.DependencyState) string {
	switch s {
	case catalog.Done:
		return stateOK(s.String())
	case catalog.Partial, catalog.Calculating:
		return stateWarn(s.String())
	default:
		return stateBad(s.String())
	}
}

func printDependencies(w io.Writer, a *catalog.Asset) {
	deps := a.Dependencies
	fmt.Fprintf(w, "%s (%d): %s\n", a.Name, a.ID, stateLabel(deps.State))
	if deps.Err != nil {
		fmt.Fprintf(w, "  error: %v\n", deps.Err)
	}
	if deps.Variant != nil {
		used := "not used"
		if deps.VariantUsed {
			used = "used"
		}
		fmt.Fprintf(w, "  variant: %s (%d), %s\n", deps.Variant.Name, deps.Variant.ID, used)
	}
	for _, f := range deps.Media {
		fmt.Fprintf(w, "  %s %s\n", f.Path, faint(formatSize(f.Size)))
	}
	for _, f := range deps.Scripts {
		fmt.Fprintf(w, "  %s %s\n", f.Path, faint("script, "+formatSize(f.Size)))
	}
	fmt.Fprintf(w, "  %d file(s), %d script(s), %s total\n", len(deps.Media), len(deps.Scripts), formatSize(deps.Size))
	for _, p := range deps.CrossPackage {
		fmt.Fprintf(w, "  requires package: %s (%d)\n", p.Name, p.ID)
	}
	if n := len(deps.Unresolved); n > 0 {
		fmt.Fprintf(w, "  %s\n", faint(fmt.Sprintf("%d unresolved reference(s)", n)))
	}
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
