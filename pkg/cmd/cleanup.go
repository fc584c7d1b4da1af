package cmd

import (
	"fmt"
	"os"

	"github.com/agentpkg/assetgraph/pkg/store"
	"github.com/spf13/cobra"
)

func newCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove scratch workspaces left behind by interrupted runs",
		Args:  cobra.NoArgs,
		RunE:  runCleanup,
	}
	cmd.Flags().String("workspace-root", "", "directory scratch workspaces are created in (default: system temp dir)")
	cmd.Flags().Duration("older-than", store.OrphanAge, "only remove workspaces unmodified for at least this long")
	return cmd
}

func runCleanup(cmd *cobra.Command, args []string) error {
	root := workspaceRoot()
	minAge, err := cmd.Flags().GetDuration("older-than")
	if err != nil {
		return err
	}
	n, err := store.CleanupOrphans(root, store.WorkspacePrefix, minAge)
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d scratch workspace(s) from %s\n", n, root)
	return err
}

func workspaceRoot() string {
	if Settings != nil && Settings.WorkspaceRoot != "" {
		return Settings.WorkspaceRoot
	}
	return os.TempDir()
}
