package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/agentpkg/assetgraph/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// Settings holds the resolved configuration, available to all
	// subcommands after PersistentPreRunE completes.
	Settings *config.Settings
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "assetgraph",
		Short: "Asset dependency resolver",
		Long:  "assetgraph computes the transitive set of files a cataloged asset depends on, across variant and sibling packages.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			Settings = s
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().String("profile", "", "technology profile to substitute variant packages for (universal, high-definition)")
	root.PersistentFlags().Bool("cross-package", false, "resolve references through any package in the catalog")
	root.PersistentFlags().IntP("verbosity", "v", 0, "log verbosity (1 debug, 2 per-file trace)")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newCleanupCmd())
	root.AddCommand(newInitCmd())

	return root
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
