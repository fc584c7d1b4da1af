package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentpkg/assetgraph/pkg/catalog"
	"github.com/agentpkg/assetgraph/pkg/config"
	"github.com/agentpkg/assetgraph/pkg/project"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write project-local resolver settings",
		Long:  "Prompts for the technology profile and cross-package search, writes " + config.LocalConfigFile + " and adds it to .gitignore.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
		// init does not need settings resolution; skip the root PersistentPreRunE.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	s := &config.Settings{}
	localPath := filepath.Join(wd, config.LocalConfigFile)
	if _, err := os.Stat(localPath); err == nil {
		if s, err = config.LoadFile(localPath); err != nil {
			return err
		}
	}

	if err := promptSettings(s); err != nil {
		return err
	}

	if err := config.WriteLocal(wd, s); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", config.LocalConfigFile)

	added, err := project.EnsureGitignore(wd, project.IgnoreEntries)
	if err != nil {
		return err
	}
	for _, entry := range added {
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s to .gitignore\n", entry)
	}

	return nil
}

// promptSettings uses huh to ask for the profile and cross-package search,
// starting from the current values in s.
func promptSettings(s *config.Settings) error {
	profiles := []catalog.Profile{catalog.ProfileNone, catalog.ProfileUniversal, catalog.ProfileHighDefinition}
	options := make([]huh.Option[string], len(profiles))
	for i, p := range profiles {
		value := p.String()
		if p == catalog.ProfileNone {
			value = ""
		}
		options[i] = huh.NewOption(p.String(), value)
	}

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Technology profile to resolve variant packages for").
				Options(options...).
				Value(&s.Profile),
			huh.NewConfirm().
				Title("Search the whole catalog for references missing from the asset's own package?").
				Value(&s.CrossPackage),
		),
	).Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return fmt.Errorf("init aborted")
		}
		return fmt.Errorf("prompt failed: %w", err)
	}

	return nil
}
