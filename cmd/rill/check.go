package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rill/internal/diag"
	"rill/internal/driver"
	"rill/internal/project"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <unit.rast>...",
	Short: "Semantically check frontend AST documents",
	Long:  `Check loads one or more AST documents produced by the frontend and runs full semantic analysis over each, printing diagnostics`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	checkCmd.Flags().String("manifest", "", "project manifest to load (defaults to "+project.DefaultFile+" when present)")
	checkCmd.Flags().String("target", "", "layout target from the manifest to validate against")
	checkCmd.Flags().Bool("with-notes", true, "include diagnostic notes in output")
}

func runCheck(cmd *cobra.Command, args []string) error {
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	manifestPath, err := cmd.Flags().GetString("manifest")
	if err != nil {
		return fmt.Errorf("failed to get manifest flag: %w", err)
	}
	targetName, err := cmd.Flags().GetString("target")
	if err != nil {
		return fmt.Errorf("failed to get target flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	colorMode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}

	if err := loadManifest(manifestPath, targetName); err != nil {
		return err
	}

	results, err := driver.CheckPaths(cmd.Context(), args, driver.Options{
		Jobs:           jobs,
		MaxDiagnostics: maxDiagnostics,
	})
	if err != nil {
		return err
	}

	opts := diag.RenderOpts{
		Color:     diag.DetectColor(colorMode),
		WithNotes: withNotes,
	}
	failed := 0
	for _, res := range results {
		diag.Render(os.Stderr, res.Bag, res.Sema.Files, opts)
		if res.Failed() {
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "check failed: %d of %d units had errors\n", failed, len(results))
		os.Exit(1)
	}
	return nil
}

// loadManifest validates the project manifest when one is present. An
// explicitly named manifest must exist; the default one is optional.
func loadManifest(path, target string) error {
	explicit := path != ""
	if !explicit {
		path = project.DefaultFile
	}
	m, err := project.Load(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if _, err := m.LayoutTarget(target); err != nil {
		return err
	}
	return nil
}
