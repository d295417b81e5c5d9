package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maxbaines/loop/config"
	"github.com/maxbaines/loop/tasklist"
)

var guidelinesCmd = &cobra.Command{
	Use:   "guidelines <description...>",
	Short: "Generate a project guidelines document",
	Long: `guidelines asks the model for a coding-guidelines document tailored to
the project description and writes it to the configured guidelines path
(GUIDELINES.md by default). The document is included in every iteration's
system prompt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGuidelines,
}

func init() {
	rootCmd.AddCommand(guidelinesCmd)
}

func runGuidelines(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	text, err := tasklist.GenerateGuidelines(cmd.Context(), svc, cfg.Model, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(cfg.GuidelinesPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(cfg.GuidelinesPath, []byte(text), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfg.GuidelinesPath)
	return nil
}
