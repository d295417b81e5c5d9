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

var initMarkdown bool

var initCmd = &cobra.Command{
	Use:   "init <description...>",
	Short: "Generate a task list from a project description",
	Long: `init asks the model to break a project description into a task list
and writes it to the configured task-list path (tasks.json by default).

Example:
  loop init "a REST API for short links with sqlite storage"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initMarkdown, "markdown", false, "also write a Markdown rendering next to the task list")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	description := strings.Join(args, " ")
	list, err := tasklist.Generate(cmd.Context(), svc, cfg.Model, description)
	if err != nil {
		return err
	}
	if err := tasklist.Save(cfg.TaskListPath, list); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d task(s) to %s\n", len(list.Items), cfg.TaskListPath)

	if initMarkdown {
		mdPath := strings.TrimSuffix(cfg.TaskListPath, filepath.Ext(cfg.TaskListPath)) + ".md"
		if err := os.WriteFile(mdPath, []byte(tasklist.MarshalMarkdown(list)), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", mdPath)
	}
	return nil
}
