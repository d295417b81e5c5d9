package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maxbaines/loop/config"
	"github.com/maxbaines/loop/progress"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the task list and recent progress",
	Long:  `status prints the task list with completion marks and the recent iteration history. It never calls the completion service and needs no API key.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Read(cfgFile)
	if err != nil {
		return err
	}
	tasks, err := loadTaskList(cfg.TaskListPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, tasks.Summary())

	passing := len(tasks.Items) - len(tasks.Pending())
	fmt.Fprintf(out, "%d of %d task(s) passing\n", passing, len(tasks.Items))

	entries, err := progress.NewStore(cfg.ProgressPath).Load()
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.TrimRight(progress.Summary(entries, 10), "\n"))
	return nil
}
