package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maxbaines/loop/config"
	"github.com/maxbaines/loop/engine"
	"github.com/maxbaines/loop/llm"
	"github.com/maxbaines/loop/progress"
	"github.com/maxbaines/loop/tasklist"
	"github.com/maxbaines/loop/term"
)

// Version is set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

var (
	cfgFile        string
	iterationsFlag int
	hitlFlag       bool
	sandboxFlag    bool
	verboseFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "loop [iterations]",
	Short: "Run a coding agent against a task list",
	Long: `loop drives a coding agent against a task list. Each iteration sends
the task list and progress history to the model, dispatches the tools it
calls, parses the structured report it returns, and appends the outcome to
the progress file. The run stops when the model reports every task
complete, the iteration budget is spent, or you decline to continue in
--hitl mode.

Examples:
  loop                  run a single iteration
  loop 5                run up to five iterations
  loop 3 --hitl         pause for confirmation between iterations
  loop -n 10 --verbose  ten iterations, echoing tool output`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runLoop,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("loop version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.Flags().IntVarP(&iterationsFlag, "iterations", "n", 0, "iterations to run (overrides the positional count)")
	rootCmd.Flags().BoolVar(&hitlFlag, "hitl", false, "pause for confirmation between iterations")
	rootCmd.Flags().BoolVar(&sandboxFlag, "sandbox", false, "print container guidance (sandboxing is not implemented)")
	rootCmd.Flags().BoolVar(&verboseFlag, "verbose", false, "echo full tool output")
}

// Execute runs the CLI, cancelling all work on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func runLoop(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if sandboxFlag {
		fmt.Fprintln(out, "note: --sandbox is not implemented; run loop inside a container to isolate tool side effects, e.g.")
		fmt.Fprintln(out, `  docker run --rm -it -v "$PWD":/work -w /work <image> loop`)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	iterations, err := resolveIterations(cmd, args, cfg.Iterations)
	if err != nil {
		return err
	}
	cfg.Iterations = iterations
	if hitlFlag {
		cfg.HITL = true
	}
	if verboseFlag {
		cfg.Verbose = true
	}

	tasks, err := loadTaskList(cfg.TaskListPath)
	if err != nil {
		return err
	}
	guidelines, err := readGuidelines(cfg.GuidelinesPath)
	if err != nil {
		return err
	}
	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	ctrl := engine.NewController(cfg, svc, tasks, progress.NewStore(cfg.ProgressPath), engine.Options{
		Confirmer:  stdinConfirmer(cmd.InOrStdin(), out),
		Guidelines: guidelines,
	})

	printer := term.NewPrinter(out, term.DefaultTheme(), cfg.Verbose)
	done := make(chan struct{})
	go func() {
		defer close(done)
		printer.Consume(ctrl.Events())
	}()

	_, err = ctrl.Run(cmd.Context())
	<-done
	return err
}

// resolveIterations applies the precedence flag > positional > config.
func resolveIterations(cmd *cobra.Command, args []string, fallback int) (int, error) {
	n := fallback
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return 0, fmt.Errorf("invalid iteration count %q", args[0])
		}
		n = v
	}
	if cmd.Flags().Changed("iterations") {
		n = iterationsFlag
	}
	if n < 1 {
		return 0, &config.ValidationError{Field: "iterations", Message: "must be at least 1"}
	}
	return n, nil
}

// loadTaskList wraps a missing file with a pointer at loop init.
func loadTaskList(path string) (*tasklist.TaskList, error) {
	tasks, err := tasklist.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf(`%s not found; run "loop init <description>" to create a task list`, path)
	}
	return tasks, err
}

// readGuidelines returns the guidelines document, or empty when the file
// does not exist.
func readGuidelines(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read guidelines: %w", err)
	}
	return string(data), nil
}

func newService(cfg *config.Config) (llm.CompletionService, error) {
	return llm.NewGollmService(llm.GollmOptions{
		Provider:  cfg.Provider,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
	})
}

// stdinConfirmer answers the between-iterations prompt from the terminal.
// Empty input and y/yes continue; anything else, including EOF, aborts.
func stdinConfirmer(in io.Reader, out io.Writer) engine.Confirmer {
	reader := bufio.NewReader(in)
	return engine.ConfirmerFunc(func(prompt string) (bool, error) {
		fmt.Fprintf(out, "%s [Y/n] ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	})
}
