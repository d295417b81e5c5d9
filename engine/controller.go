package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maxbaines/loop/config"
	"github.com/maxbaines/loop/llm"
	"github.com/maxbaines/loop/progress"
	"github.com/maxbaines/loop/tasklist"
)

// State is the controller lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Confirmer answers the between-iterations continue prompt when human
// review is enabled.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(prompt string) (bool, error)

// Confirm calls f.
func (f ConfirmerFunc) Confirm(prompt string) (bool, error) {
	return f(prompt)
}

// IterationResult is the outcome of one iteration.
type IterationResult struct {
	Iteration          int
	Success            bool
	CompletionDetected bool
	TaskDescription    string
	Summary            string
	Decisions          []string
	FilesChanged       []string
	Rounds             int
	Text               string
	Turns              []llm.Message
	Checks             []CheckResult
	Committed          bool
	Err                error
}

// RunResult summarizes a whole run.
type RunResult struct {
	RunID      string
	State      State
	Iterations int
	Completed  bool
	Aborted    bool
	Results    []IterationResult
	Err        error
}

// Options tunes controller behavior beyond what configuration carries.
type Options struct {
	Confirmer         Confirmer
	Guidelines        string
	EventBuffer       int
	DisableAutoCommit bool
}

// Controller owns a run: it drives one conversation loop per iteration,
// parses the structured report, appends progress, runs the feedback checks,
// auto-commits green work, and walks the lifecycle state machine.
type Controller struct {
	cfg        *config.Config
	svc        llm.CompletionService
	tasks      *tasklist.TaskList
	store      *progress.Store
	loop       *ConversationLoop
	dispatcher *Dispatcher
	emitter    *Emitter
	confirm    Confirmer
	guidelines string
	autoCommit bool
	runID      string

	mu    sync.Mutex
	state State
}

// NewController wires a Controller from configuration, a completion
// service, the task list, and the progress store.
func NewController(cfg *config.Config, svc llm.CompletionService, tasks *tasklist.TaskList, store *progress.Store, opts Options) *Controller {
	runID := uuid.New().String()
	emitter := NewEmitter(runID, opts.EventBuffer)

	ws := &Workspace{Dir: cfg.WorkingDir, CommandTimeout: cfg.CommandTimeout()}
	dispatcher := NewDispatcher(DefaultRegistry(), ws, emitter)
	loop := NewConversationLoop(svc, dispatcher, LoopOptions{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		MaxRounds: cfg.MaxToolRounds,
		Emitter:   emitter,
	})

	return &Controller{
		cfg:        cfg,
		svc:        svc,
		tasks:      tasks,
		store:      store,
		loop:       loop,
		dispatcher: dispatcher,
		emitter:    emitter,
		confirm:    opts.Confirmer,
		guidelines: opts.Guidelines,
		autoCommit: !opts.DisableAutoCommit,
		runID:      runID,
		state:      StateIdle,
	}
}

// RunID returns the unique id of this run.
func (c *Controller) RunID() string {
	return c.runID
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Events returns the run's event stream. Consume it from another goroutine;
// the channel closes when Run returns.
func (c *Controller) Events() <-chan Event {
	return c.emitter.Events()
}

// Run executes up to the configured number of iterations and returns the
// terminal result. It returns an error only when the run failed; a user
// abort and an exhausted budget both end in StateCompleted.
func (c *Controller) Run(ctx context.Context) (*RunResult, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("controller already ran (state %s)", state)
	}
	c.state = StateRunning
	c.mu.Unlock()

	defer c.emitter.Close()

	res := &RunResult{RunID: c.runID}
	total := c.cfg.Iterations
	c.emitter.Emit(EventRunStart, map[string]interface{}{
		"iterations": total,
		"model":      c.cfg.Model,
	})

	for i := 1; i <= total; i++ {
		itRes, err := c.runIteration(ctx, i, total)
		res.Iterations = i

		if err != nil {
			res.Results = append(res.Results, *itRes)
			res.State = StateFailed
			res.Err = err
			c.setState(StateFailed)
			c.emitter.Emit(EventRunEnd, map[string]interface{}{
				"state":      string(StateFailed),
				"iterations": len(res.Results),
			})
			return res, err
		}
		res.Results = append(res.Results, *itRes)

		if itRes.CompletionDetected {
			res.Completed = true
			break
		}
		if i == total {
			break
		}

		if c.cfg.HITL && c.confirm != nil {
			c.setState(StatePaused)
			c.emitter.Emit(EventPaused, map[string]interface{}{"iteration": i})
			prompt := fmt.Sprintf("Iteration %d of %d complete. Continue?", i, total)
			ok, err := c.confirm.Confirm(prompt)
			if err != nil || !ok {
				res.Aborted = true
				c.emitter.Emit(EventAborted, map[string]interface{}{"iteration": i})
				break
			}
			c.setState(StateRunning)
			c.emitter.Emit(EventResumed, map[string]interface{}{"iteration": i})
		}
	}

	res.State = StateCompleted
	c.setState(StateCompleted)
	c.emitter.Emit(EventRunEnd, map[string]interface{}{
		"state":      string(StateCompleted),
		"completed":  res.Completed,
		"aborted":    res.Aborted,
		"iterations": len(res.Results),
	})
	return res, nil
}

// runIteration drives one conversation, records progress, and applies the
// post-iteration feedback checks. A non-nil error means the run must stop.
func (c *Controller) runIteration(ctx context.Context, iteration, total int) (*IterationResult, error) {
	c.emitter.Emit(EventIterationStart, map[string]interface{}{
		"iteration": iteration,
		"total":     total,
	})

	entries, err := c.store.Load()
	if err != nil {
		return &IterationResult{Iteration: iteration, Err: err}, err
	}

	systemPrompt := BuildSystemPrompt(PromptInputs{
		TaskSummary:     c.tasks.Summary(),
		ProgressSummary: progress.Summary(entries, 10),
		Guidelines:      c.guidelines,
		WorkingDir:      c.cfg.WorkingDir,
		Model:           c.cfg.Model,
	})
	instruction := fmt.Sprintf(
		"Begin iteration %d of %d. Work on the next pending task from the task list.",
		iteration, total)

	loopRes := c.loop.Run(ctx, systemPrompt, instruction)
	parsed := ParseStructuredOutput(loopRes.Text)

	itRes := &IterationResult{
		Iteration:          iteration,
		Success:            loopRes.Err == nil,
		CompletionDetected: loopRes.CompletionDetected,
		TaskDescription:    parsed.TaskDescription,
		Summary:            parsed.Summary,
		Decisions:          parsed.Decisions,
		FilesChanged:       loopRes.FilesChanged,
		Rounds:             loopRes.Rounds,
		Text:               loopRes.Text,
		Turns:              loopRes.Turns,
		Err:                loopRes.Err,
	}

	entry := progress.Entry{
		Iteration:       iteration,
		Timestamp:       time.Now().UTC(),
		TaskDescription: itRes.TaskDescription,
		Decisions:       itRes.Decisions,
		Summary:         itRes.Summary,
		FilesChanged:    itRes.FilesChanged,
		Success:         itRes.Success,
		Error:           errString(itRes.Err),
	}
	if err := c.store.Append(entry); err != nil {
		if itRes.Err == nil {
			itRes.Err = err
			itRes.Success = false
		}
		return itRes, err
	}

	if itRes.Err != nil {
		return itRes, itRes.Err
	}

	if c.autoCommit && !itRes.CompletionDetected {
		itRes.Checks = RunChecks(ctx, c.cfg.WorkingDir, c.cfg.CheckTimeout())
		c.emitter.Emit(EventChecks, map[string]interface{}{
			"passed": AllPassed(itRes.Checks),
		})
		if AllPassed(itRes.Checks) {
			itRes.Committed = c.commitIteration(ctx, iteration, itRes.TaskDescription)
		}
	}

	c.emitter.Emit(EventIterationEnd, map[string]interface{}{
		"iteration":  iteration,
		"success":    itRes.Success,
		"completion": itRes.CompletionDetected,
		"files":      len(itRes.FilesChanged),
		"rounds":     itRes.Rounds,
	})
	return itRes, nil
}

func (c *Controller) commitIteration(ctx context.Context, iteration int, desc string) bool {
	input, err := json.Marshal(map[string]string{
		"message": commitMessage(iteration, desc),
	})
	if err != nil {
		return false
	}
	out := c.dispatcher.Dispatch(ctx, "git_commit", input)
	committed := !strings.HasPrefix(out, "Error:") && !strings.Contains(out, "No changes to commit")
	c.emitter.Emit(EventCommit, map[string]interface{}{
		"committed": committed,
		"output":    out,
	})
	return committed
}

func commitMessage(iteration int, desc string) string {
	if strings.TrimSpace(desc) == "" {
		desc = "automated changes"
	}
	return fmt.Sprintf("loop: iteration %d: %s", iteration, desc)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
