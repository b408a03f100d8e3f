package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NikhilKumarMandal/multi-agent-system/agent"
	"github.com/NikhilKumarMandal/multi-agent-system/checkpoint"
	"github.com/NikhilKumarMandal/multi-agent-system/core"
	"github.com/NikhilKumarMandal/multi-agent-system/internal/util"
	"github.com/NikhilKumarMandal/multi-agent-system/logging"
	"github.com/NikhilKumarMandal/multi-agent-system/model"
)

var (
	// ErrShutdown is returned by Turn after Shutdown.
	ErrShutdown = errors.New("runner: shut down")
	// ErrEmptyMessage is returned for a blank user message.
	ErrEmptyMessage = errors.New("runner: empty message")
)

// Agent is the loop driven by the Runner; *agent.Agent satisfies it.
type Agent interface {
	Name() string
	Run(ctx context.Context, history []core.Message) (*agent.Result, error)
}

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Store persists thread histories. Defaults to an in-memory store.
	Store core.CheckpointStore
	// MaxConcurrentTurns limits turns in flight across all threads (0 = unlimited).
	MaxConcurrentTurns int
	// Logging services.
	Logger logging.Logger
}

// TurnResult is the outcome of one completed turn.
type TurnResult struct {
	TurnID     string
	ThreadID   string
	Answer     string
	StopReason string
	Steps      int
	// Err is set when the step limit ended the turn; the turn was still saved.
	Err         error
	NewMessages []core.Message
	Usage       model.TokenUsage
	Duration    time.Duration
}

type threadLock struct {
	ch   chan struct{}
	refs int
}

// Runner drives supervisor turns: load the thread, append the user
// message, run the agent, save the whole history. load→run→save is a
// critical section per thread; turns on different threads run
// concurrently. Public methods are safe for concurrent use.
type Runner struct {
	agent  Agent
	store  core.CheckpointStore
	logger logging.Logger
	sem    chan struct{}

	mu         sync.Mutex
	threads    map[string]*threadLock
	activeRuns map[string]context.CancelFunc
	closed     bool
}

// New constructs a Runner with optional overrides.
func New(a Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = checkpoint.NewInMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	r := &Runner{
		agent:      a,
		store:      opts.Store,
		logger:     opts.Logger,
		threads:    make(map[string]*threadLock),
		activeRuns: make(map[string]context.CancelFunc),
	}
	if opts.MaxConcurrentTurns > 0 {
		r.sem = make(chan struct{}, opts.MaxConcurrentTurns)
	}
	return r
}

// Turn runs one user turn on threadID. An empty threadID starts a new
// thread whose id is returned in the result.
//
// On a final answer or a tripped step limit the full history is saved and
// a result is returned. On a loop-fatal error or cancellation nothing is
// saved and the error is returned.
func (r *Runner) Turn(ctx context.Context, threadID, text string) (*TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if threadID == "" {
		threadID = util.NewID()
	}

	turnID := util.NewID()
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrShutdown
	}
	r.activeRuns[turnID] = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.activeRuns, turnID)
		r.mu.Unlock()
	}()

	if r.sem != nil {
		select {
		case r.sem <- struct{}{}:
			defer func() { <-r.sem }()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	unlock, err := r.lockThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	r.logger.Debug("runner.turn.start", "agent", r.agent.Name(), "thread_id", threadID, "turn_id", turnID)

	history, err := r.store.Load(ctx, threadID)
	if err != nil {
		r.logger.Error("runner.turn.load_failed", "thread_id", threadID, "turn_id", turnID, "error", err.Error())
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}

	history = append(history, core.NewUserMessage(text))

	res, err := r.agent.Run(ctx, history)
	if err != nil {
		r.logger.Error("runner.turn.failed", "thread_id", threadID, "turn_id", turnID, "error", err.Error())
		return nil, fmt.Errorf("turn %s on thread %s failed: %w", turnID, threadID, err)
	}

	// Abort before save, never during.
	if err := ctx.Err(); err != nil {
		r.logger.Warn("runner.turn.canceled", "thread_id", threadID, "turn_id", turnID)
		return nil, err
	}

	if err := r.store.Save(context.WithoutCancel(ctx), threadID, res.History); err != nil {
		r.logger.Error("runner.turn.save_failed", "thread_id", threadID, "turn_id", turnID, "error", err.Error())
		return nil, fmt.Errorf("failed to save thread %s: %w", threadID, err)
	}

	out := &TurnResult{
		TurnID:      turnID,
		ThreadID:    threadID,
		Answer:      res.Answer,
		StopReason:  res.StopReason,
		Steps:       res.Steps,
		Err:         res.Err,
		NewMessages: res.NewMessages,
		Usage:       res.Usage,
		Duration:    time.Since(start),
	}

	r.logger.Info(
		"runner.turn.completed",
		"thread_id", threadID,
		"turn_id", turnID,
		"steps", out.Steps,
		"stop_reason", out.StopReason,
		"duration_ms", out.Duration.Milliseconds(),
	)

	return out, nil
}

// History returns the persisted history of a thread.
func (r *Runner) History(ctx context.Context, threadID string) ([]core.Message, error) {
	return r.store.Load(ctx, threadID)
}

// Cancel cancels an in-flight turn by id.
func (r *Runner) Cancel(turnID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[turnID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("turn %s not found", turnID)
	}

	cancel()

	return nil
}

// Active returns the ids of turns in flight.
func (r *Runner) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.activeRuns))
	for id := range r.activeRuns {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown cancels every in-flight turn and rejects new ones. Canceled
// turns are not saved.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	r.closed = true
	cancels := make([]context.CancelFunc, 0, len(r.activeRuns))
	for _, c := range r.activeRuns {
		cancels = append(cancels, c)
	}
	r.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	r.logger.Info("runner.shutdown", "canceled_turns", len(cancels))
}

// lockThread acquires the per-thread lock, giving up when ctx ends.
func (r *Runner) lockThread(ctx context.Context, threadID string) (func(), error) {
	r.mu.Lock()
	tl, ok := r.threads[threadID]
	if !ok {
		tl = &threadLock{ch: make(chan struct{}, 1)}
		r.threads[threadID] = tl
	}
	tl.refs++
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(r.threads, threadID)
		}
		r.mu.Unlock()
	}

	select {
	case tl.ch <- struct{}{}:
		return func() {
			<-tl.ch
			release()
		}, nil
	case <-ctx.Done():
		release()
		return nil, ctx.Err()
	}
}
