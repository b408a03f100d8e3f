// Package assistant assembles the personal assistant: a supervisor agent whose
// tools delegate to calendar, email and contact agents, driven turn by turn
// over persisted threads.
package assistant

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/NikhilKumarMandal/multi-agent-system/agent"
	"github.com/NikhilKumarMandal/multi-agent-system/checkpoint"
	"github.com/NikhilKumarMandal/multi-agent-system/core"
	"github.com/NikhilKumarMandal/multi-agent-system/logging"
	"github.com/NikhilKumarMandal/multi-agent-system/model"
	"github.com/NikhilKumarMandal/multi-agent-system/runner"
)

// Agent and delegation tool names.
const (
	SupervisorName = "supervisor"
	CalendarName   = "calendar_agent"
	EmailName      = "email_agent"
	ContactsName   = "contact_agent"

	ScheduleEventTool  = "schedule_event"
	ManageEmailTool    = "manage_email"
	LookupContactsTool = "lookup_contacts"
)

// Gateways assigns a model gateway to each agent. Nil sub-agent gateways
// fall back to Supervisor.
type Gateways struct {
	Supervisor model.Gateway
	Calendar   model.Gateway
	Email      model.Gateway
	Contacts   model.Gateway
}

// Options configures the assembled assistant.
type Options struct {
	// Store persists supervisor threads. Defaults to an in-memory store.
	Store core.CheckpointStore
	// Agent applies to the supervisor and all sub-agents.
	MaxSteps         int
	MaxParallelTools int
	Retry            agent.RetryPolicy
	// MaxDepth bounds nested delegation.
	MaxDepth           int
	MaxConcurrentTurns int
	Contacts           []Contact
	// LogToolStarts logs every tool call before it runs.
	LogToolStarts bool
	// Now supplies the date rendered into the supervisor prompt.
	Now    func() time.Time
	Logger logging.Logger
}

// Assistant is the supervisor with its sub-agents and the runner driving
// its turns.
type Assistant struct {
	Supervisor *agent.Agent
	Calendar   *agent.Agent
	Email      *agent.Agent
	Contacts   *agent.Agent
	Runner     *runner.Runner

	store core.CheckpointStore
}

// New assembles an assistant whose agents all share gateway.
func New(gateway model.Gateway, optFns ...func(o *Options)) (*Assistant, error) {
	return NewWithGateways(Gateways{Supervisor: gateway}, optFns...)
}

// NewWithGateways assembles an assistant with per-agent gateways.
func NewWithGateways(gw Gateways, optFns ...func(o *Options)) (*Assistant, error) {
	opts := Options{
		MaxSteps:         agent.DefaultMaxSteps,
		MaxParallelTools: 1,
		Retry:            agent.DefaultRetryPolicy(),
		MaxDepth:         agent.DefaultMaxDepth,
		Contacts:         DefaultContacts,
		Now:              time.Now,
		Logger:           logging.NoOpLogger{},
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
	if gw.Supervisor == nil {
		return nil, fmt.Errorf("%w: assistant has no supervisor gateway", core.ErrConfig)
	}
	pick := func(g model.Gateway) model.Gateway {
		if g == nil {
			return gw.Supervisor
		}
		return g
	}

	common := func(o *agent.Options) {
		o.MaxSteps = opts.MaxSteps
		o.MaxParallelTools = opts.MaxParallelTools
		o.Retry = opts.Retry
		o.LogToolStarts = opts.LogToolStarts
		o.Logger = opts.Logger
	}

	calendar, err := agent.New(CalendarName, pick(gw.Calendar), common, func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromText(CalendarAgentPrompt)
		o.Tools = append(o.Tools, CreateCalendarEvent(opts.Logger), GetAvailableTimeSlots(opts.Logger))
	})
	if err != nil {
		return nil, err
	}

	email, err := agent.New(EmailName, pick(gw.Email), common, func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromText(EmailAgentPrompt)
		o.Tools = append(o.Tools, SendEmail(opts.Logger))
	})
	if err != nil {
		return nil, err
	}

	contacts, err := agent.New(ContactsName, pick(gw.Contacts), common, func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromText(ContactAgentPrompt)
		o.Tools = append(o.Tools, GetContacts(opts.Contacts, opts.Logger))
	})
	if err != nil {
		return nil, err
	}

	sub := func(o *agent.SubAgentOptions) {
		o.MaxDepth = opts.MaxDepth
		o.Logger = opts.Logger
	}

	now := opts.Now
	supervisor, err := agent.New(SupervisorName, gw.Supervisor, common, func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromTemplate(SupervisorPrompt, func(context.Context) map[string]any {
			return map[string]any{"today": now().Format("Monday, January 2, 2006")}
		})
		o.Tools = append(o.Tools,
			agent.AsTool(calendar, ScheduleEventTool, ScheduleEventDescription, sub),
			agent.AsTool(email, ManageEmailTool, ManageEmailDescription, sub),
			agent.AsTool(contacts, LookupContactsTool, LookupContactsDescription, sub),
		)
	})
	if err != nil {
		return nil, err
	}

	r := runner.New(supervisor, func(o *runner.Options) {
		o.Store = opts.Store
		o.MaxConcurrentTurns = opts.MaxConcurrentTurns
		o.Logger = opts.Logger
	})

	return &Assistant{
		Supervisor: supervisor,
		Calendar:   calendar,
		Email:      email,
		Contacts:   contacts,
		Runner:     r,
		store:      opts.Store,
	}, nil
}

// Turn sends text on threadID through the supervisor.
func (a *Assistant) Turn(ctx context.Context, threadID, text string) (*runner.TurnResult, error) {
	return a.Runner.Turn(ctx, threadID, text)
}

// History returns the saved history of threadID.
func (a *Assistant) History(ctx context.Context, threadID string) ([]core.Message, error) {
	return a.Runner.History(ctx, threadID)
}

// Close stops accepting turns, cancels the ones in flight and closes the
// store when it is closable.
func (a *Assistant) Close() error {
	a.Runner.Shutdown()
	if c, ok := a.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

