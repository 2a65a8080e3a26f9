package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"golang.org/x/time/rate"

	"github.com/tanpawarit/whatsbot-agent/agent/memory"
	nodex "github.com/tanpawarit/whatsbot-agent/agent/nodes"
	promptx "github.com/tanpawarit/whatsbot-agent/agent/prompt"
	statex "github.com/tanpawarit/whatsbot-agent/agent/state"
	toolx "github.com/tanpawarit/whatsbot-agent/agent/tool"
)

// Apology is the reply sent when the model cannot produce one.
const Apology = "Sorry, I'm having trouble responding right now. Please try again in a moment."

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

// Memory is the conversation history the agent reads and appends to.
type Memory interface {
	Read(ctx context.Context, sessionID string) (memory.History, error)
	Append(ctx context.Context, sessionID, userText, assistantText string) error
	Clear(ctx context.Context, sessionID string) error
}

type Deps struct {
	Store    statex.Store
	Memory   Memory
	Tools    *toolx.Set
	Primary  einomodel.ToolCallingChatModel
	Fallback einomodel.ToolCallingChatModel
	// Limiter paces model calls across all sessions. Nil means unlimited.
	Limiter *rate.Limiter
	Prompts promptx.PromptSet
}

type Agent struct {
	cfg      Config
	loc      *time.Location
	store    statex.Store
	memory   Memory
	tools    *toolx.Set
	primary  einomodel.BaseChatModel
	fallback einomodel.BaseChatModel
	limiter  *rate.Limiter
	template einoprompt.ChatTemplate
	locks    *sessionLocks

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(ctx context.Context, cfg Config, deps Deps) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Store == nil {
		return nil, errors.New("state store is required")
	}
	if deps.Memory == nil {
		return nil, errors.New("memory is required")
	}
	if deps.Tools == nil {
		return nil, errors.New("tool set is required")
	}
	if deps.Primary == nil {
		return nil, errors.New("primary chat model is required")
	}
	if err := deps.Prompts.Validate(); err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.BusinessName) == "" {
		cfg.BusinessName = "our shop"
	}

	limiter := deps.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	primary, err := deps.Primary.WithTools(deps.Tools.Infos())
	if err != nil {
		return nil, fmt.Errorf("bind tools to primary model: %w", err)
	}
	var fallback einomodel.BaseChatModel
	if deps.Fallback != nil {
		fb, err := deps.Fallback.WithTools(deps.Tools.Infos())
		if err != nil {
			return nil, fmt.Errorf("bind tools to fallback model: %w", err)
		}
		fallback = fb
	}

	a := &Agent{
		cfg:      cfg,
		loc:      loc,
		store:    deps.Store,
		memory:   deps.Memory,
		tools:    deps.Tools,
		primary:  primary,
		fallback: fallback,
		limiter:  limiter,
		template: newTemplate(deps.Prompts.Booking),
		locks:    newSessionLocks(),
		now:      time.Now,
	}

	graphRunner, err := a.compileHandleMessageGraph(ctx)
	if err != nil {
		return nil, err
	}
	a.graphRunner = graphRunner

	return a, nil
}

// HandleMessage runs one turn and returns the assistant reply. Model failures
// yield Apology with a nil error; only invalid input and session store
// failures are returned as errors.
func (a *Agent) HandleMessage(ctx context.Context, sessionID, text string) (string, error) {
	out, err := a.Handle(ctx, sessionID, text)
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

// Handle is HandleMessage with the full turn outcome.
func (a *Agent) Handle(ctx context.Context, sessionID, text string) (nodex.GraphOutput, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nodex.GraphOutput{}, ErrInvalidSession
	}

	unlock, err := a.locks.Lock(ctx, sessionID)
	if err != nil {
		return nodex.GraphOutput{}, fmt.Errorf("wait for session %s: %w", sessionID, err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.TurnTimeout)
	defer cancel()

	return a.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
}

// BookingState returns the stored booking state of a session.
func (a *Agent) BookingState(ctx context.Context, sessionID string) (statex.BookingState, error) {
	return a.store.Get(ctx, sessionID)
}

// ResetSession drops the booking state and history of one session.
func (a *Agent) ResetSession(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrInvalidSession
	}

	unlock, err := a.locks.Lock(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("wait for session %s: %w", sessionID, err)
	}
	defer unlock()

	if err := a.store.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("clear booking state: %w", err)
	}
	if err := a.memory.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("clear memory: %w", err)
	}
	return nil
}

// ResetAll drops every booking state. Histories expire on their own.
func (a *Agent) ResetAll(ctx context.Context) error {
	if err := a.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear all booking states: %w", err)
	}
	return nil
}
