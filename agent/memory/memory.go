// Package memory keeps the bounded per-session conversation window that is
// replayed to the model on every turn.
package memory

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
)

const DefaultMaxTurns = 20

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// History is what a session remembers: the most recent turns and a rolling
// summary of the turns that fell out of the window.
type History struct {
	Summary string `json:"summary,omitempty"`
	Turns   []Turn `json:"turns,omitempty"`
}

// Messages converts the retained turns into chat messages, oldest first.
func (h History) Messages() []*schema.Message {
	out := make([]*schema.Message, 0, len(h.Turns))
	for _, t := range h.Turns {
		switch t.Role {
		case RoleUser:
			out = append(out, schema.UserMessage(t.Text))
		case RoleAssistant:
			out = append(out, schema.AssistantMessage(t.Text, nil))
		}
	}
	return out
}

func (h History) Clone() History {
	return History{Summary: h.Summary, Turns: slices.Clone(h.Turns)}
}

// Store persists History per session. Load returns an empty History when the
// session has none.
type Store interface {
	Load(ctx context.Context, sessionID string) (History, error)
	Save(ctx context.Context, sessionID string, h History) error
	Delete(ctx context.Context, sessionID string) error
}

// Summarizer folds evicted turns into the previous summary.
type Summarizer interface {
	Summarize(ctx context.Context, previous string, evicted []Turn) (string, error)
}

type Config struct {
	Backend  string `envconfig:"BACKEND" split_words:"true" default:"memory"`
	MaxTurns int    `envconfig:"MAX_TURNS" split_words:"true" default:"20"`
}

type Option func(*Memory)

func WithSummarizer(s Summarizer) Option {
	return func(m *Memory) { m.summarizer = s }
}

func WithMaxTurns(n int) Option {
	return func(m *Memory) {
		if n > 0 {
			m.maxTurns = n
		}
	}
}

// Memory applies the window policy on top of a Store. Callers serialize
// access per session.
type Memory struct {
	store      Store
	maxTurns   int
	summarizer Summarizer
}

func New(store Store, opts ...Option) (*Memory, error) {
	if store == nil {
		return nil, errors.New("memory store is required")
	}
	m := &Memory{store: store, maxTurns: DefaultMaxTurns}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

func (m *Memory) Read(ctx context.Context, sessionID string) (History, error) {
	return m.store.Load(ctx, sessionID)
}

// Append records one completed exchange and trims the window.
func (m *Memory) Append(ctx context.Context, sessionID, userText, assistantText string) error {
	h, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return err
	}

	h.Turns = append(h.Turns,
		Turn{Role: RoleUser, Text: strings.TrimSpace(userText)},
		Turn{Role: RoleAssistant, Text: strings.TrimSpace(assistantText)},
	)

	kept, evicted := window(h.Turns, m.maxTurns)
	h.Turns = kept
	if len(evicted) > 0 && m.summarizer != nil {
		summary, err := m.summarizer.Summarize(ctx, h.Summary, evicted)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Int("evicted", len(evicted)).Msg("memory summarization failed, keeping previous summary")
		} else {
			h.Summary = strings.TrimSpace(summary)
		}
	}

	return m.store.Save(ctx, sessionID, h)
}

func (m *Memory) Clear(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// window keeps the newest max turns. A cut never separates a user turn from
// the assistant reply that follows it.
func window(turns []Turn, max int) (kept, evicted []Turn) {
	if max <= 0 || len(turns) <= max {
		return turns, nil
	}
	cut := len(turns) - max
	if cut < len(turns) && turns[cut].Role == RoleAssistant {
		cut++
	}
	return slices.Clone(turns[cut:]), slices.Clone(turns[:cut])
}
