package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
	"github.com/tanpawarit/whatsbot-agent/agent/memory"
)

type MemoryReader interface {
	Read(ctx context.Context, sessionID string) (memory.History, error)
}

// ReadMemory loads the conversation history. A failed read continues the
// turn without history.
func ReadMemory(ctx context.Context, in *GraphState, mem MemoryReader) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	h, err := mem.Read(ctx, in.SessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", in.SessionID).Str("operation", "read_memory").Msg("continuing without history")
		h = memory.History{}
	}
	in.History = h
	return in, nil
}
