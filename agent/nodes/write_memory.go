package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
)

type MemoryWriter interface {
	Append(ctx context.Context, sessionID, userText, assistantText string) error
}

// WriteMemory records the exchange. Failed turns leave memory untouched.
func WriteMemory(ctx context.Context, in *GraphState, mem MemoryWriter) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Failed {
		return in, nil
	}

	if err := mem.Append(ctx, in.SessionID, in.Text, in.Reply); err != nil {
		log.Error().Err(err).Str("session_id", in.SessionID).Str("operation", "write_memory").Msg("memory append failed")
	}
	return in, nil
}
