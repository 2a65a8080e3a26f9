package nodes

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
	statex "github.com/tanpawarit/whatsbot-agent/agent/state"
)

// LoadOrCreateState fetches the booking state, creating it on first contact.
// Store failures abort the turn.
func LoadOrCreateState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := store.Init(ctx, in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load booking state: %w", err)
	}
	in.Booking = st
	return in, nil
}
