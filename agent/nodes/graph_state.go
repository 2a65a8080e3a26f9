package nodes

import (
	"errors"
	"time"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
	"github.com/tanpawarit/whatsbot-agent/agent/memory"
	statex "github.com/tanpawarit/whatsbot-agent/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply string
	// Failed is set when the reply is the fallback apology.
	Failed    bool
	ToolCalls []contractx.ToolCallRecord
}

type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Booking statex.BookingState
	History memory.History

	Reply     string
	Failed    bool
	ToolCalls []contractx.ToolCallRecord
}
