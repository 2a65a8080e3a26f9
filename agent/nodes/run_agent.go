package nodes

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
)

// TurnRunner produces the reply for one turn. Failed is set instead of an
// error when the model could not be reached.
type TurnRunner interface {
	RunTurn(ctx context.Context, in *GraphState) (TurnResult, error)
}

type TurnResult struct {
	Reply     string
	Failed    bool
	ToolCalls []contractx.ToolCallRecord
}

func RunAgent(ctx context.Context, in *GraphState, runner TurnRunner) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	res, err := runner.RunTurn(ctx, in)
	if err != nil {
		return nil, err
	}
	in.Reply = res.Reply
	in.Failed = res.Failed
	in.ToolCalls = res.ToolCalls
	return in, nil
}
