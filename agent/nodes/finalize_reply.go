package nodes

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: agent returned empty reply", contractx.ErrSchemaViolation)
	}
	return GraphOutput{Reply: reply, Failed: in.Failed, ToolCalls: in.ToolCalls}, nil
}
