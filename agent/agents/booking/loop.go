package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
	nodex "github.com/tanpawarit/whatsbot-agent/agent/nodes"
)

var _ nodex.TurnRunner = (*Agent)(nil)

func newTemplate(systemPrompt string) einoprompt.ChatTemplate {
	return einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{input}"),
	)
}

// RunTurn renders the prompt and runs the tool loop, retrying once on the
// fallback model when the primary cannot be reached.
func (a *Agent) RunTurn(ctx context.Context, in *nodex.GraphState) (nodex.TurnResult, error) {
	logger := log.With().Str("session_id", in.SessionID).Logger()

	msgs, err := a.render(ctx, in)
	if err != nil {
		logger.Error().Err(err).Str("operation", "render_prompt").Msg("turn failed")
		return nodex.TurnResult{Reply: Apology, Failed: true}, nil
	}

	reply, calls, err := a.loop(ctx, a.primary, in.SessionID, msgs)
	if err != nil && errors.Is(err, contractx.ErrModelInvoke) && a.fallback != nil && ctx.Err() == nil {
		logger.Warn().Err(err).Msg("primary model failed, retrying with fallback")
		// Tools run by the primary may have moved the booking on.
		retry := *in
		if st, getErr := a.store.Get(ctx, in.SessionID); getErr == nil {
			retry.Booking = st
		}
		if msgs, err = a.render(ctx, &retry); err != nil {
			logger.Error().Err(err).Str("operation", "render_prompt").Msg("turn failed")
			return nodex.TurnResult{Reply: Apology, Failed: true, ToolCalls: calls}, nil
		}
		var more []contractx.ToolCallRecord
		reply, more, err = a.loop(ctx, a.fallback, in.SessionID, msgs)
		calls = append(calls, more...)
	}
	if err != nil {
		logger.Error().Err(err).Int("tool_calls", len(calls)).Str("operation", "run_agent").Msg("turn failed")
		return nodex.TurnResult{Reply: Apology, Failed: true, ToolCalls: calls}, nil
	}

	return nodex.TurnResult{Reply: reply, ToolCalls: calls}, nil
}

func (a *Agent) render(ctx context.Context, in *nodex.GraphState) ([]*schema.Message, error) {
	booking, err := json.MarshalIndent(in.Booking, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: marshal booking state: %v", contractx.ErrValidation, err)
	}

	summary := strings.TrimSpace(in.History.Summary)
	if summary == "" {
		summary = "(none)"
	}

	now := in.Now.In(a.loc)
	return a.template.Format(ctx, map[string]any{
		"business_name":  a.cfg.BusinessName,
		"today":          now.Format("Monday, 2006-01-02 15:04"),
		"timezone":       a.loc.String(),
		"booking_state":  string(booking),
		"memory_summary": summary,
		"history":        in.History.Messages(),
		"input":          in.Text,
	})
}

// loop calls the model until it answers without tool calls. msgs is not
// modified.
func (a *Agent) loop(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	sessionID string,
	msgs []*schema.Message,
) (string, []contractx.ToolCallRecord, error) {
	conversation := slices.Clone(msgs)
	var calls []contractx.ToolCallRecord

	for iteration := 1; iteration <= a.cfg.MaxIterations; iteration++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", calls, fmt.Errorf("%w: rate limit wait: %v", contractx.ErrModelInvoke, err)
		}

		resp, err := chatModel.Generate(ctx, conversation)
		if err != nil {
			return "", calls, fmt.Errorf("%w: generate: %v", contractx.ErrModelInvoke, err)
		}
		if resp == nil {
			return "", calls, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
		}

		if len(resp.ToolCalls) == 0 {
			reply := strings.TrimSpace(resp.Content)
			if reply == "" {
				return "", calls, fmt.Errorf("%w: model returned neither text nor tool calls", contractx.ErrSchemaViolation)
			}
			return reply, calls, nil
		}

		conversation = append(conversation, resp)
		for _, tc := range resp.ToolCalls {
			out := a.tools.Invoke(ctx, sessionID, tc.Function.Name, tc.Function.Arguments)
			log.Debug().
				Str("session_id", sessionID).
				Str("tool", tc.Function.Name).
				Int("iteration", iteration).
				Msg("tool call")
			calls = append(calls, contractx.ToolCallRecord{
				Iteration: iteration,
				Tool:      tc.Function.Name,
				Args:      tc.Function.Arguments,
				Result:    out,
			})
			conversation = append(conversation, schema.ToolMessage(out, tc.ID))
		}
	}

	return "", calls, fmt.Errorf("%w: %d iterations", contractx.ErrMaxIterations, a.cfg.MaxIterations)
}
