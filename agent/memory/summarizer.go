package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
)

const summaryInstruction = `You maintain a short running summary of a customer conversation with a booking assistant.
Merge the previous summary with the new exchanges. Keep names, phone numbers, services, dates, times and any decisions.
Reply with the updated summary only, at most five sentences.`

// OpenAISummarizer condenses evicted turns with a chat completion call.
type OpenAISummarizer struct {
	client    *openaisdk.Client
	model     string
	maxTokens int64
}

var _ Summarizer = (*OpenAISummarizer)(nil)

func NewOpenAISummarizer(client *openaisdk.Client, model string, maxTokens int64) (*OpenAISummarizer, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("summary model is required")
	}
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &OpenAISummarizer{client: client, model: strings.TrimSpace(model), maxTokens: maxTokens}, nil
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, previous string, evicted []Turn) (string, error) {
	if len(evicted) == 0 {
		return previous, nil
	}

	var b strings.Builder
	if p := strings.TrimSpace(previous); p != "" {
		b.WriteString("Previous summary:\n")
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	b.WriteString("New exchanges:\n")
	for _, t := range evicted {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
	}

	resp, err := s.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(s.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(summaryInstruction),
			openaisdk.UserMessage(b.String()),
		},
		MaxCompletionTokens: openaisdk.Int(s.maxTokens),
		Temperature:         openaisdk.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("summarize memory: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("summarize memory: empty choices")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", errors.New("summarize memory: empty summary")
	}
	return summary, nil
}
