// Package openai adapts the OpenAI Chat Completions API (streaming, with
// function/tool calling) to the provider.Provider stream contract.
package openai

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentcore/provider"
	"github.com/openai/openai-go"
)

// aggCall aggregates partial tool call deltas (id, name, arguments) until the
// finish reason arrives. Internal helper.
type aggCall struct {
	id, name, args string
	announced      bool
}

// Options configure the OpenAI provider adapter.
type Options struct {
	Model string
}

// Provider wraps the OpenAI Chat Completions API behind provider.Provider.
type Provider struct {
	client *openai.Client
	opts   Options
}

// New creates an adapter using the default client (API key from environment).
func New(optFns ...func(o *Options)) *Provider {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an adapter from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{Model: openai.ChatModelGPT4oMini}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

// CreateMessage implements provider.Provider by draining one streaming chat
// completion into the unified StreamEvent sequence.
func (p *Provider) CreateMessage(ctx context.Context, req provider.Request) (<-chan provider.StreamEvent, <-chan error) {
	out := make(chan provider.StreamEvent, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := p.buildParams(req)
		stream := p.client.Chat.Completions.NewStreaming(ctx, params)

		agg := map[int64]*aggCall{}
		var inputTokens, outputTokens int

		for stream.Next() {
			chunk := stream.Current()
			if chunk.Usage.TotalTokens > 0 {
				inputTokens = int(chunk.Usage.PromptTokens)
				outputTokens = int(chunk.Usage.CompletionTokens)
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					out <- provider.StreamEvent{Type: provider.TextDelta, Text: choice.Delta.Content}
				}
				for _, tc := range choice.Delta.ToolCalls {
					ac, ok := agg[tc.Index]
					if !ok {
						ac = &aggCall{}
						agg[tc.Index] = ac
					}
					if tc.ID != "" {
						ac.id = tc.ID
					}
					if tc.Function.Name != "" {
						ac.name = tc.Function.Name
					}
					if !ac.announced && ac.id != "" && ac.name != "" {
						ac.announced = true
						out <- provider.StreamEvent{
							Type:       provider.ToolCallStart,
							ToolCallID: ac.id,
							ToolName:   ac.name,
						}
					}
					if tc.Function.Arguments != "" {
						ac.args += tc.Function.Arguments
						out <- provider.StreamEvent{
							Type:       provider.ToolCallDelta,
							ToolCallID: ac.id,
							ToolName:   ac.name,
							ToolArgs:   tc.Function.Arguments,
						}
					}
				}
				if choice.FinishReason != "" {
					for i := int64(0); i < int64(len(agg)); i++ {
						ac, ok := agg[i]
						if !ok {
							continue
						}
						out <- provider.StreamEvent{
							Type:       provider.ToolCallEnd,
							ToolCallID: ac.id,
							ToolName:   ac.name,
							ToolArgs:   ac.args,
						}
					}
					agg = map[int64]*aggCall{}
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("openai streaming error: %w", err)
			return
		}

		out <- provider.StreamEvent{
			Type:         provider.MessageEnd,
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		}
	}()

	return out, errCh
}

// buildParams assembles the request, converting the normalized conversation
// into SDK message unions and tool schemas into function definitions.
func (p *Provider) buildParams(req provider.Request) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "user":
			messages = append(messages, openai.UserMessage(m.Content))
		case "assistant":
			if len(m.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(m.Content))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: toolCalls,
				},
			})
		case "tool":
			messages = append(messages, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               p.opts.Model,
		Temperature:         openai.Float(req.Temperature),
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  t.Parameters,
				},
			}
		}
		params.Tools = tools
	}
	return params
}

// Info implements provider.Provider.
func (p *Provider) Info() provider.ModelInfo {
	return provider.ModelInfo{
		Provider:      "openai",
		ModelID:       p.opts.Model,
		MaxContext:    128000,
		MaxOutput:     16384,
		SupportsTools: true,
	}
}
