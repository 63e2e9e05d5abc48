// Package anthropic adapts the Anthropic Messages API (streaming, with tool
// use) to the provider.Provider stream contract.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/agentcore/provider"
)

// Options configure the Anthropic provider adapter.
type Options struct {
	Model  anthropic.Model
	APIKey string
}

// Provider wraps the Anthropic Messages API behind provider.Provider.
type Provider struct {
	client *anthropic.Client
	opts   Options
}

// New creates an adapter using the official client. The API key falls back
// to the environment when not set explicitly.
func New(optFns ...func(o *Options)) *Provider {
	opts := Options{Model: anthropic.ModelClaude3_5Sonnet20241022}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Provider{client: &client, opts: opts}
}

// NewFromClient creates an adapter from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{Model: anthropic.ModelClaude3_5Sonnet20241022}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

// toolBlock tracks one streamed tool_use content block by index.
type toolBlock struct {
	id, name string
	args     string
}

// CreateMessage implements provider.Provider by draining one streaming
// Messages API call into the unified StreamEvent sequence.
func (p *Provider) CreateMessage(ctx context.Context, req provider.Request) (<-chan provider.StreamEvent, <-chan error) {
	out := make(chan provider.StreamEvent, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := p.buildParams(req)
		stream := p.client.Messages.NewStreaming(ctx, params)

		blocks := map[int64]*toolBlock{}
		var inputTokens, outputTokens int

		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				inputTokens = int(ev.Message.Usage.InputTokens)

			case anthropic.ContentBlockStartEvent:
				if tu, ok := ev.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
					blocks[ev.Index] = &toolBlock{id: tu.ID, name: tu.Name}
					out <- provider.StreamEvent{
						Type:       provider.ToolCallStart,
						ToolCallID: tu.ID,
						ToolName:   tu.Name,
					}
				}

			case anthropic.ContentBlockDeltaEvent:
				switch delta := ev.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					out <- provider.StreamEvent{Type: provider.TextDelta, Text: delta.Text}
				case anthropic.InputJSONDelta:
					if b, ok := blocks[ev.Index]; ok && delta.PartialJSON != "" {
						b.args += delta.PartialJSON
						out <- provider.StreamEvent{
							Type:       provider.ToolCallDelta,
							ToolCallID: b.id,
							ToolName:   b.name,
							ToolArgs:   delta.PartialJSON,
						}
					}
				}

			case anthropic.ContentBlockStopEvent:
				if b, ok := blocks[ev.Index]; ok {
					args := b.args
					if args == "" {
						args = "{}"
					}
					out <- provider.StreamEvent{
						Type:       provider.ToolCallEnd,
						ToolCallID: b.id,
						ToolName:   b.name,
						ToolArgs:   args,
					}
					delete(blocks, ev.Index)
				}

			case anthropic.MessageDeltaEvent:
				outputTokens = int(ev.Usage.OutputTokens)
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("anthropic streaming error: %w", err)
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

// buildParams converts the normalized conversation into Messages API params.
// Tool results become tool_result blocks inside user messages, assistant
// tool calls become tool_use blocks — the shapes the Messages API requires.
func (p *Provider) buildParams(req provider.Request) anthropic.MessageNewParams {
	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case "assistant":
			var parts []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				parts = append(parts, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input json.RawMessage
				if tc.Arguments != "" {
					input = json.RawMessage(tc.Arguments)
				} else {
					input = json.RawMessage("{}")
				}
				parts = append(parts, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(parts) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(parts...))
			}
		case "tool":
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
			))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:       p.opts.Model,
		Messages:    messages,
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if len(req.Tools) > 0 {
		tools := make([]anthropic.ToolUnionParam, len(req.Tools))
		for i, t := range req.Tools {
			schema := anthropic.ToolInputSchemaParam{}
			if props, ok := t.Parameters["properties"]; ok {
				schema.Properties = props
			}
			if required, ok := t.Parameters["required"].([]string); ok {
				schema.Required = required
			}
			tools[i] = anthropic.ToolUnionParam{
				OfTool: &anthropic.ToolParam{
					Name:        t.Name,
					Description: anthropic.String(t.Description),
					InputSchema: schema,
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
		Provider:      "anthropic",
		ModelID:       string(p.opts.Model),
		MaxContext:    200000,
		MaxOutput:     8192,
		SupportsTools: true,
	}
}
