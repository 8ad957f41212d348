// Package openai adapts the OpenAI Chat Completions API, including streaming
// and function calling, to the model.Model interface.
//
// History keeps assistant text, tool calls and tool outputs as separate
// records; the wire format wants an assistant message carrying its calls
// inline, each followed by a tool-role result. The request builder merges
// adjacent records back into that shape.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/liteagent/core"
	"github.com/hupe1980/liteagent/model"
)

// Options configure the OpenAI model adapter. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64

	// APIKey overrides the key the SDK reads from the environment.
	APIKey string
	// BaseURL points the client at an OpenAI-compatible endpoint, e.g. a
	// proxy or a local server.
	BaseURL string
	// HTTPClient replaces the default transport.
	HTTPClient *http.Client
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model
// interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// New creates an OpenAI model using the official client. Without overrides
// the client configures itself from the environment.
func New(optFns ...func(o *Options)) *Model {
	opts := applyOptions(optFns)

	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	client := openai.NewClient(reqOpts...)

	return &Model{client: &client, opts: opts}
}

// NewFromClient creates an OpenAI model from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: applyOptions(optFns)}
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return opts
}

// Stream implements model.Model. Each SSE chunk maps onto one raw event:
// content deltas and tool-call fragments pass through positionally, the
// final usage frame becomes a usage event, and the chunk's raw JSON rides
// along for observability.
func (m *Model) Stream(ctx context.Context, req model.Request) (<-chan model.Event, <-chan error) {
	eventCh := make(chan model.Event, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)

		stream := m.client.Chat.Completions.NewStreaming(ctx, m.buildParams(req))

		for stream.Next() {
			ck := stream.Current()

			var ev model.Event
			for _, choice := range ck.Choices {
				if choice.Delta.Content != "" {
					ev.ContentDelta += choice.Delta.Content
				}
				for _, tc := range choice.Delta.ToolCalls {
					ev.ToolCalls = append(ev.ToolCalls, model.ToolCallDelta{
						Index:     int(tc.Index),
						ID:        tc.ID,
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					})
				}
				if choice.FinishReason != "" {
					ev.FinishReason = choice.FinishReason
				}
			}

			// The usage frame arrives as a trailing chunk without choices.
			if ck.Usage.TotalTokens > 0 {
				ev.Usage = &core.Usage{
					InputTokens:  ck.Usage.PromptTokens,
					OutputTokens: ck.Usage.CompletionTokens,
				}
			}

			if ev.ContentDelta == "" && len(ev.ToolCalls) == 0 && ev.FinishReason == "" && ev.Usage == nil {
				continue
			}
			ev.Raw = json.RawMessage(ck.RawJSON())

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case eventCh <- ev:
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("openai stream: %w", err)
		}
	}()

	return eventCh, errCh
}

// buildParams assembles the request parameters including tool definitions.
func (m *Model) buildParams(req model.Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:               m.opts.Model,
		Messages:            buildMessages(req),
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}

	if len(req.Tools) == 0 {
		return params
	}

	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, def := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        def.Function.Name,
				Description: openai.String(def.Function.Description),
				Parameters:  def.Function.Parameters,
			},
		}
	}
	params.Tools = tools

	return params
}

// buildMessages converts history records into chat messages. Call records
// following an assistant message fold into that message's tool_calls; call
// outputs become tool-role messages keyed by call id.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	var (
		pendingText  string
		pendingCalls []openai.ChatCompletionMessageToolCallParam
		buffered     bool
	)

	flush := func() {
		if !buffered {
			return
		}
		if len(pendingCalls) == 0 {
			messages = append(messages, openai.AssistantMessage(pendingText))
		} else {
			asst := &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: pendingCalls,
			}
			if pendingText != "" {
				asst.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(pendingText),
				}
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: asst})
		}
		pendingText, pendingCalls, buffered = "", nil, false
	}

	for _, msg := range req.Messages {
		switch v := msg.(type) {
		case core.SystemMessage:
			flush()
			messages = append(messages, openai.SystemMessage(v.Content))
		case core.UserMessage:
			flush()
			messages = append(messages, openai.UserMessage(v.Content))
		case core.AssistantMessage:
			flush()
			pendingText = v.Content
			buffered = true
		case core.FunctionCallMessage:
			buffered = true
			pendingCalls = append(pendingCalls, openai.ChatCompletionMessageToolCallParam{
				ID:   v.CallID,
				Type: "function",
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      v.Name,
					Arguments: v.Arguments,
				},
			})
		case core.FunctionCallOutputMessage:
			flush()
			messages = append(messages, openai.ToolMessage(v.Output, v.CallID))
		}
	}
	flush()

	return messages
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}
