// Package anthropic adapts the Anthropic Messages API, including streaming
// and tool use, to the model.Model interface.
//
// The Messages API wants strict alternation: an assistant message carries its
// tool_use blocks inline and must be followed by a single user message
// holding every matching tool_result block. The request builder regroups the
// flat history records into that shape.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/hupe1980/liteagent/core"
	"github.com/hupe1980/liteagent/model"
)

// Options configure the Anthropic model adapter.
type Options struct {
	Model       string
	Temperature float64
	// MaxTokens caps the response length. The Messages API requires it.
	MaxTokens int64

	// APIKey overrides the key the SDK reads from the environment.
	APIKey string
	// BaseURL points the client at a compatible endpoint.
	BaseURL string
	// HTTPClient replaces the default transport.
	HTTPClient *http.Client
}

// Model wraps the Anthropic Messages API behind the generic model.Model
// interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// New creates an Anthropic model using the official client. Without overrides
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

	client := anthropic.NewClient(reqOpts...)

	return &Model{client: &client, opts: opts}
}

// NewFromClient creates an Anthropic model from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: applyOptions(optFns)}
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:       string(anthropic.ModelClaude3_5Sonnet20241022),
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return opts
}

// Stream implements model.Model. Tool use starts arrive as content_block_start
// events carrying id and name, argument JSON streams in as input_json_delta
// fragments, usage rides on message_delta, and the stop reason becomes the
// finish event when the message ends.
func (m *Model) Stream(ctx context.Context, req model.Request) (<-chan model.Event, <-chan error) {
	eventCh := make(chan model.Event, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)

		stream := m.client.Messages.NewStreaming(ctx, m.buildParams(req))

		send := func(ev model.Event) bool {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return false
			case eventCh <- ev:
				return true
			}
		}

		stopReason := ""

		for stream.Next() {
			event := stream.Current()

			switch v := event.AsAny().(type) {
			case anthropic.ContentBlockStartEvent:
				if block, ok := v.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
					ev := model.Event{ToolCalls: []model.ToolCallDelta{{
						Index: int(v.Index),
						ID:    block.ID,
						Name:  block.Name,
					}}}
					if !send(ev) {
						return
					}
				}

			case anthropic.ContentBlockDeltaEvent:
				switch d := v.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if d.Text == "" {
						continue
					}
					if !send(model.Event{ContentDelta: d.Text}) {
						return
					}
				case anthropic.InputJSONDelta:
					if d.PartialJSON == "" {
						continue
					}
					ev := model.Event{ToolCalls: []model.ToolCallDelta{{
						Index:     int(v.Index),
						Arguments: d.PartialJSON,
					}}}
					if !send(ev) {
						return
					}
				}

			case anthropic.MessageDeltaEvent:
				if v.Delta.StopReason != "" {
					stopReason = string(v.Delta.StopReason)
				}
				if v.Usage.InputTokens > 0 || v.Usage.OutputTokens > 0 {
					ev := model.Event{Usage: &core.Usage{
						InputTokens:  v.Usage.InputTokens,
						OutputTokens: v.Usage.OutputTokens,
					}}
					if !send(ev) {
						return
					}
				}

			case anthropic.MessageStopEvent:
				if stopReason == "" {
					stopReason = "end_turn"
				}
				if !send(model.Event{FinishReason: stopReason}) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("anthropic stream: %w", err)
		}
	}()

	return eventCh, errCh
}

// buildParams assembles the request parameters including tool definitions.
func (m *Model) buildParams(req model.Request) anthropic.MessageNewParams {
	system, messages := buildMessages(req)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(m.opts.Model),
		MaxTokens:   m.opts.MaxTokens,
		Temperature: param.NewOpt(m.opts.Temperature),
		System:      system,
		Messages:    messages,
	}

	if len(req.Tools) == 0 {
		return params
	}

	toolParams := make([]anthropic.ToolParam, len(req.Tools))
	for i, def := range req.Tools {
		toolParams[i] = anthropic.ToolParam{
			Name:        def.Function.Name,
			Description: anthropic.String(def.Function.Description),
			InputSchema: toInputSchema(def.Function.Parameters),
		}
	}

	tools := make([]anthropic.ToolUnionParam, len(toolParams))
	for i := range toolParams {
		tools[i] = anthropic.ToolUnionParam{OfTool: &toolParams[i]}
	}
	params.Tools = tools

	return params
}

// buildMessages regroups history records into the Messages API shape: call
// records fold into their assistant message as tool_use blocks and
// consecutive call outputs collapse into one user message of tool_result
// blocks. System text moves into the top-level system blocks.
func buildMessages(req model.Request) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	if req.System != "" {
		system = append(system, anthropic.TextBlockParam{Text: req.System})
	}

	var out []anthropic.MessageParam

	var (
		asstText  string
		asstCalls []anthropic.ContentBlockParamUnion
		buffered  bool
		results   []anthropic.ContentBlockParamUnion
	)

	flushAssistant := func() {
		if !buffered {
			return
		}
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(asstCalls)+1)
		if asstText != "" {
			blocks = append(blocks, anthropic.NewTextBlock(asstText))
		}
		blocks = append(blocks, asstCalls...)
		if len(blocks) > 0 {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		}
		asstText, asstCalls, buffered = "", nil, false
	}

	flushResults := func() {
		if len(results) == 0 {
			return
		}
		out = append(out, anthropic.NewUserMessage(results...))
		results = nil
	}

	for _, msg := range req.Messages {
		switch v := msg.(type) {
		case core.SystemMessage:
			if v.Content != "" {
				system = append(system, anthropic.TextBlockParam{Text: v.Content})
			}
		case core.UserMessage:
			flushAssistant()
			flushResults()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(v.Content)))
		case core.AssistantMessage:
			flushAssistant()
			flushResults()
			asstText = v.Content
			buffered = true
		case core.FunctionCallMessage:
			flushResults()
			buffered = true
			var input map[string]any
			if err := json.Unmarshal([]byte(v.Arguments), &input); err != nil {
				input = map[string]any{}
			}
			asstCalls = append(asstCalls, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    v.CallID,
					Name:  v.Name,
					Input: input,
				},
			})
		case core.FunctionCallOutputMessage:
			flushAssistant()
			results = append(results, anthropic.NewToolResultBlock(v.CallID, v.Output, false))
		}
	}
	flushAssistant()
	flushResults()

	return system, out
}

// toInputSchema converts a JSON Schema map into the SDK's input schema
// parameter via a JSON round trip.
func toInputSchema(params map[string]any) anthropic.ToolInputSchemaParam {
	var schema anthropic.ToolInputSchemaParam

	data, err := json.Marshal(params)
	if err != nil {
		return schema
	}
	if err := json.Unmarshal(data, &schema); err != nil {
		return anthropic.ToolInputSchemaParam{}
	}

	return schema
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "anthropic",
		SupportsTools: true,
	}
}
