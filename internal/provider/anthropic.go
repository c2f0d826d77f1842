package provider

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/petasbytes/botsh/memory"
)

const DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest

// Anthropic streams completions from the Anthropic Messages API.
type Anthropic struct {
	Client    *anthropic.Client
	MaxTokens int64
}

// NewAnthropic returns a client. An empty apiKey leaves the SDK to read
// ANTHROPIC_API_KEY; an empty baseURL keeps the SDK default.
func NewAnthropic(apiKey, baseURL string, maxTokens int64, opts ...option.RequestOption) *Anthropic {
	var all []option.RequestOption
	if apiKey != "" {
		all = append(all, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	all = append(all, opts...)
	c := anthropic.NewClient(all...)
	return &Anthropic{Client: &c, MaxTokens: maxTokens}
}

// Stream sends req through Messages.NewStreaming.
func (a *Anthropic) Stream(ctx context.Context, req Request) Stream {
	model := anthropic.Model(req.Model)
	if model == "" {
		model = DefaultAnthropicModel
	}
	system, msgs := toAnthropic(req.Messages)
	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: a.MaxTokens,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return &anthropicStream{raw: a.Client.Messages.NewStreaming(ctx, params)}
}

// toAnthropic splits off the leading system prompt. Later system messages,
// such as command results, have no place in the Messages API and are sent
// as user text. Adjacent turns of the same role are merged into one message.
func toAnthropic(in []memory.Message) (string, []anthropic.MessageParam) {
	var system string
	if len(in) > 0 && in[0].Role == memory.RoleSystem {
		system = in[0].Content
		in = in[1:]
	}
	out := make([]anthropic.MessageParam, 0, len(in))
	for _, m := range in {
		role := anthropic.MessageParamRoleUser
		if m.Role == memory.RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		block := anthropic.NewTextBlock(m.Content)
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, block)
			continue
		}
		if role == anthropic.MessageParamRoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return system, out
}

// anthropicStream surfaces the text deltas of an SDK event stream.
type anthropicStream struct {
	raw *ssestream.Stream[anthropic.MessageStreamEventUnion]
	cur string
}

func (s *anthropicStream) Next() bool {
	for s.raw.Next() {
		switch ev := s.raw.Current().AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if d, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && d.Text != "" {
				s.cur = d.Text
				return true
			}
		case anthropic.MessageStopEvent:
			return false
		}
	}
	return false
}

func (s *anthropicStream) Fragment() string { return s.cur }
func (s *anthropicStream) Err() error       { return fromSDK(s.raw.Err()) }
func (s *anthropicStream) Close() error     { return s.raw.Close() }
