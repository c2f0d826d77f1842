package provider

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/petasbytes/botsh/memory"
)

// DefaultOpenAIBaseURL is the OpenAI-compatible Ark endpoint.
const DefaultOpenAIBaseURL = "https://ark.cn-beijing.volces.com/api/v3"

// OpenAI streams chat completions from an OpenAI-compatible endpoint.
type OpenAI struct {
	Client  *openai.Client
	BaseURL string
}

// NewOpenAI returns a client for baseURL, or DefaultOpenAIBaseURL when empty.
// An empty apiKey sends no credentials unless OPENAI_API_KEY is set.
func NewOpenAI(apiKey, baseURL string, opts ...option.RequestOption) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	all := []option.RequestOption{option.WithBaseURL(baseURL)}
	if apiKey != "" {
		all = append(all, option.WithAPIKey(apiKey))
	}
	all = append(all, opts...)
	c := openai.NewClient(all...)
	return &OpenAI{Client: &c, BaseURL: baseURL}
}

// Stream sends req through Chat.Completions.NewStreaming.
func (c *OpenAI) Stream(ctx context.Context, req Request) Stream {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: toOpenAI(req.Messages),
	}
	return &openaiStream{raw: c.Client.Chat.Completions.NewStreaming(ctx, params)}
}

// toOpenAI maps roles one to one; chat completions accept system messages
// anywhere in the list.
func toOpenAI(in []memory.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(in))
	for _, m := range in {
		switch m.Role {
		case memory.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case memory.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// openaiStream surfaces the content deltas of an SDK chunk stream. Chunks
// without content, such as the role preamble, are skipped.
type openaiStream struct {
	raw *ssestream.Stream[openai.ChatCompletionChunk]
	cur string
}

func (s *openaiStream) Next() bool {
	for s.raw.Next() {
		chunk := s.raw.Current()
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			s.cur = chunk.Choices[0].Delta.Content
			return true
		}
	}
	return false
}

func (s *openaiStream) Fragment() string { return s.cur }
func (s *openaiStream) Err() error       { return fromSDK(s.raw.Err()) }
func (s *openaiStream) Close() error     { return s.raw.Close() }
