package chat

import (
	"context"

	"github.com/hugh/campuschat/pkg/config"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAISource streams completions from the OpenAI API.
type OpenAISource struct {
	client *openai.Client
	model  string
}

func NewOpenAISource(cfg *config.OpenAIConfig) *OpenAISource {
	s := &OpenAISource{model: cfg.Model}
	if cfg.Configured() {
		s.client = openai.NewClient(cfg.APIKey)
	}
	return s
}

func (s *OpenAISource) Configured() bool {
	return s.client != nil
}

func (s *OpenAISource) Stream(ctx context.Context, prompt string) (TokenStream, error) {
	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		return nil, err
	}
	return &openaiStream{stream: stream}, nil
}

type openaiStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openaiStream) Recv() (string, error) {
	// Skip keep-alive chunks with no content; io.EOF passes through.
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}

var _ Source = (*OpenAISource)(nil)
