package service

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// OpenAIService talks to any OpenAI-compatible chat completion endpoint.
type OpenAIService struct {
	client      *openai.Client
	model       string
	temperature float32
}

var _ LLMClient = (*OpenAIService)(nil)

func NewOpenAIService(baseURL string, apiKey, model string, temperature float32) *OpenAIService {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(config)
	return &OpenAIService{
		client:      client,
		model:       model,
		temperature: temperature,
	}
}

func (s *OpenAIService) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       s.model,
			Temperature: s.temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: user,
				},
			},
		},
	)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
