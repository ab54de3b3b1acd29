package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiService calls Gemini with one or more API keys, rotating to the
// next key when a request fails. Clients are kept per key and closed only
// by Close, so rotation never tears down a client a request is using.
type GeminiService struct {
	apiKeys     []string
	modelName   string
	temperature float32

	mu         sync.Mutex
	currentKey int
	clients    map[int]*genai.Client
}

var _ LLMClient = (*GeminiService)(nil)

// NewGeminiService accepts a comma-separated key list.
func NewGeminiService(ctx context.Context, apiKeys string, modelName string, temperature float32) (*GeminiService, error) {
	keys := make([]string, 0)
	for _, k := range strings.Split(apiKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("no API keys provided")
	}

	service := &GeminiService{
		apiKeys:     keys,
		modelName:   modelName,
		temperature: temperature,
		clients:     make(map[int]*genai.Client),
	}
	if _, err := service.clientLocked(ctx, 0); err != nil {
		return nil, err
	}
	return service, nil
}

// clientLocked returns the client for key index i, creating it on first use.
// s.mu must be held (or s not yet shared).
func (s *GeminiService) clientLocked(ctx context.Context, i int) (*genai.Client, error) {
	if client, ok := s.clients[i]; ok {
		return client, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(s.apiKeys[i]))
	if err != nil {
		return nil, err
	}
	s.clients[i] = client
	return client, nil
}

// nextKey advances past the key a failed call used. A call that failed on
// a key another call already rotated away from does not rotate again.
func nextKey(current, failed, n int) int {
	if current != failed {
		return current
	}
	return (failed + 1) % n
}

func (s *GeminiService) rotateAPIKey(ctx context.Context, failed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := nextKey(s.currentKey, failed, len(s.apiKeys))
	if _, err := s.clientLocked(context.WithoutCancel(ctx), next); err != nil {
		return err
	}
	s.currentKey = next
	return nil
}

func (s *GeminiService) model(system string) (*genai.GenerativeModel, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.currentKey
	model := s.clients[key].GenerativeModel(s.modelName)
	model.SetTemperature(s.temperature)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}
	return model, key
}

func (s *GeminiService) Complete(ctx context.Context, system, user string) (string, error) {
	model, key := s.model(system)
	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		if len(s.apiKeys) < 2 || ctx.Err() != nil {
			return "", err
		}
		// Try rotating API key if there's an error
		if rerr := s.rotateAPIKey(ctx, key); rerr != nil {
			return "", rerr
		}
		model, _ = s.model(system)
		resp, err = model.GenerateContent(ctx, genai.Text(user))
		if err != nil {
			return "", err
		}
	}

	if len(resp.Candidates) == 0 {
		return "", ErrEmptyCompletion
	}
	content := ""
	if cand := resp.Candidates[0]; cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				content += string(text)
			}
		}
	}
	return content, nil
}

func (s *GeminiService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for i, client := range s.clients {
		errs = append(errs, client.Close())
		delete(s.clients, i)
	}
	return errors.Join(errs...)
}
