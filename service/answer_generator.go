package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tieubaoca/policy-assistant/types"
)

const FALLBACK_APOLOGY = "I'm sorry, I couldn't generate a summary right now. Here are the most relevant sources I found:"

// GenerationResult carries either a model answer or, when Err is set, the
// synthesis-free fallback built from the citations. Answer is never empty.
type GenerationResult struct {
	Answer   string
	Fallback bool
	Err      error
}

type AnswerGenerator struct {
	llm     LLMClient
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

// NewAnswerGenerator wraps llm with a per-call timeout and, when
// requestsPerMinute > 0, a token bucket shared by all requests.
func NewAnswerGenerator(llm LLMClient, timeout time.Duration, requestsPerMinute int, logger *zap.Logger) *AnswerGenerator {
	g := &AnswerGenerator{
		llm:     llm,
		timeout: timeout,
		logger:  logger,
	}
	if requestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute)
	}
	return g
}

func (g *AnswerGenerator) Generate(ctx context.Context, question, contextBlock string, mode types.ResponseMode, citations []types.Citation) GenerationResult {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	answer, err := g.complete(ctx, question, contextBlock, mode)
	if err != nil {
		g.logger.Warn("generation fallback", zap.Error(err), zap.Int("citations", len(citations)))
		return GenerationResult{
			Answer:   FallbackAnswer(citations),
			Fallback: true,
			Err:      err,
		}
	}
	return GenerationResult{Answer: withDisclaimer(answer)}
}

func (g *AnswerGenerator) complete(ctx context.Context, question, contextBlock string, mode types.ResponseMode) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}
	answer, err := g.llm.Complete(ctx, SYSTEM_PERSONA, buildUserPrompt(question, contextBlock, mode))
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", ErrEmptyCompletion
	}
	return answer, nil
}

func buildUserPrompt(question, contextBlock string, mode types.ResponseMode) string {
	instruction := summaryInstruction
	if mode == types.RESPONSE_MODE_DETAILED {
		instruction = detailedInstruction
	}
	return fmt.Sprintf("%s\n\nContext:\n%s\n\nQuestion: %s", instruction, contextBlock, question)
}

// FallbackAnswer lists the citations without paraphrasing any content.
func FallbackAnswer(citations []types.Citation) string {
	var b strings.Builder
	b.WriteString(FALLBACK_APOLOGY)
	b.WriteString("\n\n")
	for _, c := range citations {
		fmt.Fprintf(&b, "%d. %s - %s\n", c.ID, c.Title, c.Section)
	}
	b.WriteString("\n")
	b.WriteString(DISCLAIMER)
	return b.String()
}

func withDisclaimer(answer string) string {
	if strings.Contains(answer, DISCLAIMER) {
		return answer
	}
	return answer + "\n\n" + DISCLAIMER
}
