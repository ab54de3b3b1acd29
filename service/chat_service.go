package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tieubaoca/policy-assistant/repository"
	"github.com/tieubaoca/policy-assistant/types"
)

var (
	ErrValidation    = errors.New("invalid request")
	ErrNotConfigured = errors.New("server not configured")
	ErrNotFound      = errors.New("not found")
)

const (
	VALIDATION_MESSAGE     = "Please provide both a question and a session ID."
	BLOCKED_MESSAGE        = "For your privacy, please don't include Social Security numbers or case numbers. Please rephrase your question without personal identifiers."
	NOT_CONFIGURED_MESSAGE = "The server is not configured correctly. Please try again later."
	NO_RESULTS_MESSAGE     = "I couldn't find relevant guidance in the policy documents for your question. Try rephrasing it or using different keywords."
	RETRIEVAL_FAILURE_MSG  = "I'm having trouble searching the policy documents right now. Please try again later."

	DEFAULT_RECORD_TIMEOUT = 3 * time.Second
	HISTORY_LIMIT          = 200
)

// ChatState is a step of the per-request pipeline.
type ChatState int

const (
	StateReceived ChatState = iota
	StateGated
	StateSearched
	StateNoResults
	StateRetrieved
	StateAnswered
	StateLogged
	StateResponded
)

func (s ChatState) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateGated:
		return "gated"
	case StateSearched:
		return "searched"
	case StateNoResults:
		return "no_results"
	case StateRetrieved:
		return "retrieved"
	case StateAnswered:
		return "answered"
	case StateLogged:
		return "logged"
	case StateResponded:
		return "responded"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type ChatService interface {
	Ask(ctx context.Context, req types.ChatRequest) (types.ChatResult, error)
	Feedback(ctx context.Context, chatID, value string) error
	History(ctx context.Context, sessionID string) ([]*types.Interaction, error)
	Search(ctx context.Context, query string, limit int) ([]types.Passage, error)
}

type chatService struct {
	gate          *PrivacyGate
	retriever     *Retriever
	generator     *AnswerGenerator
	repo          repository.InteractionRepo
	recordTimeout time.Duration
	logger        *zap.Logger
}

// NewChatService wires the pipeline. A nil retriever or generator leaves
// the service in the not-configured state: every Ask returns
// ErrNotConfigured.
func NewChatService(
	gate *PrivacyGate,
	retriever *Retriever,
	generator *AnswerGenerator,
	repo repository.InteractionRepo,
	recordTimeout time.Duration,
	logger *zap.Logger,
) ChatService {
	if gate == nil {
		gate = NewPrivacyGate()
	}
	if recordTimeout <= 0 {
		recordTimeout = DEFAULT_RECORD_TIMEOUT
	}
	return &chatService{
		gate:          gate,
		retriever:     retriever,
		generator:     generator,
		repo:          repo,
		recordTimeout: recordTimeout,
		logger:        logger,
	}
}

func (s *chatService) configured() bool {
	return s.retriever != nil && s.generator != nil && s.repo != nil
}

func (s *chatService) Ask(ctx context.Context, req types.ChatRequest) (types.ChatResult, error) {
	if !s.configured() {
		s.logger.Error("chat rejected, missing configuration")
		return types.ChatResult{
			Answer:    NOT_CONFIGURED_MESSAGE,
			Citations: []types.Citation{},
			SessionID: req.SessionID,
		}, ErrNotConfigured
	}

	question := strings.TrimSpace(req.Question)
	sessionID := strings.TrimSpace(req.SessionID)
	if question == "" || sessionID == "" {
		return types.ChatResult{
			Answer:    VALIDATION_MESSAGE,
			Citations: []types.Citation{},
			SessionID: req.SessionID,
		}, fmt.Errorf("%w: question and sessionId are required", ErrValidation)
	}

	logger := s.logger.With(zap.String("session_id", sessionID))
	state := StateReceived
	advance := func(next ChatState) {
		logger.Debug("chat state", zap.Stringer("from", state), zap.Stringer("to", next))
		state = next
	}

	if screen := s.gate.Screen(question); screen.Blocked {
		logger.Info("question blocked", zap.String("reason", screen.Reason))
		advance(StateResponded)
		return types.ChatResult{
			Answer:    BLOCKED_MESSAGE,
			Citations: []types.Citation{},
			SessionID: sessionID,
			Blocked:   true,
		}, nil
	}
	advance(StateGated)

	retrieval := s.retriever.Retrieve(ctx, question, 0)
	advance(StateSearched)

	var (
		answer    string
		citations []types.Citation
	)
	switch {
	case retrieval.Failed():
		advance(StateNoResults)
		answer = RETRIEVAL_FAILURE_MSG + "\n\n" + DISCLAIMER
		citations = []types.Citation{}
	case len(retrieval.Passages) == 0:
		advance(StateNoResults)
		answer = NO_RESULTS_MESSAGE + "\n\n" + DISCLAIMER
		citations = []types.Citation{}
	default:
		advance(StateRetrieved)
		citations = MapCitations(retrieval.Passages)
		generation := s.generator.Generate(ctx, question, AssembleContext(retrieval.Passages),
			types.ParseResponseMode(req.ResponseType), citations)
		answer = generation.Answer
	}
	advance(StateAnswered)

	interaction := &types.Interaction{
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		Citations: citations,
		Feedback:  types.FEEDBACK_UNSET,
	}
	if email := strings.TrimSpace(req.UserEmail); email != "" {
		interaction.UserEmail = &email
	}
	chatID := s.record(ctx, logger, interaction)
	advance(StateLogged)

	advance(StateResponded)
	return types.ChatResult{
		Answer:    answer,
		Citations: citations,
		SessionID: sessionID,
		ChatID:    chatID,
	}, nil
}

// record is best-effort: failures are logged and an empty id returned.
func (s *chatService) record(ctx context.Context, logger *zap.Logger, interaction *types.Interaction) string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.recordTimeout)
	defer cancel()

	id, err := s.repo.Record(ctx, interaction)
	if err != nil {
		logger.Error("persistence failed", zap.Error(err))
		return ""
	}
	return id
}

func (s *chatService) Feedback(ctx context.Context, chatID, value string) error {
	if s.repo == nil {
		return ErrNotConfigured
	}
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return fmt.Errorf("%w: chatId is required", ErrValidation)
	}
	feedback, err := parseFeedback(value)
	if err != nil {
		return err
	}

	if err := s.repo.ApplyFeedback(ctx, chatID, feedback); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: chat %s", ErrNotFound, chatID)
		}
		s.logger.Error("apply feedback failed", zap.String("chat_id", chatID), zap.Error(err))
		return err
	}
	s.logger.Debug("feedback applied", zap.String("chat_id", chatID), zap.String("feedback", string(feedback)))
	return nil
}

func parseFeedback(value string) (types.Feedback, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "good", string(types.FEEDBACK_POSITIVE):
		return types.FEEDBACK_POSITIVE, nil
	case "bad", string(types.FEEDBACK_NEGATIVE):
		return types.FEEDBACK_NEGATIVE, nil
	}
	return "", fmt.Errorf("%w: feedback must be good or bad", ErrValidation)
}

func (s *chatService) History(ctx context.Context, sessionID string) ([]*types.Interaction, error) {
	if s.repo == nil {
		return nil, ErrNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", ErrValidation)
	}
	return s.repo.ListBySession(ctx, sessionID, HISTORY_LIMIT)
}

// Search exposes the retriever for diagnostics. The query goes through the
// privacy gate like a question does.
func (s *chatService) Search(ctx context.Context, query string, limit int) ([]types.Passage, error) {
	if s.retriever == nil {
		return nil, ErrNotConfigured
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}
	if screen := s.gate.Screen(query); screen.Blocked {
		return nil, fmt.Errorf("%w: query contains %s", ErrValidation, screen.Reason)
	}
	res := s.retriever.Retrieve(ctx, query, limit)
	if res.Failed() {
		return nil, res.Err
	}
	return res.Passages, nil
}
