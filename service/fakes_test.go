package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/tieubaoca/policy-assistant/repository"
	"github.com/tieubaoca/policy-assistant/types"
)

type fakeIndex struct {
	mu       sync.Mutex
	passages []types.Passage
	err      error
	block    bool
	calls    int
	lastArgs struct {
		query string
		limit int
	}
}

func (f *fakeIndex) Search(ctx context.Context, query string, limit int) ([]types.Passage, error) {
	f.mu.Lock()
	f.calls++
	f.lastArgs.query = query
	f.lastArgs.limit = limit
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]types.Passage, 0, len(f.passages))
	out = append(out, f.passages...)
	return out, nil
}

func (f *fakeIndex) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLLM struct {
	mu     sync.Mutex
	answer string
	err    error
	block  bool
	calls  int
	system string
	user   string
}

func (f *fakeLLM) Complete(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.system = system
	f.user = user
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.answer, f.err
}

func (f *fakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRepo struct {
	mu           sync.Mutex
	interactions map[string]*types.Interaction
	order        []string
	recordErr    error
	block        bool
	nextID       int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{interactions: make(map[string]*types.Interaction)}
}

func (f *fakeRepo) Record(ctx context.Context, interaction *types.Interaction) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.recordErr != nil {
		return "", f.recordErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if interaction.ID == "" {
		interaction.ID = fmt.Sprintf("chat-%d", f.nextID)
	}
	if interaction.Feedback == "" {
		interaction.Feedback = types.FEEDBACK_UNSET
	}
	stored := *interaction
	f.interactions[stored.ID] = &stored
	f.order = append(f.order, stored.ID)
	return stored.ID, nil
}

func (f *fakeRepo) ApplyFeedback(ctx context.Context, id string, feedback types.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	interaction, ok := f.interactions[id]
	if !ok {
		return repository.ErrNotFound
	}
	interaction.Feedback = feedback
	return nil
}

func (f *fakeRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]*types.Interaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.Interaction, 0)
	for _, id := range f.order {
		if i := f.interactions[id]; i.SessionID == sessionID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeRepo) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.interactions)
}

func (f *fakeRepo) Get(id string) *types.Interaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interactions[id]
}

// threePassages matches three chunks across two documents.
func threePassages() []types.Passage {
	return []types.Passage{
		{ChunkID: "ui-0", DocumentID: "doc-ui", Ordinal: 0, Section: "Eligibility", Text: "You must have lost work through no fault of your own.",
			Title: "Unemployment Insurance Handbook", Source: "Department of Labor", URL: "https://example.gov/ui", Score: 3.1},
		{ChunkID: "snap-2", DocumentID: "doc-snap", Ordinal: 2, Section: "", Text: "Households must meet income limits.",
			Title: "SNAP Eligibility Guide", Source: "Department of Agriculture", Score: 2.4},
		{ChunkID: "ui-3", DocumentID: "doc-ui", Ordinal: 3, Section: "Filing a Claim", Text: "File your claim online within a week.",
			Title: "Unemployment Insurance Handbook", Source: "Department of Labor", URL: "https://example.gov/ui", Score: 1.7},
	}
}
