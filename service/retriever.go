package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tieubaoca/policy-assistant/database"
	"github.com/tieubaoca/policy-assistant/types"
)

const DEFAULT_RETRIEVAL_LIMIT = 8

// RetrievalResult is either a (possibly empty) passage list or the reason
// the lookup failed.
type RetrievalResult struct {
	Passages []types.Passage
	Err      error
}

func (r RetrievalResult) Failed() bool { return r.Err != nil }

type Retriever struct {
	index   database.LexicalIndex
	limit   int
	timeout time.Duration
	logger  *zap.Logger
}

func NewRetriever(index database.LexicalIndex, limit int, timeout time.Duration, logger *zap.Logger) *Retriever {
	if limit <= 0 {
		limit = DEFAULT_RETRIEVAL_LIMIT
	}
	return &Retriever{
		index:   index,
		limit:   limit,
		timeout: timeout,
		logger:  logger,
	}
}

// Retrieve runs a bounded ranked lookup. limit <= 0 uses the configured
// default. Nothing matching is an empty list, not a failure.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) RetrievalResult {
	if limit <= 0 || limit > r.limit {
		limit = r.limit
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := r.index.Search(ctx, query, limit)
	if err != nil {
		r.logger.Warn("retrieval failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return RetrievalResult{Err: err}
	}

	passages := make([]types.Passage, 0, len(rows))
	for _, p := range rows {
		if len(passages) == limit {
			break
		}
		p.Text = cleanPassageText(p.Text)
		passages = append(passages, p)
	}
	r.logger.Debug("retrieved passages",
		zap.Int("count", len(passages)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return RetrievalResult{Passages: passages}
}
