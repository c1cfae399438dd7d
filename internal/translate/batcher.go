package translate

import (
	"context"
	"fmt"
	"time"

	"amharic-translator/internal/logger"
	"amharic-translator/internal/types"
)

const (
	// DefaultBatchCharBudget caps the characters grouped into one model
	// call; small enough to stay responsive, large enough to amortize
	// request overhead.
	DefaultBatchCharBudget = 4000
	// DefaultMaxRetries bounds attempts per batch.
	DefaultMaxRetries = 3
	// BaseRetryDelay is the first retry delay; it doubles per attempt.
	BaseRetryDelay = 2 * time.Second
)

// Batcher drives a Translator over an ordered list of segments,
// grouping consecutive segments into batches by character budget and
// retrying transient failures with exponential backoff. Batches run
// sequentially so progress and ordering stay simple.
type Batcher struct {
	translator Translator
	charBudget int
	maxRetries int

	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(time.Duration)
}

// NewBatcher creates a Batcher; non-positive budget or retries fall
// back to the defaults.
func NewBatcher(translator Translator, charBudget, maxRetries int) *Batcher {
	if charBudget <= 0 {
		charBudget = DefaultBatchCharBudget
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Batcher{
		translator: translator,
		charBudget: charBudget,
		maxRetries: maxRetries,
		sleep:      time.Sleep,
	}
}

// TranslateAll translates every segment, preserving order and length:
// the result has exactly one translation per input segment. Empty
// segments pass through untranslated.
func (b *Batcher) TranslateAll(ctx context.Context, segments []string, progress ProgressCallback) ([]string, error) {
	out := make([]string, len(segments))
	if len(segments) == 0 {
		return out, nil
	}

	batches := b.makeBatches(segments)
	logger.Info("translating segments",
		logger.String("backend", b.translator.Name()),
		logger.Int("segments", len(segments)),
		logger.Int("batches", len(batches)))

	completed := 0
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, types.NewAppError(types.ErrInternal, "translation cancelled", err)
		}

		translated, err := b.translateBatch(ctx, batch.texts)
		if err != nil {
			return nil, err
		}
		for i, idx := range batch.indices {
			out[idx] = translated[i]
		}

		completed += len(batch.indices)
		if progress != nil {
			progress(completed, len(segments),
				fmt.Sprintf("translated %d of %d blocks", completed, len(segments)))
		}
	}

	return out, nil
}

type batch struct {
	indices []int
	texts   []string
}

// makeBatches groups consecutive non-empty segments until adding the
// next one would exceed the character budget. An oversized single
// segment becomes its own batch.
func (b *Batcher) makeBatches(segments []string) []batch {
	var batches []batch
	var current batch
	size := 0

	for i, s := range segments {
		if s == "" {
			continue
		}
		if len(current.texts) > 0 && size+len(s) > b.charBudget {
			batches = append(batches, current)
			current = batch{}
			size = 0
		}
		current.indices = append(current.indices, i)
		current.texts = append(current.texts, s)
		size += len(s)
	}
	if len(current.texts) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// translateBatch runs one batch with bounded retries. Only transient
// errors are retried; the delay doubles each attempt.
func (b *Batcher) translateBatch(ctx context.Context, texts []string) ([]string, error) {
	var lastErr error

	delay := BaseRetryDelay
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		translated, err := b.translator.Translate(ctx, texts)
		if err == nil {
			if len(translated) != len(texts) {
				return nil, types.NewAppErrorWithDetails(types.ErrAPICall,
					"translation count mismatch",
					fmt.Sprintf("sent %d texts, got %d translations", len(texts), len(translated)), nil)
			}
			return translated, nil
		}

		lastErr = err
		logger.Warn("batch translation attempt failed",
			logger.Int("attempt", attempt),
			logger.Int("batchSize", len(texts)),
			logger.Err(err))

		if !IsRetryable(err) {
			return nil, err
		}
		if attempt < b.maxRetries {
			b.sleep(delay)
			delay *= 2
		}
	}

	return nil, types.NewAppErrorWithDetails(types.ErrAPICall,
		"translation failed after retries",
		fmt.Sprintf("attempted %d times", b.maxRetries),
		lastErr)
}
