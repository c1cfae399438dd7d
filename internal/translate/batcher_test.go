package translate

import (
	"context"
	"strings"
	"testing"
	"time"

	"amharic-translator/internal/types"
)

// fakeTranslator records calls and replays scripted errors before
// succeeding.
type fakeTranslator struct {
	calls      [][]string
	failures   []error
	badLengths bool
}

func (f *fakeTranslator) Name() string { return "fake" }

func (f *fakeTranslator) Translate(_ context.Context, texts []string) ([]string, error) {
	f.calls = append(f.calls, append([]string(nil), texts...))
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	if f.badLengths {
		return []string{"too few"}, nil
	}
	out := make([]string, len(texts))
	for i, s := range texts {
		out[i] = "AM:" + s
	}
	return out, nil
}

func newTestBatcher(tr Translator, budget, retries int) *Batcher {
	b := NewBatcher(tr, budget, retries)
	b.sleep = func(time.Duration) {}
	return b
}

func TestBatcherPreservesOrderAndLength(t *testing.T) {
	fake := &fakeTranslator{}
	b := newTestBatcher(fake, 4000, 3)

	segments := []string{"one", "two", "three"}
	got, err := b.TranslateAll(context.Background(), segments, nil)
	if err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}
	if len(got) != len(segments) {
		t.Fatalf("got %d results, want %d", len(got), len(segments))
	}
	for i, s := range segments {
		if got[i] != "AM:"+s {
			t.Errorf("result[%d] = %q, want %q", i, got[i], "AM:"+s)
		}
	}
}

func TestBatcherEmptySegmentsPassThrough(t *testing.T) {
	fake := &fakeTranslator{}
	b := newTestBatcher(fake, 4000, 3)

	got, err := b.TranslateAll(context.Background(), []string{"a", "", "b"}, nil)
	if err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}
	if got[1] != "" {
		t.Errorf("empty segment translated: %q", got[1])
	}
	if got[0] != "AM:a" || got[2] != "AM:b" {
		t.Errorf("non-empty segments wrong: %v", got)
	}
	// The empty segment never reaches the backend.
	for _, call := range fake.calls {
		for _, s := range call {
			if s == "" {
				t.Error("empty segment sent to backend")
			}
		}
	}
}

func TestBatcherRespectsCharBudget(t *testing.T) {
	fake := &fakeTranslator{}
	b := newTestBatcher(fake, 25, 3)

	segments := []string{
		strings.Repeat("a", 10),
		strings.Repeat("b", 10),
		strings.Repeat("c", 10), // pushes past 25, new batch
		strings.Repeat("d", 40), // oversized, own batch
	}
	_, err := b.TranslateAll(context.Background(), segments, nil)
	if err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}

	if len(fake.calls) != 3 {
		t.Fatalf("got %d batches, want 3: %v", len(fake.calls), fake.calls)
	}
	if len(fake.calls[0]) != 2 || len(fake.calls[1]) != 1 || len(fake.calls[2]) != 1 {
		t.Errorf("unexpected batch shapes: %v", fake.calls)
	}
}

func TestBatcherRetriesTransientErrors(t *testing.T) {
	fake := &fakeTranslator{
		failures: []error{
			types.NewAppError(types.ErrNetwork, "connection reset", nil),
			types.NewAppError(types.ErrAPIRateLimit, "rate limited", nil),
		},
	}
	b := newTestBatcher(fake, 4000, 3)

	got, err := b.TranslateAll(context.Background(), []string{"hello"}, nil)
	if err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}
	if got[0] != "AM:hello" {
		t.Errorf("result = %q", got[0])
	}
	if len(fake.calls) != 3 {
		t.Errorf("got %d attempts, want 3", len(fake.calls))
	}
}

func TestBatcherStopsOnNonRetryable(t *testing.T) {
	fake := &fakeTranslator{
		failures: []error{
			types.NewAppError(types.ErrConfig, "bad key", nil),
		},
	}
	b := newTestBatcher(fake, 4000, 3)

	_, err := b.TranslateAll(context.Background(), []string{"hello"}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(fake.calls) != 1 {
		t.Errorf("non-retryable error retried: %d attempts", len(fake.calls))
	}
}

func TestBatcherExhaustsRetries(t *testing.T) {
	fake := &fakeTranslator{
		failures: []error{
			types.NewAppError(types.ErrNetwork, "down", nil),
			types.NewAppError(types.ErrNetwork, "down", nil),
			types.NewAppError(types.ErrNetwork, "down", nil),
		},
	}
	b := newTestBatcher(fake, 4000, 3)

	_, err := b.TranslateAll(context.Background(), []string{"hello"}, nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if len(fake.calls) != 3 {
		t.Errorf("got %d attempts, want 3", len(fake.calls))
	}
}

func TestBatcherRejectsLengthMismatch(t *testing.T) {
	fake := &fakeTranslator{badLengths: true}
	b := newTestBatcher(fake, 4000, 3)

	_, err := b.TranslateAll(context.Background(), []string{"one", "two"}, nil)
	if err == nil {
		t.Fatal("expected error for length mismatch")
	}
}

func TestBatcherReportsProgress(t *testing.T) {
	fake := &fakeTranslator{}
	b := newTestBatcher(fake, 10, 3)

	var reports []int
	_, err := b.TranslateAll(context.Background(),
		[]string{"aaaa", "bbbb", "cccc", "dddd"},
		func(completed, total int, _ string) {
			if total != 4 {
				t.Errorf("total = %d, want 4", total)
			}
			reports = append(reports, completed)
		})
	if err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}

	if len(reports) == 0 {
		t.Fatal("no progress reported")
	}
	last := 0
	for _, c := range reports {
		if c <= last {
			t.Errorf("progress not monotonic: %v", reports)
			break
		}
		last = c
	}
	if reports[len(reports)-1] != 4 {
		t.Errorf("final progress = %d, want 4", reports[len(reports)-1])
	}
}

func TestBatcherCancelledContext(t *testing.T) {
	fake := &fakeTranslator{}
	b := newTestBatcher(fake, 4000, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.TranslateAll(ctx, []string{"hello"}, nil)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if len(fake.calls) != 0 {
		t.Error("backend called after cancellation")
	}
}
