package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/config"
	"pdfrag/internal/embedding"
	"pdfrag/internal/llmservice"
	"pdfrag/internal/models"
	"pdfrag/internal/vectorindex"
)

type stubChat struct {
	mu         sync.Mutex
	calls      int
	rateLimits int // number of leading 429 responses
	err        error
	answer     string
	lastMsgs   []llmservice.Message
}

func (s *stubChat) Generate(_ context.Context, messages []llmservice.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastMsgs = messages
	if s.err != nil {
		return "", s.err
	}
	if s.calls <= s.rateLimits {
		return "", &llmservice.RateLimitError{}
	}
	return s.answer, nil
}

func (s *stubChat) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func ragConfig() config.RAGConfig {
	return config.RAGConfig{TopK: 4, MinContextChars: 20, MaxAttempts: 3}
}

func populatedIndex(t *testing.T, embedder *embedding.Mock, texts ...string) *vectorindex.Index {
	t.Helper()
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{Text: text, Source: "batch", Order: i}
	}
	vectors, err := embedder.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	ix := vectorindex.New()
	require.NoError(t, ix.Rebuild(chunks, vectors))
	return ix
}

func TestAnswerNoIndex(t *testing.T) {
	chat := &stubChat{answer: "unused"}
	q := NewQuerier(embedding.NewMock(16), vectorindex.New(), chat, ragConfig())

	_, err := q.Answer(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNoIndex)
	assert.Zero(t, chat.callCount())
}

func TestAnswerLowRelevanceSkipsModel(t *testing.T) {
	embedder := embedding.NewMock(16)
	ix := populatedIndex(t, embedder, "tiny")
	chat := &stubChat{answer: "unused"}
	q := NewQuerier(embedder, ix, chat, ragConfig())

	answer, err := q.Answer(context.Background(), "unrelated question")
	require.NoError(t, err)
	assert.Equal(t, NotRelevantAnswer, answer)
	assert.Zero(t, chat.callCount(), "model must not be invoked for near-empty context")
}

func TestAnswerBuildsPrompt(t *testing.T) {
	embedder := embedding.NewMock(32)
	ix := populatedIndex(t, embedder, "The capital of France is Paris.")
	chat := &stubChat{answer: "Paris"}
	q := NewQuerier(embedder, ix, chat, ragConfig())

	answer, err := q.Answer(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris", answer)

	require.Len(t, chat.lastMsgs, 2)
	assert.Equal(t, "system", chat.lastMsgs[0].Role)
	assert.Equal(t, "user", chat.lastMsgs[1].Role)
	assert.Contains(t, chat.lastMsgs[1].Content, "The capital of France is Paris.")
	assert.Contains(t, chat.lastMsgs[1].Content, "What is the capital of France?")
}

func TestAnswerRetriesRateLimit(t *testing.T) {
	embedder := embedding.NewMock(32)
	ix := populatedIndex(t, embedder, "The capital of France is Paris.")
	chat := &stubChat{rateLimits: 2, answer: "Paris"}
	q := NewQuerier(embedder, ix, chat, ragConfig())
	q.backoff = 10 * time.Millisecond

	start := time.Now()
	answer, err := q.Answer(context.Background(), "capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris", answer)
	assert.Equal(t, 3, chat.callCount())
	// waits double: 10ms then 20ms
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestAnswerExhaustsRetries(t *testing.T) {
	embedder := embedding.NewMock(32)
	ix := populatedIndex(t, embedder, "The capital of France is Paris.")
	chat := &stubChat{rateLimits: 100}
	q := NewQuerier(embedder, ix, chat, ragConfig())
	q.backoff = time.Millisecond

	_, err := q.Answer(context.Background(), "capital of France?")
	var maxErr *MaxRetriesError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 3, maxErr.Attempts)
	assert.Equal(t, 3, chat.callCount(), "exactly maxAttempts calls, no more")
}

func TestAnswerPropagatesOtherFailures(t *testing.T) {
	embedder := embedding.NewMock(32)
	ix := populatedIndex(t, embedder, "The capital of France is Paris.")
	chat := &stubChat{err: fmt.Errorf("upstream exploded")}
	q := NewQuerier(embedder, ix, chat, ragConfig())

	_, err := q.Answer(context.Background(), "capital of France?")
	var llmErr *LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, 1, chat.callCount(), "non-rate-limit failures are not retried")
}

func TestAnswerBackoffHonorsContext(t *testing.T) {
	embedder := embedding.NewMock(32)
	ix := populatedIndex(t, embedder, "The capital of France is Paris.")
	chat := &stubChat{rateLimits: 100}
	q := NewQuerier(embedder, ix, chat, ragConfig())
	q.backoff = 10 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := q.Answer(ctx, "capital of France?")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), time.Second, "wait must abort with the context")
}

func TestAnswerContextAssemblyOrder(t *testing.T) {
	embedder := embedding.NewMock(64)
	ix := populatedIndex(t, embedder,
		"Paris is the capital and largest city of France.",
		"Berlin is the capital and largest city of Germany.",
	)
	chat := &stubChat{answer: "ok"}
	q := NewQuerier(embedder, ix, chat, ragConfig())

	_, err := q.Answer(context.Background(), "What is the capital of France? Paris city France capital largest")
	require.NoError(t, err)
	require.Len(t, chat.lastMsgs, 2)
	user := chat.lastMsgs[1].Content
	// the France chunk scores higher, so it must come first in the context
	assert.Less(t, strings.Index(user, "France."), strings.Index(user, "Germany."))
}
