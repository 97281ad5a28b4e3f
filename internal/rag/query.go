package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"pdfrag/internal/config"
	"pdfrag/internal/llmservice"
	"pdfrag/internal/vectorindex"
)

// NotRelevantAnswer is returned without calling the model when retrieval
// comes back near empty. A cheap guard, not a semantic relevance check.
const NotRelevantAnswer = "This query is not relevant to the uploaded PDF."

const systemPrompt = "You are a helpful assistant. Answer the question based on the context from the uploaded PDF."

// Querier answers one question against the current index. Questions are
// stateless; prior turns never feed back into the prompt.
type Querier struct {
	embedder    embeddings.Embedder
	index       *vectorindex.Index
	chat        llmservice.ChatModel
	topK        int
	minContext  int
	maxAttempts int
	backoff     time.Duration
}

func NewQuerier(embedder embeddings.Embedder, index *vectorindex.Index, chat llmservice.ChatModel, cfg config.RAGConfig) *Querier {
	return &Querier{
		embedder:    embedder,
		index:       index,
		chat:        chat,
		topK:        cfg.TopK,
		minContext:  cfg.MinContextChars,
		maxAttempts: cfg.MaxAttempts,
		backoff:     time.Second,
	}
}

// Answer embeds the question, retrieves the closest chunks and asks the
// completion model to answer from that context alone.
func (q *Querier) Answer(ctx context.Context, question string) (string, error) {
	if !q.index.Ready() {
		return "", ErrNoIndex
	}

	queryVector, err := q.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return "", &EmbedError{Err: err}
	}

	results := q.index.Search(queryVector, q.topK)
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(r.Chunk.Text)
	}
	contextText := sb.String()

	if len(contextText) < q.minContext {
		log.Warn().Int("context_chars", len(contextText)).Msg("retrieved context too short, skipping completion")
		return NotRelevantAnswer, nil
	}

	messages := []llmservice.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, question)},
	}
	return q.generate(ctx, messages)
}

// generate calls the completion model, retrying rate limits with doubling
// backoff (1s, 2s, ...) up to maxAttempts total attempts. Waits abort when
// ctx is done. Any other failure propagates immediately.
func (q *Querier) generate(ctx context.Context, messages []llmservice.Message) (string, error) {
	delay := q.backoff
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		answer, err := q.chat.Generate(ctx, messages)
		if err == nil {
			return answer, nil
		}

		var rateLimited *llmservice.RateLimitError
		if !errors.As(err, &rateLimited) {
			return "", &LLMError{Err: err}
		}
		if attempt == q.maxAttempts {
			break
		}

		log.Warn().Int("attempt", attempt).Dur("delay", delay).Msg("completion rate limited, backing off")
		select {
		case <-ctx.Done():
			return "", &LLMError{Err: ctx.Err()}
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", &MaxRetriesError{Attempts: q.maxAttempts}
}
