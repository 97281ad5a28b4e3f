package rag

import (
	"errors"
	"fmt"
)

// ErrNoIndex is returned when a question arrives before any successful
// ingestion. User-actionable: upload a document first.
var ErrNoIndex = errors.New("no documents indexed yet, upload a PDF first")

// ParseError reports an unreadable or malformed uploaded file. The whole
// batch is rejected; no other file from the same upload is ingested.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmbedError reports a failure of the embedding endpoint. Ingestion aborts
// and the previous index, if any, stays live.
type EmbedError struct {
	Err error
}

func (e *EmbedError) Error() string {
	return fmt.Sprintf("embedding service: %v", e.Err)
}

func (e *EmbedError) Unwrap() error { return e.Err }

// MaxRetriesError reports that the completion endpoint rate-limited every
// attempt of the retry loop.
type MaxRetriesError struct {
	Attempts int
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("completion rate limited after %d attempts", e.Attempts)
}

// LLMError wraps any non-rate-limit failure of the completion call.
type LLMError struct {
	Err error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("completion: %v", e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

func errMismatch(chunks, vectors int) error {
	return fmt.Errorf("got %d vectors for %d chunks", vectors, chunks)
}
