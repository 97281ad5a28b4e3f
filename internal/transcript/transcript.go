// Package transcript keeps the conversation history for display. It is
// append-only and never feeds back into retrieval or prompting.
package transcript

import (
	"sync"

	"pdfrag/internal/models"
)

type Log struct {
	mu    sync.Mutex
	turns []models.ChatTurn
}

func New() *Log {
	return &Log{}
}

func (l *Log) Append(role, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, models.ChatTurn{Role: role, Text: text})
}

// Turns returns a copy of the history in order.
func (l *Log) Turns() []models.ChatTurn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.ChatTurn, len(l.turns))
	copy(out, l.turns)
	return out
}
