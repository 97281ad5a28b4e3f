package models

// Chunk is a bounded slice of source text, the unit of embedding and retrieval.
type Chunk struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Order  int    `json:"order"`
}

// Scored pairs a chunk with its similarity to a query vector.
type Scored struct {
	Chunk Chunk
	Score float64
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one entry in the display transcript.
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}
