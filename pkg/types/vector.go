package types

// VectorInput is one entry handed to a vector store upsert. When Embedding is
// empty the store computes it from Content with its configured embedder.
type VectorInput struct {
	Content   string         `json:"content,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// VectorEntry is a stored vector with its payload fields.
type VectorEntry struct {
	ID        string         `json:"__id__"`
	Embedding []float32      `json:"__vector__"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// VectorQuery describes a similarity search. Either Embedding or Text must be
// set; Text is embedded with the store's embedder. A nil ScoreThreshold uses
// the store's configured default.
type VectorQuery struct {
	Embedding      []float32
	Text           string
	TopK           int
	ScoreThreshold *float64
}

// VectorMatch is a single similarity search hit. Score is cosine similarity in [-1, 1].
type VectorMatch struct {
	ID      string         `json:"id"`
	Payload map[string]any `json:"payload,omitempty"`
	Score   float64        `json:"score"`
}

// Threshold returns a pointer to t, for VectorQuery.ScoreThreshold literals.
func Threshold(t float64) *float64 {
	return &t
}
