package semantic

// SearchHit is a single vector search result pointing back at a corpus
// record by id. Score is cosine similarity as reported by Qdrant.
type SearchHit struct {
	RecordID string  `json:"record_id"`
	Score    float32 `json:"score"`
	Category string  `json:"category"`
}

// VectorRecord is one intervention embedding to store.
type VectorRecord struct {
	RecordID  string
	Embedding []float32
	Category  string
	Title     string
}
