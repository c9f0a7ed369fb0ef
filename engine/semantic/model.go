package semantic

// SearchResult is a single vector search hit with its typed payload.
type SearchResult struct {
	ID           string  `json:"id"`
	Score        float32 `json:"score"`
	Type         string  `json:"type"`
	Content      string  `json:"content"`
	CompoundID   string  `json:"compound_id"`
	CompoundName string  `json:"compound_name"`
	Source       string  `json:"source"`
	ImagePath    string  `json:"image_path,omitempty"`
}

// Record is a single vector to store in Qdrant.
type Record struct {
	ID        string
	Embedding []float32
	Payload   map[string]any // type, content, compound_id, compound_name, source, image_path
}
