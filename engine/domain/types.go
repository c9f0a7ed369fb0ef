// Package domain defines core types, sentinel errors, and validation for the
// examaid question-answering pipeline. It acts as the validation gate at the
// entry points of retrieval and ingestion.
package domain

import "time"

// EmbeddingDims is the vector size produced by all-MiniLM-L6-v2.
const EmbeddingDims = 384

// Point payload type discriminators.
const (
	PointTypeText  = "text"
	PointTypeImage = "image"
)

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Collection names a Qdrant collection together with its retrieval tuning.
// Thresholds were tuned empirically against the Wikidata compound corpus and
// stay overridable through configuration.
type Collection struct {
	Name           string  `json:"name"`
	TopK           int     `json:"top_k"`
	ScoreThreshold float32 `json:"score_threshold"`
}

// Default collections matching the ingestion pipelines.
var (
	DefaultTextCollection  = Collection{Name: "study_text", TopK: 3, ScoreThreshold: 0.25}
	DefaultImageCollection = Collection{Name: "study_images", TopK: 1, ScoreThreshold: 0.15}
)

// CompoundRecord is one row of a Wikidata compound dump, the unit of ingestion.
type CompoundRecord struct {
	CompoundID   string `json:"compound_id"`
	CompoundName string `json:"compound_name"`
	Article      string `json:"article,omitempty"`
	ImagePath    string `json:"image_path,omitempty"`
	Source       string `json:"source"`
	Type         string `json:"type"` // text or image
}

// Message is one persisted chat transcript entry. Immutable once written;
// ordering within a session is by CreatedAt ascending.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// SessionSummary aggregates one chat session for listing.
type SessionSummary struct {
	SessionID     string    `json:"session_id"`
	Preview       string    `json:"preview"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
	MessageCount  int       `json:"message_count"`
}
