package domain

import (
	"strconv"
	"strings"
)

// ValidateQuestion checks a user question before it enters the pipeline.
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return NewValidationError("question", question, ErrEmptyQuestion)
	}
	return nil
}

// ValidateCollection checks retrieval tuning parameters. Thresholds are
// cosine similarities, so the valid range is [0, 1].
func ValidateCollection(col Collection) error {
	if col.Name == "" {
		return NewValidationError("name", col.Name, ErrEmptyCollection)
	}
	if col.TopK < 1 {
		return NewValidationError("top_k", strconv.Itoa(col.TopK), ErrInvalidTopK)
	}
	if col.ScoreThreshold < 0 || col.ScoreThreshold > 1 {
		return NewValidationError("score_threshold",
			strconv.FormatFloat(float64(col.ScoreThreshold), 'f', -1, 32), ErrInvalidThreshold)
	}
	return nil
}

// ValidateRole checks a chat message role.
func ValidateRole(role string) error {
	if role != RoleUser && role != RoleAssistant {
		return NewValidationError("role", role, ErrInvalidRole)
	}
	return nil
}

// ValidateRecord checks a CompoundRecord before ingestion. Text records need
// article content; image records need an image path. Rows failing here are
// skipped and counted by the loader, matching the hard guard in the original
// dumps' quality.
func ValidateRecord(rec CompoundRecord) error {
	if rec.CompoundName == "" {
		return NewValidationError("compound_name", rec.CompoundName, ErrInvalidRecord)
	}
	switch rec.Type {
	case PointTypeText:
		if rec.Article == "" {
			return NewValidationError("article", rec.CompoundName, ErrInvalidRecord)
		}
	case PointTypeImage:
		if rec.ImagePath == "" {
			return NewValidationError("image_path", rec.CompoundName, ErrInvalidRecord)
		}
	default:
		return NewValidationError("type", rec.Type, ErrInvalidRecord)
	}
	return nil
}
