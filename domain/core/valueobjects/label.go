package valueobjects

import (
	"strings"

	pkgerrors "esgss-backend/pkg/errors"
)

// Importance ranks the business relevance of a labelled data point
type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceHigh     Importance = "high"
	ImportanceMedium   Importance = "medium"
	ImportanceLow      Importance = "low"
)

// UniversalLabel is the semantic descriptor attached to a tracked entity.
// Only ID and Text are mandatory; the rest is optional metadata consumed by
// AI analysis and report generation.
type UniversalLabel struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	DataType    string     `json:"dataType,omitempty"`
	Importance  Importance `json:"importance,omitempty"`
	Description string     `json:"description,omitempty"`
	Definition  string     `json:"definition,omitempty"`
	Formula     string     `json:"formula,omitempty"`
}

// NewUniversalLabel creates a label with validation
func NewUniversalLabel(id, text string) (UniversalLabel, error) {
	id = strings.TrimSpace(id)
	text = strings.TrimSpace(text)
	if id == "" {
		return UniversalLabel{}, pkgerrors.NewValidationError("label ID cannot be empty")
	}
	if text == "" {
		return UniversalLabel{}, pkgerrors.NewValidationError("label text cannot be empty")
	}
	return UniversalLabel{ID: id, Text: text}, nil
}

// TextLabel builds a minimal label whose ID doubles as the display text.
// Convenience for plain-string labels; the owning entity still requires an
// explicit EntityID.
func TextLabel(text string) (UniversalLabel, error) {
	return NewUniversalLabel(text, text)
}

// IsZero checks whether the label carries no content
func (l UniversalLabel) IsZero() bool {
	return l.ID == "" && l.Text == ""
}
