package valueobjects

import (
	pkgerrors "esgss-backend/pkg/errors"
)

// Quiz is a generated multiple-choice question for card purification.
// The correct answer index is never serialized to clients.
type Quiz struct {
	CardID       EntityID `json:"cardId"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"-"`
}

// NewQuiz validates a generated quiz before it reaches a session
func NewQuiz(cardID EntityID, question string, options []string, correctIndex int) (Quiz, error) {
	if cardID.IsZero() {
		return Quiz{}, pkgerrors.NewValidationError("quiz missing card ID")
	}
	if question == "" {
		return Quiz{}, pkgerrors.NewValidationError("quiz question cannot be empty")
	}
	if len(options) < 2 {
		return Quiz{}, pkgerrors.NewValidationError("quiz needs at least two options")
	}
	if correctIndex < 0 || correctIndex >= len(options) {
		return Quiz{}, pkgerrors.NewValidationError("quiz correct index out of range")
	}
	return Quiz{
		CardID:       cardID,
		Question:     question,
		Options:      options,
		CorrectIndex: correctIndex,
	}, nil
}

// IsCorrect checks a submitted answer index
func (q Quiz) IsCorrect(answerIndex int) bool {
	return answerIndex == q.CorrectIndex
}
