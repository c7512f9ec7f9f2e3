package commands

import "esgss-backend/pkg/utils"

// ReviewCardCommand records the outcome of a spaced review on a
// purified card. Three successes in a row promote the mastery tier; a
// miss drops it back to novice.
type ReviewCardCommand struct {
	UserID  string `json:"user_id" validate:"required"`
	CardID  string `json:"card_id" validate:"required"`
	Success bool   `json:"success"`
}

// Validate checks the command fields
func (c ReviewCardCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// DeleteCardCommand removes a card from a user's collection
type DeleteCardCommand struct {
	UserID string `json:"user_id" validate:"required"`
	CardID string `json:"card_id" validate:"required"`
}

// Validate checks the command fields
func (c DeleteCardCommand) Validate() error {
	return utils.ValidateStruct(c)
}
