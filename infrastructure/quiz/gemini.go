package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"esgss-backend/application/ports"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
)

// GeminiGenerator asks Gemini for a purification quiz. The model
// writes the question and distractors; the card's real definition is
// always the correct option.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiGenerator creates a Gemini-backed quiz generator
func NewGeminiGenerator(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiGenerator{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// quizResponse is the JSON shape the model is asked to produce
type quizResponse struct {
	Question    string   `json:"question"`
	Distractors []string `json:"distractors"`
}

// Generate builds a quiz for the card
func (g *GeminiGenerator) Generate(ctx context.Context, card *entities.Card, pool []*entities.Card) (valueobjects.Quiz, error) {
	prompt := g.buildPrompt(card)
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return valueobjects.Quiz{}, fmt.Errorf("gemini request failed: %w", err)
	}

	raw := strings.TrimSpace(resp.Text())
	var parsed quizResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return valueobjects.Quiz{}, fmt.Errorf("gemini returned malformed quiz: %w", err)
	}
	if parsed.Question == "" || len(parsed.Distractors) < 3 {
		return valueobjects.Quiz{}, fmt.Errorf("gemini quiz incomplete: %d distractors", len(parsed.Distractors))
	}

	// Correct answer first, then rotate by term length so its position
	// varies per card without extra state.
	options := append([]string{card.Definition()}, parsed.Distractors[:3]...)
	correct := 0
	offset := len(card.Term()) % len(options)
	rotated := make([]string, len(options))
	for i, opt := range options {
		rotated[(i+offset)%len(options)] = opt
	}
	correct = offset

	g.logger.Debug("gemini quiz generated",
		zap.String("card_id", card.ID().String()),
		zap.String("model", g.model))
	return valueobjects.NewQuiz(card.ID(), parsed.Question, rotated, correct)
}

func (g *GeminiGenerator) buildPrompt(card *entities.Card) string {
	var b strings.Builder
	b.WriteString("You are writing a multiple-choice question for an ESG glossary flashcard game.\n")
	fmt.Fprintf(&b, "Term: %s\n", card.Term())
	fmt.Fprintf(&b, "Correct definition: %s\n", card.Definition())
	fmt.Fprintf(&b, "ESG pillar: %s\n", card.Attribute())
	if card.Category() != "" {
		fmt.Fprintf(&b, "Category: %s\n", card.Category())
	}
	b.WriteString("\nRespond with JSON only, shaped as ")
	b.WriteString(`{"question": "...", "distractors": ["...", "...", "..."]}.`)
	b.WriteString("\nThe question asks which option defines the term.")
	b.WriteString(" The three distractors must be plausible ESG definitions that are clearly wrong for this term, similar in length and tone to the correct definition. Do not include the correct definition among the distractors.")
	return b.String()
}

var _ ports.QuizGenerator = (*GeminiGenerator)(nil)
