package quiz

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"esgss-backend/application/ports"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
)

// fallbackDistractors pad a quiz when the user's collection is too
// small to supply enough wrong answers
var fallbackDistractors = []string{
	"A voluntary carbon offset purchased to neutralize residual emissions.",
	"A governance committee that reviews executive compensation annually.",
	"The share of renewable electricity in total energy consumption.",
	"A supplier audit program covering labor conditions in the value chain.",
	"The total water withdrawn per unit of production output.",
}

// TemplateGenerator builds quizzes locally: the card's own definition
// is the correct option and definitions of other cards act as
// distractors. Used when no AI provider is configured and as the
// circuit breaker fallback.
type TemplateGenerator struct {
	optionCount int

	// rand.Rand is not safe for concurrent use and sessions for
	// different users generate quizzes in parallel
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTemplateGenerator creates a generator producing quizzes with the
// given number of options
func NewTemplateGenerator(optionCount int, seed int64) *TemplateGenerator {
	if optionCount < 2 {
		optionCount = 4
	}
	return &TemplateGenerator{
		optionCount: optionCount,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Generate builds a quiz for the card
func (g *TemplateGenerator) Generate(ctx context.Context, card *entities.Card, pool []*entities.Card) (valueobjects.Quiz, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	distractors := g.pickDistractors(card, pool)
	options := append([]string{card.Definition()}, distractors...)

	// Shuffle while tracking where the correct option lands.
	correct := 0
	g.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
		switch correct {
		case i:
			correct = j
		case j:
			correct = i
		}
	})

	question := fmt.Sprintf("Which of these describes %q?", card.Term())
	return valueobjects.NewQuiz(card.ID(), question, options, correct)
}

// pickDistractors prefers definitions from the same ESG pillar so the
// wrong answers read plausibly
func (g *TemplateGenerator) pickDistractors(card *entities.Card, pool []*entities.Card) []string {
	needed := g.optionCount - 1

	samePillar := make([]string, 0)
	others := make([]string, 0)
	for _, c := range pool {
		if c.ID().Equals(card.ID()) || c.Definition() == card.Definition() {
			continue
		}
		if c.Attribute() == card.Attribute() {
			samePillar = append(samePillar, c.Definition())
		} else {
			others = append(others, c.Definition())
		}
	}
	g.rng.Shuffle(len(samePillar), func(i, j int) { samePillar[i], samePillar[j] = samePillar[j], samePillar[i] })
	g.rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

	picked := make([]string, 0, needed)
	for _, d := range append(samePillar, others...) {
		if len(picked) == needed {
			break
		}
		picked = append(picked, d)
	}
	for i := 0; len(picked) < needed; i++ {
		candidate := fallbackDistractors[i%len(fallbackDistractors)]
		if candidate != card.Definition() {
			picked = append(picked, candidate)
		}
	}
	return picked
}

var _ ports.QuizGenerator = (*TemplateGenerator)(nil)
