package config

import "esgss-backend/domain/core/valueobjects"

// DomainConfig holds tunable rules for trait evolution and purification.
// Values here are business constants, not deployment settings.
type DomainConfig struct {
	Evolution    EvolutionConfig
	Purification PurificationConfig
	Limits       LimitsConfig
}

// EvolutionConfig controls how interactions reshape node traits
type EvolutionConfig struct {
	// Raw interaction count thresholds. Crossing one adds the trait.
	OptimizationThreshold int
	PerformanceThreshold  int
	EvolutionThreshold    int

	// Weights feed the memory heat score shown on the dashboard.
	// They never gate trait thresholds.
	InteractionWeights map[valueobjects.InteractionType]float64
}

// PurificationConfig controls the quiz flow and its rewards
type PurificationConfig struct {
	XPPerPurification int
	QuizOptionCount   int
	QuizTimeoutSecs   int
}

// LimitsConfig bounds unbounded growth in node memory
type LimitsConfig struct {
	MaxMemoryEntries  int
	MaxAIInsights     int
	MaxNodesPerExport int
}

// DefaultDomainConfig returns the production rule set
func DefaultDomainConfig() DomainConfig {
	return DomainConfig{
		Evolution: EvolutionConfig{
			OptimizationThreshold: 5,
			PerformanceThreshold:  20,
			EvolutionThreshold:    50,
			InteractionWeights: map[valueobjects.InteractionType]float64{
				valueobjects.InteractionClick:     2,
				valueobjects.InteractionHover:     0.1,
				valueobjects.InteractionEdit:      5,
				valueobjects.InteractionAITrigger: 8,
			},
		},
		Purification: PurificationConfig{
			XPPerPurification: 200,
			QuizOptionCount:   4,
			QuizTimeoutSecs:   30,
		},
		Limits: LimitsConfig{
			MaxMemoryEntries:  500,
			MaxAIInsights:     50,
			MaxNodesPerExport: 1000,
		},
	}
}
