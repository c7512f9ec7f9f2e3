package valueobjects

import (
	"encoding/json"
	"sort"

	pkgerrors "esgss-backend/pkg/errors"
)

// Trait is one of the eight evolutionary trait tags an entity can carry.
// The vocabulary is closed: traits outside this set are rejected.
type Trait string

const (
	TraitOptimization Trait = "optimization" // active usage
	TraitGapFilling   Trait = "gap-filling"  // value is an AI estimate
	TraitTagging      Trait = "tagging"      // categorization active
	TraitPerformance  Trait = "performance"  // heavy usage
	TraitLearning     Trait = "learning"     // model learning from this entity
	TraitEvolution    Trait = "evolution"    // continuous improvement loop
	TraitBridging     Trait = "bridging"     // connected to other metrics
	TraitSeamless     Trait = "seamless"     // borderless integration
)

// AllTraits lists the closed trait vocabulary
func AllTraits() []Trait {
	return []Trait{
		TraitOptimization, TraitGapFilling, TraitTagging, TraitPerformance,
		TraitLearning, TraitEvolution, TraitBridging, TraitSeamless,
	}
}

// IsValid checks that the trait belongs to the closed vocabulary
func (t Trait) IsValid() bool {
	switch t {
	case TraitOptimization, TraitGapFilling, TraitTagging, TraitPerformance,
		TraitLearning, TraitEvolution, TraitBridging, TraitSeamless:
		return true
	default:
		return false
	}
}

// TraitSet is an unordered, duplicate-free collection of traits
type TraitSet struct {
	members map[Trait]struct{}
}

// NewTraitSet creates a trait set from the given traits, ignoring duplicates
func NewTraitSet(traits ...Trait) (TraitSet, error) {
	s := TraitSet{members: make(map[Trait]struct{}, len(traits))}
	for _, t := range traits {
		if !t.IsValid() {
			return TraitSet{}, pkgerrors.NewValidationError("unknown trait: " + string(t))
		}
		s.members[t] = struct{}{}
	}
	return s, nil
}

// Add inserts a trait; adding an existing trait is a no-op.
// Returns true if the set changed.
func (s *TraitSet) Add(t Trait) bool {
	if !t.IsValid() {
		return false
	}
	if s.members == nil {
		s.members = make(map[Trait]struct{})
	}
	if _, ok := s.members[t]; ok {
		return false
	}
	s.members[t] = struct{}{}
	return true
}

// Remove deletes a trait. Returns true if the set changed.
func (s *TraitSet) Remove(t Trait) bool {
	if s.members == nil {
		return false
	}
	if _, ok := s.members[t]; !ok {
		return false
	}
	delete(s.members, t)
	return true
}

// Contains reports whether the trait is in the set
func (s TraitSet) Contains(t Trait) bool {
	_, ok := s.members[t]
	return ok
}

// Len returns the number of traits in the set
func (s TraitSet) Len() int {
	return len(s.members)
}

// Slice returns the traits in deterministic order
func (s TraitSet) Slice() []Trait {
	out := make([]Trait, 0, len(s.members))
	for t := range s.members {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy of the set
func (s TraitSet) Clone() TraitSet {
	c := TraitSet{members: make(map[Trait]struct{}, len(s.members))}
	for t := range s.members {
		c.members[t] = struct{}{}
	}
	return c
}

// MarshalJSON serializes the set as a sorted JSON array
func (s TraitSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON deserializes a JSON array of trait strings, dropping
// anything outside the vocabulary
func (s *TraitSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.members = make(map[Trait]struct{}, len(raw))
	for _, v := range raw {
		if t := Trait(v); t.IsValid() {
			s.members[t] = struct{}{}
		}
	}
	return nil
}

// Confidence is the visual confidence level attached to an entity's value
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// IsValid checks the confidence level is one of the three known values
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}
