package domain

import (
	"math"
	"strings"
)

// QualifiedThreshold is the minimum overall score for a qualified verdict.
const QualifiedThreshold = 4.0

const (
	minScore = 1.0
	maxScore = 10.0

	weightFit     = 0.4
	weightUrgency = 0.35
	weightSize    = 0.25
)

// Scores are the qualifier's 1..10 ratings.
type Scores struct {
	Fit     float64 `json:"fit"`
	Urgency float64 `json:"urgency"`
	Size    float64 `json:"size"`
	Overall float64 `json:"overall"`
}

// ClampScore bounds v to 1..10. NaN becomes the minimum.
func ClampScore(v float64) float64 {
	if math.IsNaN(v) || v < minScore {
		return minScore
	}
	if v > maxScore {
		return maxScore
	}
	return v
}

// ComputeOverall weighs fit, urgency and size and rounds to one decimal.
func ComputeOverall(fit, urgency, size float64) float64 {
	weighted := ClampScore(fit)*weightFit + ClampScore(urgency)*weightUrgency + ClampScore(size)*weightSize
	return math.Round(weighted*10) / 10
}

// NewScores clamps the inputs and derives Overall.
func NewScores(fit, urgency, size float64) Scores {
	return Scores{
		Fit:     ClampScore(fit),
		Urgency: ClampScore(urgency),
		Size:    ClampScore(size),
		Overall: ComputeOverall(fit, urgency, size),
	}
}

// IsQualified applies QualifiedThreshold to the overall score.
func (s Scores) IsQualified() bool {
	return s.Overall >= QualifiedThreshold
}

// Tier is a service plan.
type Tier string

const (
	TierCore   Tier = "core"
	TierGrowth Tier = "growth"
	TierScale  Tier = "scale"
)

var tierPrices = map[Tier]int{
	TierCore:   1500,
	TierGrowth: 3500,
	TierScale:  7500,
}

// MonthlyPriceZAR returns the list price in rand, 0 for unknown tiers.
func (t Tier) MonthlyPriceZAR() int {
	return tierPrices[t]
}

// ParseTier accepts only the three canonical tier names.
func ParseTier(raw string) (Tier, bool) {
	switch Tier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierCore:
		return TierCore, true
	case TierGrowth:
		return TierGrowth, true
	case TierScale:
		return TierScale, true
	}
	return "", false
}

// NormalizeTier maps legacy and canonical plan names onto a Tier.
// Empty input is core; unrecognised names are scale.
func NormalizeTier(raw string) Tier {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "starter", "core":
		return TierCore
	case "professional", "growth":
		return TierGrowth
	default:
		return TierScale
	}
}
