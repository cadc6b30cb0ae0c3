package services

import (
	"github.com/mashora/mashora-backend/internal/models"
)

// Scoring weights for the default workload scorer. Higher score wins.
const (
	workloadWeight       = 40.0
	specializationWeight = 30.0
	ratingWeight         = 5.0
	experiencePerYear    = 2.0
	experienceCap        = 10.0
	defaultRating        = 4.0
)

// ScoreFunc ranks one candidate for a request in the given category.
// Swappable so alternate policies can replace the weighted sum without
// touching the commit logic.
type ScoreFunc func(lawyer *models.Lawyer, categoryCode string) float64

// DefaultScore is the production scoring policy:
// free-capacity ratio (40), specialization match (30), rating x5,
// experience at 2 points per year capped at 10.
func DefaultScore(lawyer *models.Lawyer, categoryCode string) float64 {
	maxWorkload := lawyer.MaxWorkload
	if maxWorkload < 1 {
		maxWorkload = 1
	}
	workloadRatio := float64(lawyer.CurrentWorkload) / float64(maxWorkload)
	score := (1 - workloadRatio) * workloadWeight

	if lawyer.HasSpecialization(categoryCode) {
		score += specializationWeight
	}

	rating := lawyer.Rating
	if rating == 0 {
		rating = defaultRating
	}
	score += rating * ratingWeight

	experience := float64(lawyer.ExperienceYears) * experiencePerYear
	if experience > experienceCap {
		experience = experienceCap
	}
	score += experience

	return score
}

// pickBest returns the highest-scoring candidate. Candidates arrive
// pre-sorted ascending by workload, and ties keep the earlier entry, so the
// least-loaded candidate wins ties deterministically.
func pickBest(candidates []*models.Lawyer, categoryCode string, score ScoreFunc) (*models.Lawyer, float64) {
	var best *models.Lawyer
	var bestScore float64
	for _, candidate := range candidates {
		s := score(candidate, categoryCode)
		if best == nil || s > bestScore {
			best = candidate
			bestScore = s
		}
	}
	return best, bestScore
}
