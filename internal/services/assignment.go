package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mashora/mashora-backend/internal/models"
	"github.com/mashora/mashora-backend/internal/storage"
)

// AssignmentService distributes service requests to legal-arm lawyers by
// workload score and commits the result.
type AssignmentService struct {
	store    storage.Store
	notifier *Notifier
	score    ScoreFunc
	now      func() time.Time
}

// NewAssignmentService creates an assignment service using the default
// scoring policy.
func NewAssignmentService(store storage.Store, notifier *Notifier) *AssignmentService {
	return &AssignmentService{
		store:    store,
		notifier: notifier,
		score:    DefaultScore,
		now:      time.Now,
	}
}

// SetScoreFunc swaps the scoring policy.
func (s *AssignmentService) SetScoreFunc(score ScoreFunc) {
	s.score = score
}

// SetClock overrides the service clock (tests only).
func (s *AssignmentService) SetClock(now func() time.Time) {
	s.now = now
}

// AssignmentResult reports the outcome of a distribution attempt. Success
// false with an Escalate flag is a normal outcome, not an error.
type AssignmentResult struct {
	Success  bool    `json:"success"`
	Escalate bool    `json:"escalate,omitempty"`
	Message  string  `json:"message,omitempty"`
	LawyerID string  `json:"lawyer_id,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// DistributeRequest picks the best eligible lawyer for the request and
// commits the assignment. An empty candidate pool escalates without any
// store mutation. A commit conflict (someone assigned first) fails the
// operation without stranding the request.
func (s *AssignmentService) DistributeRequest(requestID, categoryCode string) (*AssignmentResult, error) {
	request, err := s.store.GetServiceRequest(requestID)
	if err != nil {
		return nil, fmt.Errorf("request lookup failed: %w", err)
	}
	if request.AssignedLawyerID != nil {
		return nil, storage.ErrAlreadyAssigned
	}
	if categoryCode == "" {
		categoryCode = request.CategoryCode
	}

	candidates, err := s.store.GetEligibleLawyers()
	if err != nil {
		return nil, fmt.Errorf("candidate lookup failed: %w", err)
	}
	if len(candidates) == 0 {
		log.Printf("⚠️  No eligible lawyers for request %s - escalating to manager", requestID)
		return &AssignmentResult{
			Success:  false,
			Escalate: true,
			Message:  ErrNoCandidates.Error(),
		}, nil
	}

	best, bestScore := pickBest(candidates, categoryCode, s.score)

	// Conditional commit: only wins if the request is still unassigned
	if err := s.store.AssignServiceRequest(requestID, best.LawyerID, s.now()); err != nil {
		if errors.Is(err, storage.ErrAlreadyAssigned) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to commit assignment: %w", err)
	}

	if err := s.store.IncrementLawyerWorkload(best.LawyerID); err != nil {
		// The assignment itself is committed; workload is a routing
		// signal, so log and continue rather than unwinding.
		log.Printf("Failed to bump workload for lawyer %s: %v", best.LawyerID, err)
	}

	s.notifier.Enqueue(&models.Notification{
		RecipientID:   best.LawyerID,
		RecipientType: "lawyer",
		Title:         "New request assigned",
		Body:          fmt.Sprintf("Request %s has been assigned to you.", requestID),
		ReferenceID:   requestID,
	})

	log.Printf("✅ Request %s assigned to lawyer %s (score %.1f)", requestID, best.LawyerID, bestScore)
	return &AssignmentResult{
		Success:  true,
		LawyerID: best.LawyerID,
		Score:    bestScore,
	}, nil
}
