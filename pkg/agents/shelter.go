package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/carebridge/carebridge/pkg/bus"
	"github.com/carebridge/carebridge/pkg/fault"
	"github.com/carebridge/carebridge/pkg/models"
	"github.com/carebridge/carebridge/pkg/voice"
)

// ShelterCaller places the availability-confirmation call. Satisfied by
// *voice.Caller.
type ShelterCaller interface {
	CallShelter(ctx context.Context, phone, shelterName string) (*voice.Result, error)
}

// ShelterAgent selects a shelter candidate from the cache and confirms its
// availability by phone. One candidate per call; the coordinator drives
// retries by growing the Exclude list.
type ShelterAgent struct {
	listings ListingSource
	caller   ShelterCaller
	logger   *slog.Logger
}

// NewShelterAgent creates the shelter agent.
func NewShelterAgent(listings ListingSource, caller ShelterCaller) *ShelterAgent {
	return &ShelterAgent{
		listings: listings,
		caller:   caller,
		logger:   slog.With("agent", Shelter),
	}
}

// Handle answers a bus.ShelterMatchRequest.
func (a *ShelterAgent) Handle(ctx context.Context, payload any) (any, error) {
	req, ok := payload.(bus.ShelterMatchRequest)
	if !ok {
		return nil, fault.NewValidationError("payload", "expected ShelterMatchRequest")
	}

	selected, warning, err := a.selectCandidate(ctx, req)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Shelter candidate selected",
		"case_id", req.CaseID, "shelter", selected.Name,
		"available_beds", selected.AvailableBeds, "accessibility_warning", warning)

	result, err := a.caller.CallShelter(ctx, selected.Phone, selected.Name)
	if err != nil {
		if errors.Is(err, fault.ErrCancelled) {
			return nil, err
		}
		// Call transport failure leaves availability unconfirmed; the
		// coordinator decides whether to retry elsewhere.
		a.logger.Warn("Shelter confirmation call failed",
			"case_id", req.CaseID, "shelter", selected.Name, "error", err)
		return bus.ShelterMatchResponse{
			Selected:             selected,
			AccessibilityWarning: warning,
		}, nil
	}

	facts := voice.ParseTranscript(result.Transcript, selected.Name)
	return bus.ShelterMatchResponse{
		Selected:              selected,
		AvailabilityConfirmed: result.OK && facts.AvailabilityConfirmed,
		Facts:                 facts,
		Transcript:            result.Transcript,
		AccessibilityWarning:  warning,
		DemoMode:              result.DemoMode,
	}, nil
}

// selectCandidate picks the best untried shelter: accessible shelters
// first when the intake requires it, relaxing to any shelter with a
// warning when no accessible bed is left.
func (a *ShelterAgent) selectCandidate(ctx context.Context, req bus.ShelterMatchRequest) (*models.ShelterListing, bool, error) {
	rows, err := a.listings.Shelters(ctx, &models.ShelterFilter{
		MinAvailableBeds: 1,
		AccessibleOnly:   req.Accessibility,
	})
	if err != nil {
		return nil, false, fmt.Errorf("query shelters: %w", err)
	}

	if c := firstNotExcluded(rows, req.Exclude); c != nil {
		return c, false, nil
	}

	if req.Accessibility {
		rows, err = a.listings.Shelters(ctx, &models.ShelterFilter{MinAvailableBeds: 1})
		if err != nil {
			return nil, false, fmt.Errorf("query shelters: %w", err)
		}
		if c := firstNotExcluded(rows, req.Exclude); c != nil {
			return c, true, nil
		}
	}

	return nil, false, fmt.Errorf("no shelter with available beds left to try: %w", fault.ErrNotFound)
}

func firstNotExcluded(rows []models.ShelterListing, exclude []string) *models.ShelterListing {
	for i := range rows {
		if !nameExcluded(rows[i].Name, exclude) {
			return &rows[i]
		}
	}
	return nil
}

func nameExcluded(name string, exclude []string) bool {
	for _, e := range exclude {
		if strings.EqualFold(name, e) {
			return true
		}
	}
	return false
}
