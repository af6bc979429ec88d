package agents

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carebridge/carebridge/pkg/bus"
	"github.com/carebridge/carebridge/pkg/fault"
	"github.com/carebridge/carebridge/pkg/models"
)

//go:embed pharmacies.json
var pharmacyData []byte

type formularyEntry struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type pharmacy struct {
	Name              string           `json:"name"`
	Address           string           `json:"address"`
	Phone             string           `json:"phone"`
	InsuranceCoverage string           `json:"insurance_coverage"`
	Formulary         []formularyEntry `json:"formulary"`
}

// PharmacyAgent prepares discharge medications against an embedded
// partner-pharmacy formulary table. The pharmacy stocking the most of
// the prescribed medications wins; ties break lexicographically by name
// so the choice is deterministic.
type PharmacyAgent struct {
	pharmacies []pharmacy
	logger     *slog.Logger

	// Now is overridable in tests.
	Now func() time.Time
}

// NewPharmacyAgent creates the pharmacy agent from the embedded table.
func NewPharmacyAgent() (*PharmacyAgent, error) {
	var pharmacies []pharmacy
	if err := json.Unmarshal(pharmacyData, &pharmacies); err != nil {
		return nil, fmt.Errorf("decode embedded pharmacy table: %w", err)
	}
	return &PharmacyAgent{
		pharmacies: pharmacies,
		logger:     slog.With("agent", Pharmacy),
		Now:        time.Now,
	}, nil
}

// Handle answers a bus.PharmacyRequest.
func (a *PharmacyAgent) Handle(ctx context.Context, payload any) (any, error) {
	req, ok := payload.(bus.PharmacyRequest)
	if !ok {
		return nil, fault.NewValidationError("payload", "expected PharmacyRequest")
	}
	if len(req.Medications) == 0 {
		return nil, fault.NewValidationError("medications", "at least one medication required")
	}

	var (
		best        *pharmacy
		bestMatches int
		bestCost    float64
	)
	for i := range a.pharmacies {
		p := &a.pharmacies[i]
		matches, cost := matchFormulary(p, req.Medications)
		switch {
		case matches > bestMatches:
			best, bestMatches, bestCost = p, matches, cost
		case matches == bestMatches && matches > 0 && best != nil && p.Name < best.Name:
			best, bestCost = p, cost
		}
	}
	if best == nil || bestMatches == 0 {
		return nil, fmt.Errorf("no partner pharmacy stocks any prescribed medication: %w", fault.ErrNotFound)
	}

	a.logger.Info("Medications prepared",
		"case_id", req.CaseID, "pharmacy", best.Name,
		"matched", bestMatches, "of", len(req.Medications), "total_cost", bestCost)

	return bus.PharmacyResponse{
		PharmacyName:      best.Name,
		Address:           best.Address,
		Phone:             best.Phone,
		ReadyTime:         a.Now().Add(2 * time.Hour).UTC(),
		TotalCost:         bestCost,
		InsuranceCoverage: best.InsuranceCoverage,
	}, nil
}

// matchFormulary counts prescribed medications the pharmacy stocks and
// sums their prices. Matching is case-insensitive substring either way,
// so "Metformin 500mg" matches the formulary's "metformin".
func matchFormulary(p *pharmacy, meds []models.Medication) (int, float64) {
	matches := 0
	cost := 0.0
	for _, med := range meds {
		name := strings.ToLower(strings.TrimSpace(med.Name))
		if name == "" {
			continue
		}
		for _, entry := range p.Formulary {
			stocked := strings.ToLower(entry.Name)
			if strings.Contains(name, stocked) || strings.Contains(stocked, name) {
				matches++
				cost += entry.Price
				break
			}
		}
	}
	return matches, cost
}
