package agents

import (
	"context"
	"log/slog"
	"strings"

	"github.com/carebridge/carebridge/pkg/bus"
	"github.com/carebridge/carebridge/pkg/fault"
	"github.com/carebridge/carebridge/pkg/models"
)

// Fallback monthly amounts used when the benefits cache has no row for a
// program.
const (
	generalAssistanceMonthly = 588.0
	calFreshMonthly          = 281.0
)

// qualifyingIncomes are the income levels that pass the means test.
var qualifyingIncomes = map[string]bool{"low": true, "very_low": true, "none": true}

// EligibilityAgent evaluates benefit-program eligibility from the intake's
// self-reported income level. The eligibility rules are pure; the monthly
// amounts come from the cached benefit listings so the numbers shown track
// the scraped program data.
type EligibilityAgent struct {
	listings ListingSource
	logger   *slog.Logger
}

// NewEligibilityAgent creates the eligibility agent. listings may be nil;
// amounts then fall back to the built-in figures.
func NewEligibilityAgent(listings ListingSource) *EligibilityAgent {
	return &EligibilityAgent{
		listings: listings,
		logger:   slog.With("agent", Eligibility),
	}
}

// monthlyAmounts returns the per-program amounts, preferring cached
// benefit rows over the built-in fallbacks.
func (a *EligibilityAgent) monthlyAmounts(ctx context.Context) map[string]float64 {
	amounts := map[string]float64{
		"General Assistance": generalAssistanceMonthly,
		"CalFresh":           calFreshMonthly,
	}
	if a.listings == nil {
		return amounts
	}
	rows, err := a.listings.Benefits(ctx)
	if err != nil {
		a.logger.Warn("Benefits cache unavailable, using fallback amounts", "error", err)
		return amounts
	}
	for _, b := range rows {
		if _, known := amounts[b.ProgramName]; known {
			amounts[b.ProgramName] = b.MonthlyAmount
		}
	}
	return amounts
}

// Handle answers a bus.EligibilityRequest.
func (a *EligibilityAgent) Handle(ctx context.Context, payload any) (any, error) {
	req, ok := payload.(bus.EligibilityRequest)
	if !ok {
		return nil, fault.NewValidationError("payload", "expected EligibilityRequest")
	}

	income := strings.ToLower(strings.TrimSpace(req.IncomeLevel))
	summary := models.BenefitsSummary{}

	if income == "" {
		// Income unverified: nothing can be granted automatically.
		summary.RequiresManualReview = true
		for _, name := range []string{"Medi-Cal", "General Assistance", "CalFresh", "Housing Assistance Waitlist"} {
			summary.Programs = append(summary.Programs, models.ProgramEligibility{
				Name: name, Status: "income verification required",
			})
		}
		summary.Programs = append(summary.Programs, models.ProgramEligibility{
			Name: "Disability Benefits", Status: "pending review",
		})
		summary.NextSteps = []string{"Verify income documentation with case manager"}
		return summary, nil
	}

	add := func(name string, eligible bool, amount float64, status, nextStep string) {
		p := models.ProgramEligibility{Name: name, Eligible: eligible}
		if !eligible {
			p.Status = status
			summary.Programs = append(summary.Programs, p)
			return
		}
		if hasBenefit(req.CurrentBenefits, name) {
			p.Status = "already enrolled"
			summary.Programs = append(summary.Programs, p)
			return
		}
		p.MonthlyAmount = amount
		p.Status = status
		summary.Programs = append(summary.Programs, p)
		summary.TotalMonthlyBenefits += amount
		if nextStep != "" {
			summary.NextSteps = append(summary.NextSteps, nextStep)
		}
	}

	amounts := a.monthlyAmounts(ctx)

	// Medi-Cal is means-tested; GA, CalFresh, and the housing waitlist are
	// open to everyone this system handles.
	mediCalStatus := ""
	if !qualifyingIncomes[income] {
		mediCalStatus = "income above threshold"
	}
	add("Medi-Cal", qualifyingIncomes[income], 0, mediCalStatus, "Apply for Medi-Cal coverage immediately")
	add("General Assistance", true, amounts["General Assistance"], "", "Submit GA application at county office")
	add("CalFresh", true, amounts["CalFresh"], "", "Apply for CalFresh benefits")
	add("Housing Assistance Waitlist", true, 0, "waitlist", "Join housing assistance waitlist")

	a.logger.Info("Eligibility evaluated",
		"case_id", req.CaseID, "income_level", income,
		"total_monthly", summary.TotalMonthlyBenefits,
		"manual_review", summary.RequiresManualReview)
	return summary, nil
}

func hasBenefit(current []string, program string) bool {
	want := strings.ToLower(program)
	for _, b := range current {
		have := strings.ToLower(strings.TrimSpace(b))
		if have == "" {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return true
		}
	}
	return false
}
