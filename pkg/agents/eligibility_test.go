package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/carebridge/pkg/bus"
	"github.com/carebridge/carebridge/pkg/models"
	"github.com/carebridge/carebridge/pkg/store"
)

func evaluate(t *testing.T, req bus.EligibilityRequest) models.BenefitsSummary {
	t.Helper()
	resp, err := NewEligibilityAgent(nil).Handle(context.Background(), req)
	require.NoError(t, err)
	return resp.(models.BenefitsSummary)
}

func TestEligibilityLowIncomeNoBenefits(t *testing.T) {
	summary := evaluate(t, bus.EligibilityRequest{
		CaseID:      "C6",
		IncomeLevel: "low",
	})

	names := make(map[string]models.ProgramEligibility)
	for _, p := range summary.Programs {
		names[p.Name] = p
	}
	assert.True(t, names["Medi-Cal"].Eligible)
	assert.Equal(t, 0.0, names["Medi-Cal"].MonthlyAmount)
	assert.True(t, names["General Assistance"].Eligible)
	assert.Equal(t, 588.0, names["General Assistance"].MonthlyAmount)
	assert.True(t, names["CalFresh"].Eligible)
	assert.Equal(t, 281.0, names["CalFresh"].MonthlyAmount)
	assert.True(t, names["Housing Assistance Waitlist"].Eligible)

	assert.Equal(t, 869.0, summary.TotalMonthlyBenefits)
	assert.False(t, summary.RequiresManualReview)
	assert.Equal(t, []string{
		"Apply for Medi-Cal coverage immediately",
		"Submit GA application at county office",
		"Apply for CalFresh benefits",
		"Join housing assistance waitlist",
	}, summary.NextSteps)
}

func TestEligibilityModerateIncome(t *testing.T) {
	summary := evaluate(t, bus.EligibilityRequest{CaseID: "C7", IncomeLevel: "moderate"})

	for _, p := range summary.Programs {
		if p.Name == "Medi-Cal" {
			assert.False(t, p.Eligible)
			assert.Equal(t, "income above threshold", p.Status)
		}
	}
	// GA and CalFresh are not means-tested here.
	assert.Equal(t, 869.0, summary.TotalMonthlyBenefits)
}

func TestEligibilityAlreadyEnrolled(t *testing.T) {
	summary := evaluate(t, bus.EligibilityRequest{
		CaseID:          "C8",
		IncomeLevel:     "very_low",
		CurrentBenefits: []string{"CalFresh"},
	})

	for _, p := range summary.Programs {
		if p.Name == "CalFresh" {
			assert.Equal(t, "already enrolled", p.Status)
			assert.Equal(t, 0.0, p.MonthlyAmount)
		}
	}
	assert.Equal(t, 588.0, summary.TotalMonthlyBenefits)
	assert.NotContains(t, summary.NextSteps, "Apply for CalFresh benefits")
}

func TestEligibilityUnknownIncomeRequiresReview(t *testing.T) {
	summary := evaluate(t, bus.EligibilityRequest{CaseID: "C9"})

	assert.True(t, summary.RequiresManualReview)
	assert.Equal(t, 0.0, summary.TotalMonthlyBenefits)
	var disability *models.ProgramEligibility
	for i := range summary.Programs {
		if summary.Programs[i].Name == "Disability Benefits" {
			disability = &summary.Programs[i]
		}
	}
	require.NotNil(t, disability)
	assert.False(t, disability.Eligible)
	assert.Equal(t, "pending review", disability.Status)
}

func TestEligibilityDeterministic(t *testing.T) {
	req := bus.EligibilityRequest{CaseID: "C10", IncomeLevel: "none"}
	assert.Equal(t, evaluate(t, req), evaluate(t, req))
}

func TestEligibilityAmountsComeFromBenefitsCache(t *testing.T) {
	m := store.NewMemory()
	m.SeedBenefits(
		models.BenefitProgram{ProgramName: "General Assistance", MonthlyAmount: 620},
		models.BenefitProgram{ProgramName: "CalFresh", MonthlyAmount: 295},
	)

	resp, err := NewEligibilityAgent(m).Handle(context.Background(),
		bus.EligibilityRequest{CaseID: "C11", IncomeLevel: "low"})
	require.NoError(t, err)
	summary := resp.(models.BenefitsSummary)

	amounts := make(map[string]float64)
	for _, p := range summary.Programs {
		amounts[p.Name] = p.MonthlyAmount
	}
	assert.Equal(t, 620.0, amounts["General Assistance"])
	assert.Equal(t, 295.0, amounts["CalFresh"])
	assert.Equal(t, 915.0, summary.TotalMonthlyBenefits)
}

func TestEligibilityFallsBackWhenCacheEmpty(t *testing.T) {
	resp, err := NewEligibilityAgent(store.NewMemory()).Handle(context.Background(),
		bus.EligibilityRequest{CaseID: "C12", IncomeLevel: "low"})
	require.NoError(t, err)
	summary := resp.(models.BenefitsSummary)
	assert.Equal(t, 869.0, summary.TotalMonthlyBenefits)
}
