package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/carebridge/pkg/bus"
	"github.com/carebridge/carebridge/pkg/models"
)

func TestPharmacyPicksMostMatches(t *testing.T) {
	agent, err := NewPharmacyAgent()
	require.NoError(t, err)
	agent.Now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }

	resp, err := agent.Handle(context.Background(), bus.PharmacyRequest{
		CaseID: "C1",
		Medications: []models.Medication{
			{Name: "Insulin Glargine 100u", Dosage: "10 units", Frequency: "daily"},
			{Name: "Albuterol inhaler", Frequency: "PRN"},
			{Name: "Levothyroxine 50mcg", Frequency: "daily"},
		},
	})
	require.NoError(t, err)

	plan := resp.(bus.PharmacyResponse)
	// Tenderloin stocks all three; the others stock at most two.
	assert.Equal(t, "Tenderloin Neighborhood Pharmacy", plan.PharmacyName)
	assert.InDelta(t, 22.0+16.0+6.0, plan.TotalCost, 0.001)
	assert.Equal(t, time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC), plan.ReadyTime)
	assert.NotEmpty(t, plan.InsuranceCoverage)
}

func TestPharmacyCaseInsensitiveSubstring(t *testing.T) {
	agent, err := NewPharmacyAgent()
	require.NoError(t, err)

	resp, err := agent.Handle(context.Background(), bus.PharmacyRequest{
		CaseID:      "C2",
		Medications: []models.Medication{{Name: "METFORMIN 500MG ER"}},
	})
	require.NoError(t, err)

	plan := resp.(bus.PharmacyResponse)
	// Both metformin stockists match one medication; the tie breaks to the
	// lexicographically smaller name.
	assert.Equal(t, "Mission Wellness Pharmacy", plan.PharmacyName)
	assert.InDelta(t, 4.0, plan.TotalCost, 0.001)
}

func TestPharmacyNoMatchesFails(t *testing.T) {
	agent, err := NewPharmacyAgent()
	require.NoError(t, err)

	_, err = agent.Handle(context.Background(), bus.PharmacyRequest{
		CaseID:      "C3",
		Medications: []models.Medication{{Name: "Obscuritol"}},
	})
	assert.Error(t, err)
}

func TestPharmacyEmptyMedicationListRejected(t *testing.T) {
	agent, err := NewPharmacyAgent()
	require.NoError(t, err)

	_, err = agent.Handle(context.Background(), bus.PharmacyRequest{CaseID: "C4"})
	assert.Error(t, err)
}
