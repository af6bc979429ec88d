package store

import (
	"context"
	stdsql "database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/carebridge/carebridge/pkg/models"
)

// newTestPostgres provisions a database for integration tests. In CI
// (CI_DATABASE_URL set) it connects to the external service container;
// locally it spins up a testcontainer.
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	connStr := os.Getenv("CI_DATABASE_URL")
	if connStr == "" {
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("carebridge_test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(pgContainer); err != nil {
				t.Logf("failed to terminate container: %v", err)
			}
		})

		connStr, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	db, err := stdsql.Open("pgx", connStr)
	require.NoError(t, err)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	st, err := NewPostgresFromDB(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPostgresCaseRoundTrip(t *testing.T) {
	st := newTestPostgres(t)
	ctx := context.Background()

	completed := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	kase := &models.Case{
		CaseID:      "PG-CASE-001",
		PatientName: "John Doe",
		PatientDOB:  "1975-03-14",
		Contact:     models.Contact{Phone: "(415) 555-0100"},
		Discharge: models.Discharge{
			FacilityName:    "SF General Hospital",
			FacilityAddress: "1001 Potrero Ave",
		},
		Clinical: models.Clinical{
			Diagnosis:   "type 2 diabetes",
			Medications: []models.Medication{{Name: "Insulin Glargine", Dosage: "10 units"}},
		},
		WorkflowStatus:            models.WorkflowCoordinated,
		CurrentStep:               "completed",
		AssignedShelterID:         "Harbor Light",
		AssignedTransportProvider: "SF Paratransit",
		AssignedBenefits: &models.BenefitsSummary{
			TotalMonthlyBenefits: 869,
			Programs:             []models.ProgramEligibility{{Name: "General Assistance", Eligible: true, MonthlyAmount: 588}},
		},
		CompletedAt: &completed,
	}
	require.NoError(t, st.UpsertCase(ctx, kase))

	got, err := st.GetCase(ctx, "PG-CASE-001")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", got.PatientName)
	assert.Equal(t, "Harbor Light", got.AssignedShelterID)
	assert.Equal(t, models.WorkflowCoordinated, got.WorkflowStatus)
	require.NotNil(t, got.AssignedBenefits)
	assert.InDelta(t, 869.0, got.AssignedBenefits.TotalMonthlyBenefits, 0.001)
	require.Len(t, got.Clinical.Medications, 1)
	require.NotNil(t, got.CompletedAt)

	summaries, err := st.ListCases(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, summaries)
}

func TestPostgresTimelineDenseSeq(t *testing.T) {
	st := newTestPostgres(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertCase(ctx, &models.Case{
		CaseID: "PG-CASE-002", PatientName: "Jane Roe",
		WorkflowStatus: models.WorkflowInProgress,
	}))

	for _, step := range []string{"initiated", "shelter_matching_started", "completed"} {
		_, err := st.AppendEvent(ctx, models.AppendEventRequest{
			CaseID:      "PG-CASE-002",
			Step:        step,
			Agent:       "coordinator",
			Status:      models.EventInfo,
			Description: step,
			Details:     map[string]any{"step": step},
		})
		require.NoError(t, err)
	}

	events, err := st.ListEvents(ctx, "PG-CASE-002")
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, i, e.Seq)
	}
}

func TestPostgresListingsReplaceAndRead(t *testing.T) {
	st := newTestPostgres(t)
	ctx := context.Background()

	batch := ListingBatch{Shelters: []models.ShelterListing{
		{Name: "Harbor Light", Address: "100 Main St", Capacity: 40, AvailableBeds: 12,
			Accessibility: true, Services: []string{"meals", "showers"},
			Source: "https://example.org", LastUpdated: time.Now().UTC()},
		{Name: "Sanctuary", Address: "201 8th St", Capacity: 30, AvailableBeds: 5,
			Source: "https://example.org", LastUpdated: time.Now().UTC()},
	}}
	logs := []models.ScrapeLog{{
		Category: models.CategoryShelters, URL: "https://example.org",
		Status: models.ScrapeSuccess, ItemsScraped: 2, ScrapedAt: time.Now().UTC(),
	}}
	require.NoError(t, st.ReplaceListings(ctx, models.CategoryShelters, batch, time.Hour, logs))

	shelters, err := st.Shelters(ctx, &models.ShelterFilter{MinAvailableBeds: 1})
	require.NoError(t, err)
	require.Len(t, shelters, 2)
	assert.Equal(t, "Harbor Light", shelters[0].Name)

	meta, err := st.GetCacheMetadata(ctx, models.CategoryShelters)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.ItemsCount)

	updated, err := st.UpdateShelterAvailability(ctx, "Harbor Light", 9)
	require.NoError(t, err)
	assert.Equal(t, 9, updated.AvailableBeds)
}
