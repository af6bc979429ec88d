package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/carebridge/pkg/config"
	"github.com/carebridge/carebridge/pkg/models"
	"github.com/carebridge/carebridge/pkg/routing"
	"github.com/carebridge/carebridge/pkg/store"
	"github.com/carebridge/carebridge/pkg/voice"
)

type scriptedCaller struct {
	mu          sync.Mutex
	transcripts map[string]string
	calls       []string
}

func (s *scriptedCaller) CallShelter(_ context.Context, _, shelterName string) (*voice.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, shelterName)
	s.mu.Unlock()
	return &voice.Result{
		OK:         true,
		Transcript: s.transcripts[shelterName],
		EndState:   "ended",
		DemoMode:   true,
	}, nil
}

func (s *scriptedCaller) dialed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

type staticPlanner struct {
	route *routing.Route
}

func (p *staticPlanner) Plan(_ context.Context, _, _ string) *routing.Route {
	return p.route
}

func testEngine(t *testing.T, st *store.Memory, caller *scriptedCaller) *Engine {
	t.Helper()
	cfg := &config.Config{
		Workflow: config.WorkflowConfig{
			ShelterRetry: 3,
			CallTimeout:  2 * time.Second,
		},
	}
	eng, err := Build(cfg, Deps{
		Store:    st,
		Listings: st,
		Caller:   caller,
		Planner:  &staticPlanner{route: &routing.Route{DurationMinutes: 18}},
	})
	require.NoError(t, err)
	return eng
}

func seededStore() *store.Memory {
	m := store.NewMemory()
	m.SeedShelters(
		models.ShelterListing{Name: "Harbor Light", Address: "100 Main St", Phone: "(415) 555-0000",
			Capacity: 40, AvailableBeds: 12, Accessibility: true,
			Services: []string{"meals", "showers"}},
		models.ShelterListing{Name: "Sanctuary", Address: "201 8th St", Phone: "(415) 555-0001",
			Capacity: 30, AvailableBeds: 5, Accessibility: false},
	)
	m.SeedTransport(
		models.TransportListing{Provider: "SF Paratransit", ServiceName: "SF Access Van",
			Phone: "(415) 285-6945", VehicleType: "wheelchair accessible van"},
		models.TransportListing{Provider: "MedTrans SF", ServiceName: "Medical Shuttle",
			VehicleType: "sedan"},
	)
	m.SeedResources(
		models.CommunityResource{Name: "Glide Meals", Address: "330 Ellis St",
			Services: []string{"meals", "food"}, DietaryAccommodations: true},
		models.CommunityResource{Name: "Lava Mae", Services: []string{"showers", "hygiene kits"}},
		models.CommunityResource{Name: "St. Anthony's", Services: []string{"clothing", "blankets"}},
	)
	return m
}

func sampleIntake() *models.Intake {
	return &models.Intake{
		PatientName: "John Doe",
		PatientDOB:  "1975-03-14",
		Discharge: models.Discharge{
			FacilityName:    "SF General Hospital",
			FacilityAddress: "1001 Potrero Ave, San Francisco, CA",
			DischargeDate:   "2026-03-02",
		},
		Clinical: models.Clinical{
			Diagnosis:           "type 2 diabetes",
			Medications:         []models.Medication{{Name: "Insulin Glargine", Dosage: "10 units", Frequency: "daily"}},
			AccessibilityNeeds:  "wheelchair",
			DietaryRestrictions: "diabetic",
		},
		IncomeLevel: "low",
	}
}

func timelineSteps(events []models.TimelineEvent) []string {
	steps := make([]string, len(events))
	for i, e := range events {
		steps[i] = e.Step
	}
	return steps
}

func TestCoordinateHappyPath(t *testing.T) {
	st := seededStore()
	caller := &scriptedCaller{transcripts: map[string]string{
		"Harbor Light": "We have 12 beds available tonight, wheelchair accessible, meals and showers included.",
	}}
	eng := testEngine(t, st, caller)

	outcome := eng.Coordinate(context.Background(), "CASE-001", sampleIntake())

	assert.Equal(t, models.OutcomeCoordinated, outcome.Status)
	assert.Empty(t, outcome.Error)

	require.NotNil(t, outcome.Shelter)
	assert.Equal(t, "Harbor Light", outcome.Shelter.Name)
	assert.True(t, outcome.Shelter.Confirmed)
	assert.Equal(t, 12, outcome.Shelter.ConfirmedBeds)
	assert.True(t, outcome.Shelter.Accessibility)

	require.NotNil(t, outcome.Transport)
	assert.Equal(t, "SF Paratransit", outcome.Transport.Provider)
	assert.NotEmpty(t, outcome.Transport.Driver)
	assert.Equal(t, 18, outcome.Transport.ETAMinutes)

	require.NotNil(t, outcome.Medications)
	assert.NotEmpty(t, outcome.Medications.PharmacyName)

	require.NotNil(t, outcome.Benefits)
	assert.InDelta(t, 869.0, outcome.Benefits.TotalMonthlyBenefits, 0.001)

	require.NotNil(t, outcome.CaseManager)
	assert.Len(t, outcome.Resources, 3)
	assert.Empty(t, outcome.UnmetItems)

	steps := timelineSteps(outcome.Timeline)
	for _, want := range []string{
		"initiated", "sw_plan_completed", "pharmacy_ready",
		"shelter_matching_started", "shelter_candidate_selected",
		"vapi_transcription", "shelter_confirmed",
		"resources_summary", "eligibility_checked",
		"transport_scheduled", "completed",
	} {
		assert.Contains(t, steps, want)
	}
	for i, e := range outcome.Timeline {
		assert.Equal(t, i, e.Seq)
	}

	kase, err := st.GetCase(context.Background(), "CASE-001")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowCoordinated, kase.WorkflowStatus)
	assert.Equal(t, "completed", kase.CurrentStep)
	assert.Equal(t, "Harbor Light", kase.AssignedShelterID)
	assert.Equal(t, "SF Paratransit", kase.AssignedTransportProvider)
	require.NotNil(t, kase.CompletedAt)
	require.NotNil(t, kase.AssignedBenefits)
}

func TestCoordinateTranscriptEventCarriesFullText(t *testing.T) {
	st := seededStore()
	transcript := "ASSISTANT: How many beds tonight?\nUSER: We have 12 beds available."
	caller := &scriptedCaller{transcripts: map[string]string{"Harbor Light": transcript}}
	eng := testEngine(t, st, caller)

	outcome := eng.Coordinate(context.Background(), "CASE-002", sampleIntake())

	var found bool
	for _, e := range outcome.Timeline {
		if e.Step == "vapi_transcription" {
			found = true
			assert.Equal(t, transcript, e.Transcription)
			assert.Contains(t, e.Description, "Call transcript: ")
		}
	}
	assert.True(t, found)
}

func TestCoordinateUnconfirmedShelterDowngrade(t *testing.T) {
	st := seededStore()
	caller := &scriptedCaller{transcripts: map[string]string{
		"Harbor Light": "no beds tonight.",
		"Sanctuary":    "no beds tonight.",
	}}
	eng := testEngine(t, st, caller)

	outcome := eng.Coordinate(context.Background(), "CASE-003", sampleIntake())

	assert.Equal(t, models.OutcomeUnconfirmedShelter, outcome.Status)
	require.NotNil(t, outcome.Shelter)
	// When nobody confirms, the workflow proceeds with the first candidate,
	// which is the one with the most available beds.
	assert.Equal(t, "Harbor Light", outcome.Shelter.Name)
	assert.False(t, outcome.Shelter.Confirmed)
	// Both candidates were dialed once; no candidates remain for a third try.
	assert.Equal(t, []string{"Harbor Light", "Sanctuary"}, caller.dialed())

	assert.Contains(t, timelineSteps(outcome.Timeline), "shelter_unconfirmed")

	kase, err := st.GetCase(context.Background(), "CASE-003")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowCoordinated, kase.WorkflowStatus)
}

func TestCoordinateNoShelterFails(t *testing.T) {
	st := seededStore()
	st.SeedShelters() // wipe
	eng := testEngine(t, st, &scriptedCaller{})

	outcome := eng.Coordinate(context.Background(), "CASE-004", sampleIntake())

	assert.Equal(t, models.OutcomeFailed, outcome.Status)
	assert.Equal(t, "no shelter with available beds", outcome.Error)
	assert.Nil(t, outcome.Shelter)
	assert.Nil(t, outcome.Transport)
	// Eligibility does not depend on placement and still runs.
	require.NotNil(t, outcome.Benefits)

	steps := timelineSteps(outcome.Timeline)
	assert.Contains(t, steps, "shelter_failed")
	assert.Contains(t, steps, "eligibility_checked")

	kase, err := st.GetCase(context.Background(), "CASE-004")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowFailed, kase.WorkflowStatus)
}

func TestCoordinateTransportDowngrade(t *testing.T) {
	st := seededStore()
	st.SeedTransport(models.TransportListing{Provider: "MedTrans SF",
		ServiceName: "Medical Shuttle", VehicleType: "sedan"})
	caller := &scriptedCaller{transcripts: map[string]string{
		"Harbor Light": "We have 12 beds available, wheelchair accessible.",
	}}
	eng := testEngine(t, st, caller)

	outcome := eng.Coordinate(context.Background(), "CASE-005", sampleIntake())

	assert.Equal(t, models.OutcomeNoTransport, outcome.Status)
	assert.Nil(t, outcome.Transport)
	require.NotNil(t, outcome.Shelter)
	assert.True(t, outcome.Shelter.Confirmed)
	assert.Contains(t, timelineSteps(outcome.Timeline), "transport_failed")

	kase, err := st.GetCase(context.Background(), "CASE-005")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowCoordinated, kase.WorkflowStatus)
	assert.Empty(t, kase.AssignedTransportProvider)
}

func TestCoordinateCancelledRunWritesNoEvents(t *testing.T) {
	st := seededStore()
	caller := &scriptedCaller{}
	eng := testEngine(t, st, caller)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := eng.Coordinate(ctx, "CASE-006", sampleIntake())

	assert.Equal(t, models.OutcomeFailed, outcome.Status)
	assert.Equal(t, "workflow cancelled", outcome.Error)
	assert.Empty(t, outcome.Timeline)
	assert.Empty(t, caller.dialed())

	events, err := st.ListEvents(context.Background(), "CASE-006")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCancelUnknownCase(t *testing.T) {
	eng := testEngine(t, seededStore(), &scriptedCaller{})
	assert.False(t, eng.Cancel("nope"))
}
