package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/carebridge/pkg/fault"
	"github.com/carebridge/carebridge/pkg/models"
)

func TestUpsertCasePreservesCreatedAt(t *testing.T) {
	m := NewMemory()
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	m.Now = func() time.Time { return t0 }

	require.NoError(t, m.UpsertCase(context.Background(), &models.Case{
		CaseID: "C1", PatientName: "John Doe",
		WorkflowStatus: models.WorkflowInitiated,
	}))

	m.Now = func() time.Time { return t0.Add(time.Hour) }
	require.NoError(t, m.UpsertCase(context.Background(), &models.Case{
		CaseID: "C1", PatientName: "John Doe",
		WorkflowStatus: models.WorkflowCoordinated,
	}))

	c, err := m.GetCase(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, t0, c.CreatedAt)
	assert.Equal(t, t0.Add(time.Hour), c.UpdatedAt)
	assert.Equal(t, models.WorkflowCoordinated, c.WorkflowStatus)
}

func TestUpsertCaseRequiresID(t *testing.T) {
	m := NewMemory()
	err := m.UpsertCase(context.Background(), &models.Case{PatientName: "No ID"})
	assert.True(t, fault.IsValidationError(err))
}

func TestGetCaseNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.GetCase(context.Background(), "missing")
	assert.True(t, errors.Is(err, fault.ErrNotFound))
}

func TestListCasesNewestFirst(t *testing.T) {
	m := NewMemory()
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"C1", "C2", "C3"} {
		i, id := i, id
		m.Now = func() time.Time { return t0.Add(time.Duration(i) * time.Minute) }
		require.NoError(t, m.UpsertCase(context.Background(), &models.Case{CaseID: id, PatientName: id}))
	}

	summaries, err := m.ListCases(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "C3", summaries[0].CaseID)
	assert.Equal(t, "C1", summaries[2].CaseID)
}

func TestAppendEventAssignsDenseSeq(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.UpsertCase(context.Background(), &models.Case{CaseID: "C1", PatientName: "John"}))

	for _, step := range []string{"initiated", "shelter_matching_started", "completed"} {
		_, err := m.AppendEvent(context.Background(), models.AppendEventRequest{
			CaseID: "C1", Step: step, Agent: "coordinator", Status: models.EventInfo,
		})
		require.NoError(t, err)
	}

	events, err := m.ListEvents(context.Background(), "C1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, i, e.Seq)
	}
}

func TestAppendEventUnknownCase(t *testing.T) {
	m := NewMemory()
	_, err := m.AppendEvent(context.Background(), models.AppendEventRequest{
		CaseID: "ghost", Step: "initiated",
	})
	assert.True(t, errors.Is(err, fault.ErrNotFound))
}

func TestSheltersFilterAndOrder(t *testing.T) {
	m := NewMemory()
	m.SeedShelters(
		models.ShelterListing{Name: "B House", Capacity: 20, AvailableBeds: 5, Accessibility: false},
		models.ShelterListing{Name: "A House", Capacity: 20, AvailableBeds: 5, Accessibility: true},
		models.ShelterListing{Name: "C House", Capacity: 40, AvailableBeds: 12, Accessibility: true},
	)

	all, err := m.Shelters(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Most beds first, then name.
	assert.Equal(t, "C House", all[0].Name)
	assert.Equal(t, "A House", all[1].Name)

	accessible, err := m.Shelters(context.Background(), &models.ShelterFilter{AccessibleOnly: true, MinAvailableBeds: 1})
	require.NoError(t, err)
	require.Len(t, accessible, 2)
}

func TestTransportVehicleTypeFilter(t *testing.T) {
	m := NewMemory()
	m.SeedTransport(
		models.TransportListing{Provider: "SF Paratransit", ServiceName: "SF Access Van", VehicleType: "Wheelchair Accessible Van"},
		models.TransportListing{Provider: "MedTrans SF", ServiceName: "Medical Shuttle", VehicleType: "sedan"},
	)

	vans, err := m.Transport(context.Background(), &models.TransportFilter{VehicleTypeContains: "wheelchair"})
	require.NoError(t, err)
	require.Len(t, vans, 1)
	assert.Equal(t, "SF Paratransit", vans[0].Provider)
}

func TestResourcesServiceAndDietaryFilter(t *testing.T) {
	m := NewMemory()
	m.SeedResources(
		models.CommunityResource{Name: "Glide Meals", Services: []string{"meals", "food"}, DietaryAccommodations: true},
		models.CommunityResource{Name: "Curbside Kitchen", Services: []string{"food"}},
		models.CommunityResource{Name: "Lava Mae", Services: []string{"showers"}},
	)

	food, err := m.Resources(context.Background(), &models.ResourceFilter{ServiceContains: "food"})
	require.NoError(t, err)
	assert.Len(t, food, 2)

	dietary, err := m.Resources(context.Background(), &models.ResourceFilter{ServiceContains: "food", DietaryAccommodations: true})
	require.NoError(t, err)
	require.Len(t, dietary, 1)
	assert.Equal(t, "Glide Meals", dietary[0].Name)
}

func TestUpdateShelterAvailabilityBounds(t *testing.T) {
	m := NewMemory()
	m.SeedShelters(models.ShelterListing{Name: "Harbor Light", Capacity: 40, AvailableBeds: 12})

	updated, err := m.UpdateShelterAvailability(context.Background(), "harbor light", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.AvailableBeds)

	_, err = m.UpdateShelterAvailability(context.Background(), "Harbor Light", -1)
	assert.True(t, fault.IsValidationError(err))

	_, err = m.UpdateShelterAvailability(context.Background(), "Harbor Light", 41)
	assert.True(t, fault.IsValidationError(err))

	_, err = m.UpdateShelterAvailability(context.Background(), "Nowhere", 3)
	assert.True(t, errors.Is(err, fault.ErrNotFound))
}

func TestReplaceListingsPublishesAtomically(t *testing.T) {
	m := NewMemory()
	m.SeedShelters(models.ShelterListing{Name: "Old Shelter", Capacity: 10, AvailableBeds: 1})

	batch := ListingBatch{Shelters: []models.ShelterListing{
		{Name: "New Shelter", Capacity: 40, AvailableBeds: 12},
	}}
	logs := []models.ScrapeLog{{
		Category: models.CategoryShelters, URL: "https://example.org",
		Status: models.ScrapeSuccess, ItemsScraped: 1,
	}}
	require.NoError(t, m.ReplaceListings(context.Background(), models.CategoryShelters, batch, time.Hour, logs))

	shelters, err := m.Shelters(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, shelters, 1)
	assert.Equal(t, "New Shelter", shelters[0].Name)

	meta, err := m.GetCacheMetadata(context.Background(), models.CategoryShelters)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.ItemsCount)
	assert.Equal(t, 3600, meta.TTLSeconds)

	saved, err := m.ScrapeLogs(context.Background(), models.CategoryShelters, 10)
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}

func TestReplaceListingsRejectsUnknownCategory(t *testing.T) {
	m := NewMemory()
	err := m.ReplaceListings(context.Background(), models.Category("bogus"), ListingBatch{}, time.Hour, nil)
	assert.Error(t, err)
}
