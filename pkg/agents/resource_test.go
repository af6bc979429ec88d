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

func seededResourceStore() *store.Memory {
	m := store.NewMemory()
	m.SeedResources(
		models.CommunityResource{Name: "Glide Meals", Address: "330 Ellis St",
			Services: []string{"meals", "food"}, Hours: "daily 8am", DietaryAccommodations: true},
		models.CommunityResource{Name: "Curbside Kitchen", Address: "1 Mission St",
			Services: []string{"food"}, DietaryAccommodations: false},
		models.CommunityResource{Name: "Lava Mae", Address: "Various",
			Services: []string{"showers", "hygiene kits"}},
		models.CommunityResource{Name: "St. Anthony's", Address: "121 Golden Gate Ave",
			Services: []string{"clothing", "blankets"}, Hours: "Mon-Fri"},
	)
	return m
}

func TestResourceAgentOneProviderPerItem(t *testing.T) {
	agent := NewResourceAgent(seededResourceStore())

	resp, err := agent.Handle(context.Background(), bus.ResourceRequest{
		CaseID:          "C1",
		Items:           []string{"food", "hygiene", "clothing"},
		DeliveryAddress: "100 Main St",
	})
	require.NoError(t, err)

	plan := resp.(bus.ResourceResponse)
	require.Len(t, plan.Deliveries, 3)
	assert.Empty(t, plan.Unmet)

	byItem := map[string]models.ResourceDelivery{}
	for _, d := range plan.Deliveries {
		byItem[d.Item] = d
	}
	// Providers come back name-ordered; the first food match wins.
	assert.Equal(t, "Curbside Kitchen", byItem["food"].ProviderName)
	assert.Equal(t, "Lava Mae", byItem["hygiene"].ProviderName)
	assert.Equal(t, "St. Anthony's", byItem["clothing"].ProviderName)
}

func TestResourceAgentDietaryRestriction(t *testing.T) {
	m := store.NewMemory()
	m.SeedResources(
		models.CommunityResource{Name: "Curbside Kitchen", Services: []string{"food"}, DietaryAccommodations: false},
		models.CommunityResource{Name: "Glide Meals", Services: []string{"food"}, DietaryAccommodations: true},
	)
	agent := NewResourceAgent(m)

	resp, err := agent.Handle(context.Background(), bus.ResourceRequest{
		CaseID:  "C2",
		Items:   []string{"food"},
		Dietary: "diabetic",
	})
	require.NoError(t, err)

	plan := resp.(bus.ResourceResponse)
	require.Len(t, plan.Deliveries, 1)
	assert.Equal(t, "Glide Meals", plan.Deliveries[0].ProviderName)
}

func TestResourceAgentUnmetItems(t *testing.T) {
	agent := NewResourceAgent(seededResourceStore())

	resp, err := agent.Handle(context.Background(), bus.ResourceRequest{
		CaseID: "C3",
		Items:  []string{"food", "legal aid"},
	})
	require.NoError(t, err)

	plan := resp.(bus.ResourceResponse)
	assert.Len(t, plan.Deliveries, 1)
	assert.Equal(t, []string{"legal aid"}, plan.Unmet)
}
