package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/carebridge/carebridge/pkg/bus"
	"github.com/carebridge/carebridge/pkg/fault"
	"github.com/carebridge/carebridge/pkg/models"
)

// foodItems are the item classes the dietary restriction applies to.
var foodItems = map[string]bool{"food": true, "meals": true, "groceries": true}

// ResourceAgent plans ancillary deliveries (food, clothing, hygiene) from
// community resources: the first provider serving each requested item
// class wins. Items no provider serves come back as unmet rather than
// failing the request.
type ResourceAgent struct {
	listings ListingSource
	logger   *slog.Logger
}

// NewResourceAgent creates the resource agent.
func NewResourceAgent(listings ListingSource) *ResourceAgent {
	return &ResourceAgent{
		listings: listings,
		logger:   slog.With("agent", Resource),
	}
}

// Handle answers a bus.ResourceRequest.
func (a *ResourceAgent) Handle(ctx context.Context, payload any) (any, error) {
	req, ok := payload.(bus.ResourceRequest)
	if !ok {
		return nil, fault.NewValidationError("payload", "expected ResourceRequest")
	}

	providers, err := a.listings.Resources(ctx, &models.ResourceFilter{})
	if err != nil {
		return nil, fmt.Errorf("query community resources: %w", err)
	}

	resp := bus.ResourceResponse{}
	for _, item := range req.Items {
		provider := matchProvider(providers, item, req.Dietary)
		if provider == nil {
			resp.Unmet = append(resp.Unmet, item)
			continue
		}
		resp.Deliveries = append(resp.Deliveries, models.ResourceDelivery{
			Item:         item,
			ProviderName: provider.Name,
			Address:      provider.Address,
			Phone:        provider.Phone,
			PickupWindow: provider.Hours,
		})
	}

	a.logger.Info("Resource plan built",
		"case_id", req.CaseID, "deliveries", len(resp.Deliveries), "unmet", len(resp.Unmet))
	return resp, nil
}

// matchProvider returns the first provider whose service list covers the
// item class. Food items honor the dietary restriction: a provider
// without dietary accommodations cannot serve them.
func matchProvider(providers []models.CommunityResource, item, dietary string) *models.CommunityResource {
	want := strings.ToLower(strings.TrimSpace(item))
	for i := range providers {
		p := &providers[i]
		if dietary != "" && foodItems[want] && !p.DietaryAccommodations {
			continue
		}
		for _, svc := range p.Services {
			if strings.Contains(strings.ToLower(svc), want) || strings.Contains(want, strings.ToLower(svc)) {
				return p
			}
		}
	}
	return nil
}
