package agents

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/carebridge/carebridge/pkg/bus"
	"github.com/carebridge/carebridge/pkg/fault"
	"github.com/carebridge/carebridge/pkg/models"
	"github.com/carebridge/carebridge/pkg/routing"
)

// driverRoster is the dispatch roster rides rotate over. Each provider
// hashes to a fixed driver so repeat bookings reach the same person.
var driverRoster = []string{
	"Marcus Webb",
	"Elena Vasquez",
	"Tran Nguyen",
	"Dwayne Carter",
}

// RoutePlanner plans a driving route between two addresses. Satisfied by
// *routing.Client.
type RoutePlanner interface {
	Plan(ctx context.Context, pickupAddr, dropoffAddr string) *routing.Route
}

// TransportAgent books discharge transport: matches a provider from the
// cache (wheelchair-capable when required) and plans the route.
type TransportAgent struct {
	listings ListingSource
	planner  RoutePlanner
	logger   *slog.Logger

	// Now is overridable in tests.
	Now func() time.Time
}

// NewTransportAgent creates the transport agent.
func NewTransportAgent(listings ListingSource, planner RoutePlanner) *TransportAgent {
	return &TransportAgent{
		listings: listings,
		planner:  planner,
		logger:   slog.With("agent", Transport),
		Now:      time.Now,
	}
}

// Handle answers a bus.TransportRequest.
func (a *TransportAgent) Handle(ctx context.Context, payload any) (any, error) {
	req, ok := payload.(bus.TransportRequest)
	if !ok {
		return nil, fault.NewValidationError("payload", "expected TransportRequest")
	}

	filter := &models.TransportFilter{}
	if req.AccessibilityRequired {
		filter.VehicleTypeContains = "wheelchair"
	}
	providers, err := a.listings.Transport(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query transport providers: %w", err)
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no transport provider matches accessibility=%t: %w",
			req.AccessibilityRequired, fault.ErrNotFound)
	}

	provider := providers[0]
	route := a.planner.Plan(ctx, req.Pickup, req.Dropoff)

	h := fnv.New32a()
	h.Write([]byte(provider.Provider))
	driver := driverRoster[int(h.Sum32())%len(driverRoster)]

	a.logger.Info("Transport scheduled",
		"case_id", req.CaseID, "provider", provider.Provider,
		"service", provider.ServiceName, "driver", driver,
		"eta_minutes", route.DurationMinutes,
		"route_fallback", route.Fallback)

	return bus.TransportResponse{
		Provider:      provider.Provider,
		Driver:        driver,
		Phone:         provider.Phone,
		PickupTime:    a.Now().Add(30 * time.Minute).UTC(),
		ETAMinutes:    route.DurationMinutes,
		RoutePolyline: route.Polyline,
	}, nil
}
