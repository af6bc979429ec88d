// Package engine wires the agents onto the bus and drives the discharge
// coordination workflow for each case.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/carebridge/carebridge/pkg/agents"
	"github.com/carebridge/carebridge/pkg/bus"
	"github.com/carebridge/carebridge/pkg/config"
	"github.com/carebridge/carebridge/pkg/store"
)

// Deps are the external collaborators the engine's agents run against.
type Deps struct {
	Store    store.Store
	Listings agents.ListingSource
	Caller   agents.ShelterCaller
	Planner  agents.RoutePlanner
}

// Engine owns the agent registry and runs workflows. One engine per
// process; each Coordinate call runs independently.
type Engine struct {
	cfg      *config.Config
	store    store.Store
	registry *bus.Registry
	logger   *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// Build constructs the engine: instantiates every agent, registers each
// under its name and message type, and attaches the analytics subscriber.
// No global mutable state; all wiring happens here.
func Build(cfg *config.Config, deps Deps) (*Engine, error) {
	reg := bus.NewRegistry()

	pharmacyAgent, err := agents.NewPharmacyAgent()
	if err != nil {
		return nil, fmt.Errorf("build pharmacy agent: %w", err)
	}

	registrations := []struct {
		name    string
		accepts bus.MessageType
		handler bus.Handler
	}{
		{agents.Shelter, bus.MsgShelterMatch, agents.NewShelterAgent(deps.Listings, deps.Caller).Handle},
		{agents.Transport, bus.MsgTransportSchedule, agents.NewTransportAgent(deps.Listings, deps.Planner).Handle},
		{agents.Resource, bus.MsgResourceRequest, agents.NewResourceAgent(deps.Listings).Handle},
		{agents.Pharmacy, bus.MsgPharmacyPrepare, pharmacyAgent.Handle},
		{agents.Eligibility, bus.MsgEligibilityCheck, agents.NewEligibilityAgent(deps.Listings).Handle},
		{agents.SocialWorker, bus.MsgSocialWorker, agents.NewSocialWorkerAgent().Handle},
	}
	for _, r := range registrations {
		if err := reg.Register(r.name, r.accepts, r.handler); err != nil {
			return nil, fmt.Errorf("register agent %s: %w", r.name, err)
		}
	}

	agents.NewAnalyticsAgent().Attach(reg)

	return &Engine{
		cfg:      cfg,
		store:    deps.Store,
		registry: reg,
		logger:   slog.With("component", "engine"),
		cancels:  make(map[string]context.CancelFunc),
	}, nil
}

// Registry exposes the bus for the API's conversation endpoint.
func (e *Engine) Registry() *bus.Registry { return e.registry }

// Store exposes the persistence layer the engine writes to.
func (e *Engine) Store() store.Store { return e.store }

// Cancel aborts the running workflow for a case, if any. Reports whether
// a workflow was found.
func (e *Engine) Cancel(caseID string) bool {
	e.mu.Lock()
	cancel, ok := e.cancels[caseID]
	e.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (e *Engine) track(caseID string, cancel context.CancelFunc) {
	e.mu.Lock()
	e.cancels[caseID] = cancel
	e.mu.Unlock()
}

func (e *Engine) untrack(caseID string) {
	e.mu.Lock()
	delete(e.cancels, caseID)
	e.mu.Unlock()
}
