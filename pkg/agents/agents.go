// Package agents holds the specialist handlers the coordinator dispatches
// to over the bus. Each agent accepts exactly one message type and is
// stateless between calls; collaborators are injected at construction.
package agents

import (
	"context"

	"github.com/carebridge/carebridge/pkg/models"
)

// Agent names as registered on the bus.
const (
	Coordinator  = "coordinator"
	Shelter      = "shelter"
	Transport    = "transport"
	Resource     = "resource"
	Pharmacy     = "pharmacy"
	Eligibility  = "eligibility"
	SocialWorker = "social_worker"
	Analytics    = "analytics"
)

// ListingSource is the freshness-tracked listing reader the agents query.
// Satisfied by *cache.Cache.
type ListingSource interface {
	Shelters(ctx context.Context, f *models.ShelterFilter) ([]models.ShelterListing, error)
	Transport(ctx context.Context, f *models.TransportFilter) ([]models.TransportListing, error)
	Benefits(ctx context.Context) ([]models.BenefitProgram, error)
	Resources(ctx context.Context, f *models.ResourceFilter) ([]models.CommunityResource, error)
}
