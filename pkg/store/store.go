// Package store provides row-oriented persistence for cases, timeline
// events, and scraped listings. The production implementation runs on
// PostgreSQL; an in-memory implementation with identical semantics backs
// unit tests.
package store

import (
	"context"
	"time"

	"github.com/carebridge/carebridge/pkg/models"
)

// ListingBatch carries the rows of one category refresh. Only the slice
// matching the category is consulted.
type ListingBatch struct {
	Shelters  []models.ShelterListing
	Transport []models.TransportListing
	Benefits  []models.BenefitProgram
	Resources []models.CommunityResource
}

// Count returns the number of rows in the batch for the given category.
func (b ListingBatch) Count(c models.Category) int {
	switch c {
	case models.CategoryShelters:
		return len(b.Shelters)
	case models.CategoryTransport:
		return len(b.Transport)
	case models.CategoryBenefits:
		return len(b.Benefits)
	case models.CategoryResources:
		return len(b.Resources)
	}
	return 0
}

// Store is the persistence contract used by the cache, the agents, and the
// workflow coordinator.
type Store interface {
	// Cases. The coordinator is the single writer for a case row.
	UpsertCase(ctx context.Context, c *models.Case) error
	GetCase(ctx context.Context, caseID string) (*models.Case, error)
	ListCases(ctx context.Context) ([]models.CaseSummary, error)

	// Timeline. AppendEvent assigns the next dense per-case sequence number
	// and bumps the case's updated_at in the same transaction, so readers
	// never observe an event referencing a case that has not advanced.
	AppendEvent(ctx context.Context, req models.AppendEventRequest) (*models.TimelineEvent, error)
	ListEvents(ctx context.Context, caseID string) ([]models.TimelineEvent, error)

	// Listings. Reads honor optional filters; a nil filter returns all rows.
	Shelters(ctx context.Context, f *models.ShelterFilter) ([]models.ShelterListing, error)
	Transport(ctx context.Context, f *models.TransportFilter) ([]models.TransportListing, error)
	Benefits(ctx context.Context) ([]models.BenefitProgram, error)
	Resources(ctx context.Context, f *models.ResourceFilter) ([]models.CommunityResource, error)

	// UpdateShelterAvailability sets available_beds for one shelter,
	// enforcing 0 <= beds <= capacity.
	UpdateShelterAvailability(ctx context.Context, name string, beds int) (*models.ShelterListing, error)

	// ReplaceListings atomically replaces every row of one category with the
	// batch, writes the category's cache metadata, and appends the scrape
	// logs. Readers never observe a half-written batch.
	ReplaceListings(ctx context.Context, c models.Category, batch ListingBatch, ttl time.Duration, logs []models.ScrapeLog) error

	// GetCacheMetadata returns the freshness row for a category, or
	// fault.ErrNotFound when the category has never been scraped.
	GetCacheMetadata(ctx context.Context, c models.Category) (*models.CacheMetadata, error)

	// ScrapeLogs returns the most recent scrape log rows for a category.
	ScrapeLogs(ctx context.Context, c models.Category, limit int) ([]models.ScrapeLog, error)
}
