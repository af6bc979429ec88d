package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carebridge/carebridge/pkg/fault"
	"github.com/carebridge/carebridge/pkg/models"
	"github.com/google/uuid"
)

// Memory is an in-memory Store with the same semantics as Postgres.
// It backs the engine, agent, cache, and API unit tests.
type Memory struct {
	mu sync.RWMutex

	cases     map[string]models.Case
	events    map[string][]models.TimelineEvent
	shelters  []models.ShelterListing
	transport []models.TransportListing
	benefits  []models.BenefitProgram
	resources []models.CommunityResource
	metadata  map[models.Category]models.CacheMetadata
	logs      []models.ScrapeLog

	// Now is overridable so freshness tests can move the clock.
	Now func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		cases:    make(map[string]models.Case),
		events:   make(map[string][]models.TimelineEvent),
		metadata: make(map[models.Category]models.CacheMetadata),
		Now:      time.Now,
	}
}

// UpsertCase inserts or replaces the case row.
func (m *Memory) UpsertCase(_ context.Context, c *models.Case) error {
	if c.CaseID == "" {
		return fault.NewValidationError("case_id", "required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now().UTC()
	if existing, ok := m.cases[c.CaseID]; ok {
		c.CreatedAt = existing.CreatedAt
	} else if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	m.cases[c.CaseID] = *c
	return nil
}

// GetCase loads one case row.
func (m *Memory) GetCase(_ context.Context, caseID string) (*models.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[caseID]
	if !ok {
		return nil, fault.ErrNotFound
	}
	return &c, nil
}

// ListCases returns summaries of every case, newest first.
func (m *Memory) ListCases(_ context.Context) ([]models.CaseSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.CaseSummary, 0, len(m.cases))
	for _, c := range m.cases {
		out = append(out, c.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AppendEvent assigns the next dense seq and bumps the case's updated_at.
func (m *Memory) AppendEvent(_ context.Context, req models.AppendEventRequest) (*models.TimelineEvent, error) {
	if req.CaseID == "" {
		return nil, fault.NewValidationError("case_id", "required")
	}
	if req.Step == "" {
		return nil, fault.NewValidationError("step", "required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.cases[req.CaseID]
	if !ok {
		return nil, fault.ErrNotFound
	}
	now := m.Now().UTC()
	c.UpdatedAt = now
	m.cases[req.CaseID] = c

	e := models.TimelineEvent{
		CaseID:        req.CaseID,
		Seq:           len(m.events[req.CaseID]),
		Step:          req.Step,
		Agent:         req.Agent,
		Status:        req.Status,
		Description:   req.Description,
		Details:       req.Details,
		Timestamp:     now,
		Transcription: req.Transcription,
	}
	m.events[req.CaseID] = append(m.events[req.CaseID], e)
	return &e, nil
}

// ListEvents returns the ordered timeline for one case.
func (m *Memory) ListEvents(_ context.Context, caseID string) ([]models.TimelineEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := m.events[caseID]
	out := make([]models.TimelineEvent, len(events))
	copy(out, events)
	return out, nil
}

// Shelters returns shelter rows matching the filter, most beds first.
func (m *Memory) Shelters(_ context.Context, f *models.ShelterFilter) ([]models.ShelterListing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.ShelterListing{}
	for _, s := range m.shelters {
		if f != nil {
			if s.AvailableBeds < f.MinAvailableBeds {
				continue
			}
			if f.AccessibleOnly && !s.Accessibility {
				continue
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvailableBeds != out[j].AvailableBeds {
			return out[i].AvailableBeds > out[j].AvailableBeds
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Transport returns transport rows matching the filter.
func (m *Memory) Transport(_ context.Context, f *models.TransportFilter) ([]models.TransportListing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.TransportListing{}
	for _, t := range m.transport {
		if f != nil && f.VehicleTypeContains != "" &&
			!strings.Contains(strings.ToLower(t.VehicleType), strings.ToLower(f.VehicleTypeContains)) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].ServiceName < out[j].ServiceName
	})
	return out, nil
}

// Benefits returns every benefit program row.
func (m *Memory) Benefits(_ context.Context) ([]models.BenefitProgram, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.BenefitProgram, len(m.benefits))
	copy(out, m.benefits)
	sort.Slice(out, func(i, j int) bool { return out[i].ProgramName < out[j].ProgramName })
	return out, nil
}

// Resources returns community resource rows matching the filter.
func (m *Memory) Resources(_ context.Context, f *models.ResourceFilter) ([]models.CommunityResource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.CommunityResource{}
	for _, r := range m.resources {
		if f != nil {
			if f.DietaryAccommodations && !r.DietaryAccommodations {
				continue
			}
			if f.ServiceContains != "" && !serviceListContains(r.Services, f.ServiceContains) {
				continue
			}
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func serviceListContains(services []string, want string) bool {
	want = strings.ToLower(want)
	for _, s := range services {
		if strings.Contains(strings.ToLower(s), want) {
			return true
		}
	}
	return false
}

// UpdateShelterAvailability sets available_beds for one shelter within
// [0, capacity].
func (m *Memory) UpdateShelterAvailability(_ context.Context, name string, beds int) (*models.ShelterListing, error) {
	if beds < 0 {
		return nil, fault.NewValidationError("available_beds", "must not be negative")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.shelters {
		if strings.EqualFold(m.shelters[i].Name, name) {
			if beds > m.shelters[i].Capacity {
				return nil, fault.NewValidationError("available_beds",
					fmt.Sprintf("must not exceed capacity %d", m.shelters[i].Capacity))
			}
			m.shelters[i].AvailableBeds = beds
			m.shelters[i].LastUpdated = m.Now().UTC()
			s := m.shelters[i]
			return &s, nil
		}
	}
	return nil, fault.ErrNotFound
}

// ReplaceListings atomically replaces one category's rows under the lock.
func (m *Memory) ReplaceListings(_ context.Context, c models.Category, batch ListingBatch, ttl time.Duration, logs []models.ScrapeLog) error {
	if _, err := categoryTable(c); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now().UTC()
	switch c {
	case models.CategoryShelters:
		m.shelters = stampShelters(batch.Shelters, now)
	case models.CategoryTransport:
		m.transport = append([]models.TransportListing(nil), batch.Transport...)
	case models.CategoryBenefits:
		m.benefits = append([]models.BenefitProgram(nil), batch.Benefits...)
	case models.CategoryResources:
		m.resources = append([]models.CommunityResource(nil), batch.Resources...)
	}

	m.metadata[c] = models.CacheMetadata{
		Category:      c,
		LastScrapedAt: now,
		ItemsCount:    batch.Count(c),
		TTLSeconds:    int(ttl.Seconds()),
	}

	for _, l := range logs {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		if l.ScrapedAt.IsZero() {
			l.ScrapedAt = now
		}
		m.logs = append(m.logs, l)
	}
	return nil
}

func stampShelters(in []models.ShelterListing, now time.Time) []models.ShelterListing {
	out := append([]models.ShelterListing(nil), in...)
	for i := range out {
		out[i].LastUpdated = now
	}
	return out
}

// GetCacheMetadata returns the freshness row for one category.
func (m *Memory) GetCacheMetadata(_ context.Context, c models.Category) (*models.CacheMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.metadata[c]
	if !ok {
		return nil, fault.ErrNotFound
	}
	return &meta, nil
}

// ScrapeLogs returns the most recent scrape logs for one category.
func (m *Memory) ScrapeLogs(_ context.Context, c models.Category, limit int) ([]models.ScrapeLog, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.ScrapeLog{}
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.logs[i].Category == c {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}

// SeedShelters replaces the shelter rows directly, bypassing the scrape
// path. Test helper.
func (m *Memory) SeedShelters(shelters ...models.ShelterListing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shelters = stampShelters(shelters, m.Now().UTC())
}

// SeedTransport replaces the transport rows directly. Test helper.
func (m *Memory) SeedTransport(rows ...models.TransportListing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transport = append([]models.TransportListing(nil), rows...)
}

// SeedBenefits replaces the benefit program rows directly. Test helper.
func (m *Memory) SeedBenefits(rows ...models.BenefitProgram) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.benefits = append([]models.BenefitProgram(nil), rows...)
}

// SeedResources replaces the community resource rows directly. Test helper.
func (m *Memory) SeedResources(rows ...models.CommunityResource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources = append([]models.CommunityResource(nil), rows...)
}
