package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carebridge/carebridge/pkg/fault"
	"github.com/carebridge/carebridge/pkg/models"
	"github.com/google/uuid"
)

// categoryTable maps a category to its listing table name.
func categoryTable(c models.Category) (string, error) {
	switch c {
	case models.CategoryShelters:
		return "shelters", nil
	case models.CategoryTransport:
		return "transport", nil
	case models.CategoryBenefits:
		return "benefits", nil
	case models.CategoryResources:
		return "community_resources", nil
	}
	return "", fmt.Errorf("unknown listing category %q", c)
}

// ReplaceListings atomically replaces one category's rows and records the
// refresh: delete-then-insert, cache_metadata upsert with the new row count,
// and the scrape log rows, all in a single transaction.
func (p *Postgres) ReplaceListings(ctx context.Context, c models.Category, batch ListingBatch, ttl time.Duration, logs []models.ScrapeLog) error {
	table, err := categoryTable(c)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", c, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	now := time.Now().UTC()
	if err := insertBatch(ctx, tx, c, batch, now); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cache_metadata (category, last_scraped_at, items_count, ttl_seconds)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (category) DO UPDATE SET
			last_scraped_at = EXCLUDED.last_scraped_at,
			items_count = EXCLUDED.items_count,
			ttl_seconds = EXCLUDED.ttl_seconds`,
		string(c), now, batch.Count(c), int(ttl.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("write cache metadata for %s: %w", c, err)
	}

	for _, l := range logs {
		id := l.ID
		if id == "" {
			id = uuid.New().String()
		}
		scrapedAt := l.ScrapedAt
		if scrapedAt.IsZero() {
			scrapedAt = now
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scrape_logs
				(id, category, url, status, items_scraped, error_message, duration_seconds, scraped_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			id, string(l.Category), l.URL, string(l.Status),
			l.ItemsScraped, l.ErrorMessage, l.DurationSeconds, scrapedAt,
		)
		if err != nil {
			return fmt.Errorf("append scrape log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace %s: %w", c, err)
	}
	return nil
}

func insertBatch(ctx context.Context, tx *sql.Tx, c models.Category, batch ListingBatch, now time.Time) error {
	switch c {
	case models.CategoryShelters:
		for _, s := range batch.Shelters {
			services, err := marshalJSON(s.Services)
			if err != nil {
				return err
			}
			var lat, lng any
			if s.Latitude != nil {
				lat = *s.Latitude
			}
			if s.Longitude != nil {
				lng = *s.Longitude
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO shelters
					(name, address, phone, capacity, available_beds, accessibility,
					 services, hours, eligibility, website, latitude, longitude,
					 source, last_updated)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
				s.Name, s.Address, s.Phone, s.Capacity, s.AvailableBeds,
				s.Accessibility, services, s.Hours, s.Eligibility, s.Website,
				lat, lng, s.Source, now); err != nil {
				return fmt.Errorf("insert shelter %s: %w", s.Name, err)
			}
		}
	case models.CategoryTransport:
		for _, t := range batch.Transport {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO transport
					(provider, service_name, phone, vehicle_type, coverage, cost,
					 hours, booking, source, last_updated)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				t.Provider, t.ServiceName, t.Phone, t.VehicleType, t.Coverage,
				t.Cost, t.Hours, t.Booking, t.Source, now); err != nil {
				return fmt.Errorf("insert transport %s/%s: %w", t.Provider, t.ServiceName, err)
			}
		}
	case models.CategoryBenefits:
		for _, b := range batch.Benefits {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO benefits
					(program_name, agency, description, eligibility, monthly_amount,
					 apply_url, phone, source, last_updated)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
				b.ProgramName, b.Agency, b.Description, b.Eligibility,
				b.MonthlyAmount, b.ApplyURL, b.Phone, b.Source, now); err != nil {
				return fmt.Errorf("insert benefit %s: %w", b.ProgramName, err)
			}
		}
	case models.CategoryResources:
		for _, r := range batch.Resources {
			services, err := marshalJSON(r.Services)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO community_resources
					(name, address, phone, services, hours, dietary_accommodations,
					 source, last_updated)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				r.Name, r.Address, r.Phone, services, r.Hours,
				r.DietaryAccommodations, r.Source, now); err != nil {
				return fmt.Errorf("insert resource %s: %w", r.Name, err)
			}
		}
	}
	return nil
}

// GetCacheMetadata returns the freshness row for one category.
func (p *Postgres) GetCacheMetadata(ctx context.Context, c models.Category) (*models.CacheMetadata, error) {
	var m models.CacheMetadata
	var cat string
	err := p.db.QueryRowContext(ctx, `
		SELECT category, last_scraped_at, items_count, ttl_seconds
		FROM cache_metadata WHERE category = $1`, string(c)).
		Scan(&cat, &m.LastScrapedAt, &m.ItemsCount, &m.TTLSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cache metadata for %s: %w", c, err)
	}
	m.Category = models.Category(cat)
	return &m, nil
}

// ScrapeLogs returns the most recent scrape logs for one category.
func (p *Postgres) ScrapeLogs(ctx context.Context, c models.Category, limit int) ([]models.ScrapeLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, category, url, status, items_scraped, error_message,
		       duration_seconds, scraped_at
		FROM scrape_logs WHERE category = $1
		ORDER BY scraped_at DESC LIMIT $2`, string(c), limit)
	if err != nil {
		return nil, fmt.Errorf("query scrape logs: %w", err)
	}
	defer rows.Close()

	out := []models.ScrapeLog{}
	for rows.Next() {
		var (
			l      models.ScrapeLog
			cat    string
			status string
		)
		if err := rows.Scan(&l.ID, &cat, &l.URL, &status, &l.ItemsScraped,
			&l.ErrorMessage, &l.DurationSeconds, &l.ScrapedAt); err != nil {
			return nil, fmt.Errorf("scan scrape log: %w", err)
		}
		l.Category = models.Category(cat)
		l.Status = models.ScrapeStatus(status)
		out = append(out, l)
	}
	return out, rows.Err()
}
