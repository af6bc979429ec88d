package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carebridge/carebridge/pkg/fault"
	"github.com/carebridge/carebridge/pkg/models"
)

// Shelters returns shelter rows matching the filter, most beds first.
func (p *Postgres) Shelters(ctx context.Context, f *models.ShelterFilter) ([]models.ShelterListing, error) {
	query := `
		SELECT name, address, phone, capacity, available_beds, accessibility,
		       services, hours, eligibility, website, latitude, longitude,
		       source, last_updated
		FROM shelters`
	var (
		conds []string
		args  []any
	)
	if f != nil {
		if f.MinAvailableBeds > 0 {
			args = append(args, f.MinAvailableBeds)
			conds = append(conds, fmt.Sprintf("available_beds >= $%d", len(args)))
		}
		if f.AccessibleOnly {
			conds = append(conds, "accessibility = TRUE")
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY available_beds DESC, name"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query shelters: %w", err)
	}
	defer rows.Close()

	out := []models.ShelterListing{}
	for rows.Next() {
		var (
			s        models.ShelterListing
			services []byte
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&s.Name, &s.Address, &s.Phone, &s.Capacity,
			&s.AvailableBeds, &s.Accessibility, &services, &s.Hours,
			&s.Eligibility, &s.Website, &lat, &lng, &s.Source, &s.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan shelter: %w", err)
		}
		if len(services) > 0 {
			if err := json.Unmarshal(services, &s.Services); err != nil {
				return nil, fmt.Errorf("decode shelter services: %w", err)
			}
		}
		if lat.Valid {
			v := lat.Float64
			s.Latitude = &v
		}
		if lng.Valid {
			v := lng.Float64
			s.Longitude = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Transport returns transport rows matching the filter.
func (p *Postgres) Transport(ctx context.Context, f *models.TransportFilter) ([]models.TransportListing, error) {
	query := `
		SELECT provider, service_name, phone, vehicle_type, coverage, cost,
		       hours, booking, source, last_updated
		FROM transport`
	var args []any
	if f != nil && f.VehicleTypeContains != "" {
		query += " WHERE vehicle_type ILIKE $1"
		args = append(args, "%"+f.VehicleTypeContains+"%")
	}
	query += " ORDER BY provider, service_name"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transport: %w", err)
	}
	defer rows.Close()

	out := []models.TransportListing{}
	for rows.Next() {
		var t models.TransportListing
		if err := rows.Scan(&t.Provider, &t.ServiceName, &t.Phone, &t.VehicleType,
			&t.Coverage, &t.Cost, &t.Hours, &t.Booking, &t.Source, &t.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan transport: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Benefits returns every benefit program row.
func (p *Postgres) Benefits(ctx context.Context) ([]models.BenefitProgram, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT program_name, agency, description, eligibility, monthly_amount,
		       apply_url, phone, source, last_updated
		FROM benefits ORDER BY program_name`)
	if err != nil {
		return nil, fmt.Errorf("query benefits: %w", err)
	}
	defer rows.Close()

	out := []models.BenefitProgram{}
	for rows.Next() {
		var b models.BenefitProgram
		if err := rows.Scan(&b.ProgramName, &b.Agency, &b.Description, &b.Eligibility,
			&b.MonthlyAmount, &b.ApplyURL, &b.Phone, &b.Source, &b.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan benefit: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Resources returns community resource rows matching the filter.
func (p *Postgres) Resources(ctx context.Context, f *models.ResourceFilter) ([]models.CommunityResource, error) {
	query := `
		SELECT name, address, phone, services, hours, dietary_accommodations,
		       source, last_updated
		FROM community_resources`
	var (
		conds []string
		args  []any
	)
	if f != nil {
		if f.ServiceContains != "" {
			args = append(args, f.ServiceContains)
			conds = append(conds, fmt.Sprintf("services::text ILIKE '%%' || $%d || '%%'", len(args)))
		}
		if f.DietaryAccommodations {
			conds = append(conds, "dietary_accommodations = TRUE")
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	defer rows.Close()

	out := []models.CommunityResource{}
	for rows.Next() {
		var (
			r        models.CommunityResource
			services []byte
		)
		if err := rows.Scan(&r.Name, &r.Address, &r.Phone, &services, &r.Hours,
			&r.DietaryAccommodations, &r.Source, &r.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		if len(services) > 0 {
			if err := json.Unmarshal(services, &r.Services); err != nil {
				return nil, fmt.Errorf("decode resource services: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateShelterAvailability sets available_beds for one shelter. The bed
// count must stay within [0, capacity].
func (p *Postgres) UpdateShelterAvailability(ctx context.Context, name string, beds int) (*models.ShelterListing, error) {
	if beds < 0 {
		return nil, fault.NewValidationError("available_beds", "must not be negative")
	}

	var capacity int
	err := p.db.QueryRowContext(ctx,
		`SELECT capacity FROM shelters WHERE name = $1`, name).Scan(&capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup shelter %s: %w", name, err)
	}
	if beds > capacity {
		return nil, fault.NewValidationError("available_beds",
			fmt.Sprintf("must not exceed capacity %d", capacity))
	}

	_, err = p.db.ExecContext(ctx, `
		UPDATE shelters SET available_beds = $1, last_updated = $2 WHERE name = $3`,
		beds, time.Now().UTC(), name)
	if err != nil {
		return nil, fmt.Errorf("update shelter availability: %w", err)
	}

	shelters, err := p.Shelters(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range shelters {
		if strings.EqualFold(shelters[i].Name, name) {
			return &shelters[i], nil
		}
	}
	return nil, fault.ErrNotFound
}
