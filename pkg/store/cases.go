package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carebridge/carebridge/pkg/fault"
	"github.com/carebridge/carebridge/pkg/models"
)

// marshalJSON encodes v for a JSONB column.
func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return data, nil
}

// UpsertCase inserts or fully replaces the case row. CreatedAt is preserved
// on conflict; UpdatedAt is always set to now.
func (p *Postgres) UpsertCase(ctx context.Context, c *models.Case) error {
	if c.CaseID == "" {
		return fault.NewValidationError("case_id", "required")
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	contact, err := marshalJSON(c.Contact)
	if err != nil {
		return err
	}
	discharge, err := marshalJSON(c.Discharge)
	if err != nil {
		return err
	}
	clinical, err := marshalJSON(c.Clinical)
	if err != nil {
		return err
	}
	followUp, err := marshalJSON(c.FollowUp)
	if err != nil {
		return err
	}
	benefits, err := marshalJSON(c.AssignedBenefits)
	if err != nil {
		return err
	}

	var completedAt any
	if c.CompletedAt != nil {
		completedAt = *c.CompletedAt
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO cases (
			case_id, patient_name, patient_dob,
			contact, discharge, clinical, follow_up,
			workflow_status, current_step,
			assigned_shelter_id, assigned_transport_provider, assigned_benefits,
			created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (case_id) DO UPDATE SET
			patient_name = EXCLUDED.patient_name,
			patient_dob = EXCLUDED.patient_dob,
			contact = EXCLUDED.contact,
			discharge = EXCLUDED.discharge,
			clinical = EXCLUDED.clinical,
			follow_up = EXCLUDED.follow_up,
			workflow_status = EXCLUDED.workflow_status,
			current_step = EXCLUDED.current_step,
			assigned_shelter_id = EXCLUDED.assigned_shelter_id,
			assigned_transport_provider = EXCLUDED.assigned_transport_provider,
			assigned_benefits = EXCLUDED.assigned_benefits,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at`,
		c.CaseID, c.PatientName, c.PatientDOB,
		contact, discharge, clinical, followUp,
		string(c.WorkflowStatus), c.CurrentStep,
		c.AssignedShelterID, c.AssignedTransportProvider, benefits,
		c.CreatedAt, c.UpdatedAt, completedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert case %s: %w", c.CaseID, err)
	}
	return nil
}

// GetCase loads one case row.
func (p *Postgres) GetCase(ctx context.Context, caseID string) (*models.Case, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT case_id, patient_name, patient_dob,
		       contact, discharge, clinical, follow_up,
		       workflow_status, current_step,
		       assigned_shelter_id, assigned_transport_provider, assigned_benefits,
		       created_at, updated_at, completed_at
		FROM cases WHERE case_id = $1`, caseID)
	return scanCase(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*models.Case, error) {
	var (
		c           models.Case
		contact     []byte
		discharge   []byte
		clinical    []byte
		followUp    []byte
		benefits    []byte
		status      string
		completedAt sql.NullTime
	)
	err := row.Scan(
		&c.CaseID, &c.PatientName, &c.PatientDOB,
		&contact, &discharge, &clinical, &followUp,
		&status, &c.CurrentStep,
		&c.AssignedShelterID, &c.AssignedTransportProvider, &benefits,
		&c.CreatedAt, &c.UpdatedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan case: %w", err)
	}
	c.WorkflowStatus = models.WorkflowStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		c.CompletedAt = &t
	}
	for _, pair := range []struct {
		data []byte
		dst  any
	}{
		{contact, &c.Contact},
		{discharge, &c.Discharge},
		{clinical, &c.Clinical},
		{followUp, &c.FollowUp},
		{benefits, &c.AssignedBenefits},
	} {
		if len(pair.data) > 0 {
			if err := json.Unmarshal(pair.data, pair.dst); err != nil {
				return nil, fmt.Errorf("decode case column: %w", err)
			}
		}
	}
	return &c, nil
}

// ListCases returns summaries of every case, newest first.
func (p *Postgres) ListCases(ctx context.Context) ([]models.CaseSummary, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT case_id, patient_name, workflow_status, current_step,
		       assigned_shelter_id, created_at, updated_at
		FROM cases ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	summaries := []models.CaseSummary{}
	for rows.Next() {
		var (
			s      models.CaseSummary
			status string
		)
		if err := rows.Scan(&s.CaseID, &s.PatientName, &status, &s.CurrentStep,
			&s.AssignedShelter, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan case summary: %w", err)
		}
		s.WorkflowStatus = models.WorkflowStatus(status)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
