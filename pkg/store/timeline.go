package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carebridge/carebridge/pkg/fault"
	"github.com/carebridge/carebridge/pkg/models"
)

// AppendEvent appends one timeline event. The next dense sequence number is
// assigned and the owning case's updated_at is bumped in the same
// transaction.
func (p *Postgres) AppendEvent(ctx context.Context, req models.AppendEventRequest) (*models.TimelineEvent, error) {
	if req.CaseID == "" {
		return nil, fault.NewValidationError("case_id", "required")
	}
	if req.Step == "" {
		return nil, fault.NewValidationError("step", "required")
	}

	details, err := marshalJSON(req.Details)
	if err != nil {
		return nil, err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append event: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()

	// Bump the case first so its updated_at is never behind the event.
	res, err := tx.ExecContext(ctx,
		`UPDATE cases SET updated_at = $1 WHERE case_id = $2`, now, req.CaseID)
	if err != nil {
		return nil, fmt.Errorf("bump case %s: %w", req.CaseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fault.ErrNotFound
	}

	var seq int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM timeline_events WHERE case_id = $1`,
		req.CaseID).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("next seq for case %s: %w", req.CaseID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO timeline_events
			(case_id, seq, step, agent, status, description, details, transcription, event_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		req.CaseID, seq, req.Step, req.Agent, string(req.Status),
		req.Description, details, req.Transcription, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert timeline event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append event: %w", err)
	}

	return &models.TimelineEvent{
		CaseID:        req.CaseID,
		Seq:           seq,
		Step:          req.Step,
		Agent:         req.Agent,
		Status:        req.Status,
		Description:   req.Description,
		Details:       req.Details,
		Timestamp:     now,
		Transcription: req.Transcription,
	}, nil
}

// ListEvents returns the full ordered timeline for one case.
func (p *Postgres) ListEvents(ctx context.Context, caseID string) ([]models.TimelineEvent, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT case_id, seq, step, agent, status, description, details, transcription, event_time
		FROM timeline_events WHERE case_id = $1 ORDER BY seq`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list events for case %s: %w", caseID, err)
	}
	defer rows.Close()

	events := []models.TimelineEvent{}
	for rows.Next() {
		var (
			e       models.TimelineEvent
			status  string
			details []byte
		)
		if err := rows.Scan(&e.CaseID, &e.Seq, &e.Step, &e.Agent, &status,
			&e.Description, &details, &e.Transcription, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		e.Status = models.EventStatus(status)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("decode event details: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
