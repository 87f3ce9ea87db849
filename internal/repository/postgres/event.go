package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
)

type eventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new band event repository
func NewEventRepository(db *sql.DB) repository.EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `id, band_id, type, start_time, stop_time, location, description, cancelled, created_by, reminded_at, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*models.BandEvent, error) {
	event := &models.BandEvent{}
	var stop, reminded sql.NullTime
	err := row.Scan(
		&event.ID,
		&event.BandID,
		&event.Type,
		&event.Start,
		&stop,
		&event.Location,
		&event.Description,
		&event.Cancelled,
		&event.CreatedBy,
		&reminded,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if stop.Valid {
		event.Stop = &stop.Time
	}
	if reminded.Valid {
		event.RemindedAt = &reminded.Time
	}
	return event, nil
}

func (r *eventRepository) Create(ctx context.Context, event *models.BandEvent) (*models.BandEvent, error) {
	query := `
		INSERT INTO events (id, band_id, type, start_time, stop_time, location, description, cancelled, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, query,
		event.ID,
		event.BandID,
		event.Type,
		event.Start,
		event.Stop,
		event.Location,
		event.Description,
		event.Cancelled,
		event.CreatedBy,
		event.CreatedAt,
		event.UpdatedAt,
	).Scan(&event.CreatedAt, &event.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create band event: %w", err)
	}

	return event, nil
}

func (r *eventRepository) GetByID(ctx context.Context, bandID, id string) (*models.BandEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE band_id = $1 AND id = $2`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, bandID, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get band event: %w", err)
	}

	return event, nil
}

func (r *eventRepository) List(ctx context.Context, bandID string, filters repository.EventFilters) ([]*models.BandEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE band_id = $1`
	args := []interface{}{bandID}
	argIdx := 2

	if !filters.IncludeCancelled {
		query += " AND NOT cancelled"
	}
	if filters.From != nil {
		query += fmt.Sprintf(" AND start_time >= $%d", argIdx)
		args = append(args, *filters.From)
		argIdx++
	}
	if filters.To != nil {
		query += fmt.Sprintf(" AND start_time <= $%d", argIdx)
		args = append(args, *filters.To)
		argIdx++
	}

	query += " ORDER BY start_time ASC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
	}

	return r.query(ctx, query, args...)
}

func (r *eventRepository) query(ctx context.Context, query string, args ...any) ([]*models.BandEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query band events: %w", err)
	}
	defer rows.Close()

	var events []*models.BandEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan band event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func (r *eventRepository) Update(ctx context.Context, event *models.BandEvent) (*models.BandEvent, error) {
	query := `
		UPDATE events
		SET type = $3, start_time = $4, stop_time = $5, location = $6, description = $7, cancelled = $8, reminded_at = $9, updated_at = $10
		WHERE band_id = $1 AND id = $2
		RETURNING updated_at`

	event.UpdatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		event.BandID,
		event.ID,
		event.Type,
		event.Start,
		event.Stop,
		event.Location,
		event.Description,
		event.Cancelled,
		event.RemindedAt,
		event.UpdatedAt,
	).Scan(&event.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("band event %s: %w", event.ID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update band event: %w", err)
	}

	return event, nil
}

func (r *eventRepository) Delete(ctx context.Context, bandID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE band_id = $1 AND id = $2`, bandID, id)
	if err != nil {
		return fmt.Errorf("failed to delete band event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("band event %s: %w", id, repository.ErrNotFound)
	}

	return nil
}

func (r *eventRepository) ListUnreminded(ctx context.Context, from, to time.Time) ([]*models.BandEvent, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE reminded_at IS NULL AND NOT cancelled AND start_time >= $1 AND start_time < $2
		ORDER BY start_time ASC`

	return r.query(ctx, query, from, to)
}

func (r *eventRepository) MarkReminded(ctx context.Context, bandID, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE events SET reminded_at = $3 WHERE band_id = $1 AND id = $2`, bandID, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark band event reminded: %w", err)
	}
	return nil
}
