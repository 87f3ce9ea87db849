package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
)

type participantRepository struct {
	db *sql.DB
}

// NewParticipantRepository creates a new participant repository
func NewParticipantRepository(db *sql.DB) repository.ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Upsert(ctx context.Context, p *models.Participant) (*models.Participant, error) {
	query := `
		INSERT INTO participants (band_id, event_id, user_id, response, comment, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id, user_id) DO UPDATE SET response = $4, comment = $5, updated_at = $6
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		p.BandID,
		p.EventID,
		p.UserID,
		p.Response,
		p.Comment,
		time.Now(),
	).Scan(&p.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to save participant: %w", err)
	}

	return p, nil
}

func (r *participantRepository) Get(ctx context.Context, eventID, userID string) (*models.Participant, error) {
	query := `
		SELECT band_id, event_id, user_id, response, comment, updated_at
		FROM participants
		WHERE event_id = $1 AND user_id = $2`

	p := &models.Participant{}
	err := r.db.QueryRowContext(ctx, query, eventID, userID).Scan(
		&p.BandID,
		&p.EventID,
		&p.UserID,
		&p.Response,
		&p.Comment,
		&p.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	return p, nil
}

func (r *participantRepository) ListByEvent(ctx context.Context, eventID string) ([]*models.Participant, error) {
	query := `
		SELECT band_id, event_id, user_id, response, comment, updated_at
		FROM participants
		WHERE event_id = $1
		ORDER BY updated_at ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p := &models.Participant{}
		if err := rows.Scan(
			&p.BandID,
			&p.EventID,
			&p.UserID,
			&p.Response,
			&p.Comment,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}
