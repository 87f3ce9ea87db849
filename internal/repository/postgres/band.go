package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
)

type bandRepository struct {
	db *sql.DB
}

// NewBandRepository creates a new band repository
func NewBandRepository(db *sql.DB) repository.BandRepository {
	return &bandRepository{db: db}
}

func (r *bandRepository) Create(ctx context.Context, band *models.Band, creator *models.Member) (*models.Band, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	band.CreatedAt = now
	band.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bands (id, display_name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		band.ID, band.DisplayName, band.Description, band.CreatedAt, band.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create band: %w", err)
	}

	creator.BandID = band.ID
	if err := insertMember(ctx, tx, creator, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit band: %w", err)
	}

	return band, nil
}

// insertMember adds a roster row, default settings and the user's band list
// entry inside tx.
func insertMember(ctx context.Context, tx *sql.Tx, m *models.Member, now time.Time) error {
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := tx.ExecContext(ctx, `
		INSERT INTO members (band_id, user_id, display_name, instrument, admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (band_id, user_id) DO NOTHING`,
		m.BandID, m.UserID, m.DisplayName, m.Instrument, m.Admin, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	s := models.DefaultSettings(m.BandID, m.UserID)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO member_settings (band_id, user_id, notify_new_event, notify_reminder, telegram_chat_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (band_id, user_id) DO NOTHING`,
		s.BandID, s.UserID, s.NotifyNewEvent, s.NotifyReminder, s.TelegramChatID)
	if err != nil {
		return fmt.Errorf("failed to add member settings: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_bands (user_id, band_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, band_id) DO NOTHING`,
		m.UserID, m.BandID, now)
	if err != nil {
		return fmt.Errorf("failed to add band to user: %w", err)
	}

	return nil
}

func (r *bandRepository) GetByID(ctx context.Context, id string) (*models.Band, error) {
	query := `
		SELECT id, display_name, description, created_at, updated_at
		FROM bands
		WHERE id = $1`

	band := &models.Band{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&band.ID,
		&band.DisplayName,
		&band.Description,
		&band.CreatedAt,
		&band.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get band by ID: %w", err)
	}

	return band, nil
}

func (r *bandRepository) ListByUser(ctx context.Context, userID string) ([]*models.Band, error) {
	query := `
		SELECT b.id, b.display_name, b.description, b.created_at, b.updated_at
		FROM bands b
		INNER JOIN user_bands ub ON ub.band_id = b.id
		WHERE ub.user_id = $1
		ORDER BY b.display_name ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bands: %w", err)
	}
	defer rows.Close()

	var bands []*models.Band
	for rows.Next() {
		band := &models.Band{}
		if err := rows.Scan(
			&band.ID,
			&band.DisplayName,
			&band.Description,
			&band.CreatedAt,
			&band.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan band: %w", err)
		}
		bands = append(bands, band)
	}

	return bands, rows.Err()
}

func (r *bandRepository) Update(ctx context.Context, band *models.Band) (*models.Band, error) {
	query := `
		UPDATE bands
		SET display_name = $2, description = $3, updated_at = $4
		WHERE id = $1
		RETURNING updated_at`

	band.UpdatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		band.ID,
		band.DisplayName,
		band.Description,
		band.UpdatedAt,
	).Scan(&band.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to update band: %w", err)
	}

	return band, nil
}

func (r *bandRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bands WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete band: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("band %s: %w", id, repository.ErrNotFound)
	}

	return nil
}
