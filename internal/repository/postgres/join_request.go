package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
)

type joinRequestRepository struct {
	db *sql.DB
}

// NewJoinRequestRepository creates a new join request repository
func NewJoinRequestRepository(db *sql.DB) repository.JoinRequestRepository {
	return &joinRequestRepository{db: db}
}

func (r *joinRequestRepository) Upsert(ctx context.Context, req *models.JoinRequest) (*models.JoinRequest, error) {
	query := `
		INSERT INTO join_requests (band_id, user_id, display_name, message, approved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (band_id, user_id) DO UPDATE SET display_name = $3, message = $4, approved = $5
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		req.BandID,
		req.UserID,
		req.DisplayName,
		req.Message,
		req.Approved,
		time.Now(),
	).Scan(&req.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to save join request: %w", err)
	}

	return req, nil
}

func (r *joinRequestRepository) Get(ctx context.Context, bandID, userID string) (*models.JoinRequest, error) {
	query := `
		SELECT band_id, user_id, display_name, message, approved, created_at
		FROM join_requests
		WHERE band_id = $1 AND user_id = $2`

	req := &models.JoinRequest{}
	err := r.db.QueryRowContext(ctx, query, bandID, userID).Scan(
		&req.BandID,
		&req.UserID,
		&req.DisplayName,
		&req.Message,
		&req.Approved,
		&req.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}

	return req, nil
}

func (r *joinRequestRepository) List(ctx context.Context, bandID string) ([]*models.JoinRequest, error) {
	query := `
		SELECT band_id, user_id, display_name, message, approved, created_at
		FROM join_requests
		WHERE band_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, bandID)
	if err != nil {
		return nil, fmt.Errorf("failed to query join requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.JoinRequest
	for rows.Next() {
		req := &models.JoinRequest{}
		if err := rows.Scan(
			&req.BandID,
			&req.UserID,
			&req.DisplayName,
			&req.Message,
			&req.Approved,
			&req.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan join request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

func (r *joinRequestRepository) Delete(ctx context.Context, bandID, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM join_requests WHERE band_id = $1 AND user_id = $2`, bandID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete join request: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("join request %s: %w", userID, repository.ErrNotFound)
	}

	return nil
}

func (r *joinRequestRepository) Approve(ctx context.Context, member *models.Member) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM join_requests WHERE band_id = $1 AND user_id = $2`, member.BandID, member.UserID)
	if err != nil {
		return fmt.Errorf("failed to delete join request: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("join request %s: %w", member.UserID, repository.ErrNotFound)
	}

	if err := insertMember(ctx, tx, member, time.Now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit join approval: %w", err)
	}
	return nil
}
