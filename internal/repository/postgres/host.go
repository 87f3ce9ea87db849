package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
)

type hostRepository struct {
	db *sql.DB
}

// NewHostRepository creates a new host mapping repository
func NewHostRepository(db *sql.DB) repository.HostRepository {
	return &hostRepository{db: db}
}

func (r *hostRepository) Get(ctx context.Context, host string) (*models.Host, error) {
	h := &models.Host{}
	err := r.db.QueryRowContext(ctx, `SELECT host, band_id FROM hosts WHERE host = $1`, host).Scan(&h.Host, &h.BandID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get host: %w", err)
	}
	return h, nil
}

func (r *hostRepository) ListByBand(ctx context.Context, bandID string) ([]*models.Host, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT host, band_id FROM hosts WHERE band_id = $1 ORDER BY host`, bandID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []*models.Host
	for rows.Next() {
		h := &models.Host{}
		if err := rows.Scan(&h.Host, &h.BandID); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

func (r *hostRepository) Set(ctx context.Context, h *models.Host) error {
	query := `
		INSERT INTO hosts (host, band_id) VALUES ($1, $2)
		ON CONFLICT (host) DO UPDATE SET band_id = $2`

	if _, err := r.db.ExecContext(ctx, query, h.Host, h.BandID); err != nil {
		return fmt.Errorf("failed to set host: %w", err)
	}
	return nil
}
