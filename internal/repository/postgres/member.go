package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/repository"
)

type memberRepository struct {
	db *sql.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *sql.DB) repository.MemberRepository {
	return &memberRepository{db: db}
}

const memberColumns = `band_id, user_id, display_name, instrument, admin, created_at, updated_at`

func scanMember(row interface{ Scan(...any) error }) (*models.Member, error) {
	m := &models.Member{}
	err := row.Scan(
		&m.BandID,
		&m.UserID,
		&m.DisplayName,
		&m.Instrument,
		&m.Admin,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func (r *memberRepository) List(ctx context.Context, bandID string) ([]*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE band_id = $1 ORDER BY display_name ASC`

	rows, err := r.db.QueryContext(ctx, query, bandID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

func (r *memberRepository) Get(ctx context.Context, bandID, userID string) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE band_id = $1 AND user_id = $2`

	m, err := scanMember(r.db.QueryRowContext(ctx, query, bandID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return m, nil
}

// lockAdmins locks the band's roster rows inside tx and reports whether
// userID is a member, whether it is an admin and how many admins there are.
func lockAdmins(ctx context.Context, tx *sql.Tx, bandID, userID string) (found, admin bool, admins int, err error) {
	rows, err := tx.QueryContext(ctx, `SELECT user_id, admin FROM members WHERE band_id = $1 FOR UPDATE`, bandID)
	if err != nil {
		return false, false, 0, fmt.Errorf("failed to lock members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var isAdmin bool
		if err := rows.Scan(&id, &isAdmin); err != nil {
			return false, false, 0, fmt.Errorf("failed to scan member: %w", err)
		}
		if isAdmin {
			admins++
		}
		if id == userID {
			found, admin = true, isAdmin
		}
	}
	return found, admin, admins, rows.Err()
}

func (r *memberRepository) Update(ctx context.Context, member *models.Member) (*models.Member, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	found, admin, admins, err := lockAdmins(ctx, tx, member.BandID, member.UserID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("member %s: %w", member.UserID, repository.ErrNotFound)
	}
	if admin && !member.Admin && admins == 1 {
		return nil, repository.ErrLastAdmin
	}

	query := `
		UPDATE members
		SET display_name = $3, instrument = $4, admin = $5, updated_at = $6
		WHERE band_id = $1 AND user_id = $2
		RETURNING created_at, updated_at`

	err = tx.QueryRowContext(ctx, query,
		member.BandID,
		member.UserID,
		member.DisplayName,
		member.Instrument,
		member.Admin,
		time.Now(),
	).Scan(&member.CreatedAt, &member.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit member update: %w", err)
	}
	return member, nil
}

func (r *memberRepository) Remove(ctx context.Context, bandID, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	found, admin, admins, err := lockAdmins(ctx, tx, bandID, userID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("member %s: %w", userID, repository.ErrNotFound)
	}
	if admin && admins == 1 {
		return repository.ErrLastAdmin
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE band_id = $1 AND user_id = $2`, bandID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_bands WHERE band_id = $1 AND user_id = $2`, bandID, userID); err != nil {
		return fmt.Errorf("failed to remove band from user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit member removal: %w", err)
	}
	return nil
}

const settingsColumns = `band_id, user_id, notify_new_event, notify_reminder, telegram_chat_id`

func scanSettings(row interface{ Scan(...any) error }) (*models.MemberSettings, error) {
	s := &models.MemberSettings{}
	err := row.Scan(
		&s.BandID,
		&s.UserID,
		&s.NotifyNewEvent,
		&s.NotifyReminder,
		&s.TelegramChatID,
	)
	return s, err
}

func (r *memberRepository) GetSettings(ctx context.Context, bandID, userID string) (*models.MemberSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM member_settings WHERE band_id = $1 AND user_id = $2`

	s, err := scanSettings(r.db.QueryRowContext(ctx, query, bandID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member settings: %w", err)
	}
	return s, nil
}

func (r *memberRepository) UpdateSettings(ctx context.Context, s *models.MemberSettings) (*models.MemberSettings, error) {
	query := `
		INSERT INTO member_settings (` + settingsColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (band_id, user_id) DO UPDATE
		SET notify_new_event = $3, notify_reminder = $4, telegram_chat_id = $5`

	_, err := r.db.ExecContext(ctx, query,
		s.BandID,
		s.UserID,
		s.NotifyNewEvent,
		s.NotifyReminder,
		s.TelegramChatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update member settings: %w", err)
	}
	return s, nil
}

func (r *memberRepository) ListSettings(ctx context.Context, bandID string) ([]*models.MemberSettings, error) {
	return r.querySettings(ctx, `SELECT `+settingsColumns+` FROM member_settings WHERE band_id = $1`, bandID)
}

func (r *memberRepository) ListSettingsByChat(ctx context.Context, chatID int64) ([]*models.MemberSettings, error) {
	return r.querySettings(ctx, `SELECT `+settingsColumns+` FROM member_settings WHERE telegram_chat_id = $1`, chatID)
}

func (r *memberRepository) querySettings(ctx context.Context, query string, arg any) ([]*models.MemberSettings, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query member settings: %w", err)
	}
	defer rows.Close()

	var out []*models.MemberSettings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member settings: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
