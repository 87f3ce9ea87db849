package models

import "time"

// Member is a user's profile within one band.
type Member struct {
	BandID      string    `json:"band_id" db:"band_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Instrument  string    `json:"instrument" db:"instrument"`
	Admin       bool      `json:"admin" db:"admin"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// MemberSettings is the private notification settings sub-document of a member.
type MemberSettings struct {
	BandID         string `json:"band_id" db:"band_id"`
	UserID         string `json:"user_id" db:"user_id"`
	NotifyNewEvent bool   `json:"notify_new_event" db:"notify_new_event"`
	NotifyReminder bool   `json:"notify_reminder" db:"notify_reminder"`
	TelegramChatID int64  `json:"telegram_chat_id" db:"telegram_chat_id"`
}

// DefaultSettings returns the settings a member gets on joining.
func DefaultSettings(bandID, userID string) *MemberSettings {
	return &MemberSettings{
		BandID:         bandID,
		UserID:         userID,
		NotifyNewEvent: true,
		NotifyReminder: true,
	}
}

// Linked reports whether the member connected a Telegram chat.
func (s *MemberSettings) Linked() bool {
	return s != nil && s.TelegramChatID != 0
}
