package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/narvarokollen/narvaro/internal/attendance"
	"github.com/narvarokollen/narvaro/internal/models"
)

// StartReminderScheduler runs a background loop that checks for events
// starting within lead every interval and reminds members who have not
// answered yet. It blocks until the context is cancelled, so it should be
// launched in a separate goroutine.
func (s *Service) StartReminderScheduler(ctx context.Context, interval, lead time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.WithFields(logrus.Fields{"interval": interval, "lead": lead}).Info("Reminder scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reminder scheduler stopped")
			return
		case <-ticker.C:
			s.ProcessReminders(ctx, lead)
		}
	}
}

// ProcessReminders sends the reminders due now and returns how many were
// sent. Each event is handled once; moving it re-arms the reminder.
func (s *Service) ProcessReminders(ctx context.Context, lead time.Duration) int {
	now := s.now()
	events, err := s.Events.ListUnreminded(ctx, now, now.Add(lead))
	if err != nil {
		s.logger.Errorf("Failed to get due events: %v", err)
		return 0
	}

	sent := 0
	for _, event := range events {
		n, err := s.remindEvent(ctx, event)
		if err != nil {
			s.logger.WithError(err).WithField("event_id", event.ID).Error("Failed to remind event")
			continue
		}
		sent += n

		if err := s.Events.MarkReminded(ctx, event.BandID, event.ID, now); err != nil {
			s.logger.Errorf("Failed to mark event %s reminded: %v", event.ID, err)
		}
	}
	return sent
}

func (s *Service) remindEvent(ctx context.Context, event *models.BandEvent) (int, error) {
	band, err := s.Bands.GetByID(ctx, event.BandID)
	if err != nil {
		return 0, fmt.Errorf("failed to get band: %w", err)
	}
	if band == nil {
		return 0, nil
	}

	members, err := s.Members.List(ctx, event.BandID)
	if err != nil {
		return 0, fmt.Errorf("failed to list members: %w", err)
	}
	participants, err := s.Participants.ListByEvent(ctx, event.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list participants: %w", err)
	}

	text := fmt.Sprintf("⏰ *Reminder* from %s\n%s %s\n%s\n\nYou have not answered yet: /yes %s, /no %s, /maybe %s or /sub %s",
		band.DisplayName, event.Title(), s.untilText(event.Start), s.formatWhen(event),
		ShortID(event.ID), ShortID(event.ID), ShortID(event.ID), ShortID(event.ID))

	sent := 0
	for _, m := range attendance.Unanswered(members, participants) {
		st, err := s.Members.GetSettings(ctx, event.BandID, m.UserID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", m.UserID).Warn("failed to get settings for reminder")
			continue
		}
		if st == nil || !st.NotifyReminder || !st.Linked() {
			continue
		}
		if s.notify("reminder", st.TelegramChatID, text) {
			sent++
		}
	}
	return sent, nil
}
