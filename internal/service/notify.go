package service

import (
	"context"
	"fmt"
	"time"

	"github.com/narvarokollen/narvaro/internal/metrics"
	"github.com/narvarokollen/narvaro/internal/models"
)

// notify sends text to chatID and records the outcome. Failures are logged
// and otherwise ignored.
func (s *Service) notify(kind string, chatID int64, text string) bool {
	if s.notifier == nil || chatID == 0 {
		return false
	}
	if err := s.notifier.Notify(chatID, text); err != nil {
		metrics.NotificationsSent.WithLabelValues(kind, "error").Inc()
		s.logger.WithError(err).WithField("chat_id", chatID).Warnf("failed to send %s notification", kind)
		return false
	}
	metrics.NotificationsSent.WithLabelValues(kind, "ok").Inc()
	return true
}

func (s *Service) notifyNewEvent(ctx context.Context, band *models.Band, event *models.BandEvent, authorID string) {
	if s.notifier == nil {
		return
	}
	settings, err := s.Members.ListSettings(ctx, band.ID)
	if err != nil {
		s.logger.WithError(err).WithField("band_id", band.ID).Error("failed to list settings for new event notification")
		return
	}

	text := fmt.Sprintf("📅 *%s*: new %s\n%s\n\nAnswer with /yes %s, /no %s, /maybe %s or /sub %s",
		band.DisplayName, event.Title(), s.formatWhen(event),
		ShortID(event.ID), ShortID(event.ID), ShortID(event.ID), ShortID(event.ID))

	for _, st := range settings {
		if st.UserID == authorID || !st.NotifyNewEvent || !st.Linked() {
			continue
		}
		s.notify("new_event", st.TelegramChatID, text)
	}
}

func (s *Service) notifyJoinRequest(ctx context.Context, band *models.Band, req *models.JoinRequest) {
	if s.notifier == nil {
		return
	}
	members, err := s.Members.List(ctx, band.ID)
	if err != nil {
		s.logger.WithError(err).WithField("band_id", band.ID).Error("failed to list admins for join notification")
		return
	}

	text := fmt.Sprintf("🙋 %s wants to join *%s*", req.DisplayName, band.DisplayName)
	if req.Message != "" {
		text += "\n\n_" + req.Message + "_"
	}

	for _, m := range members {
		if !m.Admin {
			continue
		}
		st, err := s.Members.GetSettings(ctx, band.ID, m.UserID)
		if err != nil || !st.Linked() {
			continue
		}
		s.notify("join_request", st.TelegramChatID, text)
	}
}

// formatWhen renders an event's time span in the service's zone.
func (s *Service) formatWhen(event *models.BandEvent) string {
	start := event.Start.In(s.loc)
	when := start.Format("Mon 02 Jan 2006 15:04")
	if event.Stop != nil {
		stop := event.Stop.In(s.loc)
		if stop.YearDay() == start.YearDay() && stop.Year() == start.Year() {
			when += "–" + stop.Format("15:04")
		} else {
			when += " – " + stop.Format("Mon 02 Jan 15:04")
		}
	}
	return when
}

// ShortID is the prefix of an id shown in chat messages.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (s *Service) untilText(start time.Time) string {
	d := start.Sub(s.now()).Round(time.Minute)
	if d >= 48*time.Hour {
		return fmt.Sprintf("in %d days", int(d.Hours()/24))
	}
	if d >= 2*time.Hour {
		return fmt.Sprintf("in %d hours", int(d.Hours()))
	}
	return fmt.Sprintf("in %d minutes", int(d.Minutes()))
}
