package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/service"
	"github.com/narvarokollen/narvaro/internal/telegram"
)

// ResponseCallbackPrefix routes answer buttons to the ResponseHandler.
const ResponseCallbackPrefix = "r"


// ---------------------------------------------------------------------------
// EventsHandler – /events
// ---------------------------------------------------------------------------

// EventsHandler lists the upcoming events of every band linked to the chat,
// one message per event with answer buttons.
type EventsHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(svc *service.Service, logger *logrus.Logger) *EventsHandler {
	return &EventsHandler{svc: svc, logger: logger}
}

// Handle processes the /events command.
func (h *EventsHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	events, err := h.svc.UpcomingForChat(ctx, message.Chat.ID)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	if len(events) == 0 {
		msg := tgbotapi.NewMessage(message.Chat.ID,
			"📅 *No upcoming events!*\n\nIf you expected some, link this chat in your member settings. /start shows the chat id.")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return nil
	}

	for _, ce := range events {
		msg := tgbotapi.NewMessage(message.Chat.ID, formatChatEvent(ce, h.svc.FormatWhen(ce.Event)))
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.ReplyMarkup = responseKeyboard(ce.Event.ID)
		bot.Send(msg)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"count":   len(events),
	}).Info("Listed band events")

	return nil
}

// formatChatEvent renders one event for a chat message.
func formatChatEvent(ce service.ChatEvent, when string) string {
	var sb strings.Builder
	status := "📆"
	if ce.Event.Cancelled {
		status = "🚫"
	}
	sb.WriteString(fmt.Sprintf("%s *%s* `%s`\n", status, escape(ce.Band.DisplayName), service.ShortID(ce.Event.ID)))
	sb.WriteString(escape(ce.Event.Title()) + "\n")
	sb.WriteString("🕒 " + when)
	if ce.Event.Description != "" {
		sb.WriteString("\n" + escape(ce.Event.Description))
	}
	sb.WriteString(fmt.Sprintf("\n\nYour answer: %s %s", responseEmoji(ce.Response), ce.Response.Label()))
	return sb.String()
}

// responseKeyboard offers the four answers for an event.
func responseKeyboard(eventID string) tgbotapi.InlineKeyboardMarkup {
	button := func(r models.Response) tgbotapi.InlineKeyboardButton {
		data := telegram.CallbackData(ResponseCallbackPrefix, eventID+":"+string(r))
		return tgbotapi.NewInlineKeyboardButtonData(responseEmoji(r)+" "+r.Label(), data)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button(models.ResponseYes), button(models.ResponseNo)),
		tgbotapi.NewInlineKeyboardRow(button(models.ResponseMaybe), button(models.ResponseSub)),
	)
}

func responseEmoji(r models.Response) string {
	switch r {
	case models.ResponseYes:
		return "✅"
	case models.ResponseNo:
		return "❌"
	case models.ResponseMaybe:
		return "🤔"
	case models.ResponseSub:
		return "🔁"
	default:
		return "❔"
	}
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
