package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/narvarokollen/narvaro/internal/access"
	"github.com/narvarokollen/narvaro/internal/models"
	"github.com/narvarokollen/narvaro/internal/service"
)

// ---------------------------------------------------------------------------
// ResponseHandler – /yes /no /maybe /sub <id> [comment] and answer buttons
// ---------------------------------------------------------------------------

// ResponseHandler stores the chat member's answer to an event.
type ResponseHandler struct {
	svc      *service.Service
	logger   *logrus.Logger
	response models.Response
}

// NewResponseHandler creates a handler answering with response. The
// callback side reads the answer from the button instead.
func NewResponseHandler(svc *service.Service, logger *logrus.Logger, response models.Response) *ResponseHandler {
	return &ResponseHandler{svc: svc, logger: logger, response: response}
}

// Handle processes an answer command.
func (h *ResponseHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		msg := tgbotapi.NewMessage(message.Chat.ID,
			"❌ Please tell me which event.\n\n"+
				"*Usage:*\n"+
				"`/"+message.Command()+" 3f2a9c1d`\n"+
				"`/"+message.Command()+" 3f2a9c1d running late`\n\n"+
				"Use /events to see the ids.")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return nil
	}

	ref, comment := args[0], strings.Join(args[1:], " ")
	text, err := h.respond(message.Chat.ID, ref, h.response, comment)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
	return nil
}

// HandleCallback processes an answer button. data is "<event id>:<response>".
func (h *ResponseHandler) HandleCallback(bot *tgbotapi.BotAPI, query *tgbotapi.CallbackQuery, data string) error {
	eventID, response, err := parseResponseData(data)
	if err != nil {
		bot.Request(tgbotapi.NewCallback(query.ID, "Unknown answer"))
		return nil
	}
	if query.Message == nil {
		bot.Request(tgbotapi.NewCallback(query.ID, "Message too old, use /events"))
		return nil
	}

	text, err := h.respond(query.Message.Chat.ID, eventID, response, "")
	if err != nil {
		return err
	}

	bot.Request(tgbotapi.NewCallback(query.ID, responseEmoji(response)+" "+response.Label()))
	msg := tgbotapi.NewMessage(query.Message.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
	return nil
}

// respond stores the answer and returns the text to send back. Problems the
// user can fix are returned as text; only unexpected failures are errors.
func (h *ResponseHandler) respond(chatID int64, ref string, response models.Response, comment string) (string, error) {
	ce, err := h.svc.RespondFromChat(context.Background(), chatID, ref, response, comment)
	if err != nil {
		if text, ok := userError(err); ok {
			return text, nil
		}
		return "", fmt.Errorf("respond from chat: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id":  chatID,
		"event_id": ce.Event.ID,
		"response": string(response),
	}).Info("Stored response from chat")

	return confirmationText(ce), nil
}

func confirmationText(ce *service.ChatEvent) string {
	band := ""
	if ce.Band != nil {
		band = escape(ce.Band.DisplayName) + ": "
	}
	text := fmt.Sprintf("%s Saved *%s* for %s%s", responseEmoji(ce.Response), ce.Response.Label(), band, escape(ce.Event.Title()))
	if ce.Event.Cancelled {
		text += "\n_Note: this event is cancelled._"
	}
	return text
}

// parseResponseData splits answer button data.
func parseResponseData(data string) (string, models.Response, error) {
	i := strings.LastIndex(data, ":")
	if i <= 0 {
		return "", "", fmt.Errorf("malformed answer %q", data)
	}
	response := models.Response(data[i+1:])
	if response == models.ResponseUnset || !response.Valid() {
		return "", "", fmt.Errorf("unknown answer %q", data[i+1:])
	}
	return data[:i], response, nil
}

// userError turns errors the user can act on into a reply.
func userError(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "🤷 I could not find that event among your bands. Use /events to see the ids, or link this chat with /start.", true
	case errors.Is(err, service.ErrConflict):
		return "☝️ That id matches more than one event, please use more characters.", true
	case errors.Is(err, service.ErrInvalid):
		return "❌ " + escape(err.Error()), true
	case errors.Is(err, access.ErrForbidden):
		return "🔒 You are not a member of that band anymore.", true
	}
	return "", false
}
