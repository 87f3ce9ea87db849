package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const helpText = `📚 *Närvarokollen Help*

*Events:*
• /events - Upcoming events of your bands

*Answering:*
• /yes <id> [comment] - I'm coming
• /no <id> [comment] - I can't come
• /maybe <id> [comment] - Not sure yet
• /sub <id> [comment] - I'm sending a substitute

*Setup:*
• /start - Show the chat id to link in your settings

_The id is the short code shown next to each event._`

// InfoHandler answers a command with a fixed Markdown text.
type InfoHandler struct {
	logger *logrus.Logger
	name   string
	text   func(chatID int64) string
}

// NewStartHandler greets the user and shows the chat id to paste into the
// member settings.
func NewStartHandler(logger *logrus.Logger) *InfoHandler {
	return &InfoHandler{logger: logger, name: "start", text: startText}
}

func NewHelpHandler(logger *logrus.Logger) *InfoHandler {
	return &InfoHandler{logger: logger, name: "help", text: func(int64) string { return helpText }}
}

func (h *InfoHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	msg := tgbotapi.NewMessage(message.Chat.ID, h.text(message.Chat.ID))
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send %s message: %w", h.name, err)
	}

	h.logger.WithFields(logrus.Fields{
		"command": h.name,
		"chat_id": message.Chat.ID,
	}).Debug("Sent info message")
	return nil
}

func startText(chatID int64) string {
	return fmt.Sprintf(`🎺 *Welcome to Närvarokollen!*

I send you new events and reminders from your bands, and you can answer right here.

Your chat id is `+"`%d`"+`

Open your member settings in Närvarokollen, paste the chat id and turn on the notifications you want. Then try /events.`, chatID)
}
