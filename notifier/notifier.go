// Package notifier delivers operational alerts to a Telegram chat. It is the
// out-of-band channel for things an operator must see promptly: lockdowns,
// raid warnings, freshly issued license keys.
package notifier

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"inviteguard/lib/sl"
)

// Notifier sends messages to a single operations chat. A nil Notifier is
// valid and drops everything, so callers never need to branch on whether
// Telegram is configured.
type Notifier struct {
	log    *slog.Logger
	api    *tgbotapi.Bot
	chatID int64
	mu     sync.Mutex
}

func New(apiKey string, chatID int64, log *slog.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	return &Notifier{
		log:    log.With(sl.Module("notifier")),
		api:    api,
		chatID: chatID,
	}, nil
}

func (n *Notifier) Send(msg string) {
	n.SendWithLevel(msg, slog.LevelInfo)
}

// SendWithLevel prefixes the message with its severity and delivers it.
// Delivery failures are logged and swallowed; alerting must never take the
// caller down with it.
func (n *Notifier) SendWithLevel(msg string, level slog.Level) {
	if n == nil || msg == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	text := fmt.Sprintf("*%s* %s", level.String(), Sanitize(msg))
	_, err := n.api.SendMessage(n.chatID, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		n.log.Warn("sending message", sl.Err(err))
		_, _ = n.api.SendMessage(n.chatID, msg, &tgbotapi.SendMessageOpts{})
	}
}

// Sanitize escapes MarkdownV2 reserved characters.
func Sanitize(input string) string {
	reservedChars := "\\_{}#+-.!|()[]=*"
	sanitized := ""
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sanitized += "\\" + string(char)
		} else {
			sanitized += string(char)
		}
	}
	return sanitized
}
