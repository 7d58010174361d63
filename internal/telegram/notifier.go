package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/camuig/pankou/internal/config"
	"github.com/camuig/pankou/internal/grouping"
	"github.com/camuig/pankou/internal/logger"
)

// maxListed caps one highlight message; the rest are summarised.
const maxListed = 20

type Notifier struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	enabled bool
	logger  *logger.Logger
}

func NewNotifier(cfg *config.Config, log *logger.Logger) *Notifier {
	if !cfg.Telegram.Enabled {
		return &Notifier{enabled: false, logger: log}
	}

	if err := tgbotapi.SetLogger(log); err != nil {
		log.Warn("set telegram logger", "error", err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("failed to create telegram bot", "error", err)
		return &Notifier{enabled: false, logger: log}
	}

	log.Info("telegram bot connected", "username", bot.Self.UserName)

	return &Notifier{
		bot:     bot,
		chatID:  cfg.Telegram.ChatID,
		enabled: true,
		logger:  log,
	}
}

func (n *Notifier) Enabled() bool { return n.enabled }

func (n *Notifier) NotifyHighlights(hs []grouping.Highlighted) {
	if len(hs) == 0 {
		return
	}
	n.send(formatHighlights(hs))
}

func (n *Notifier) NotifyError(context string, err error) {
	msg := fmt.Sprintf("⚠️ *异常* [%s]\n%s", escape(context), escape(err.Error()))
	n.send(msg)
}

func (n *Notifier) NotifyStatus(message string) {
	n.send(escape(message))
}

func formatHighlights(hs []grouping.Highlighted) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 *新增异动高亮* (%d)\n", len(hs))
	for i, h := range hs {
		if i == maxListed {
			fmt.Fprintf(&b, "… 另有 %d 条", len(hs)-maxListed)
			break
		}
		fmt.Fprintf(&b, "%s %s %s %s %s\n",
			escape(h.Sector), escape(h.Session), escape(h.Time), escape(h.Entry.Name), escape(h.Entry.Value))
	}
	return strings.TrimRight(b.String(), "\n")
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func (n *Notifier) send(text string) {
	if !n.enabled {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("send telegram message", "error", err)
	}
}
