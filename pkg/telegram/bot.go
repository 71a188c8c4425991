package telegram

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot представляет Telegram бота для уведомлений участников
type Bot struct {
	api *tgbotapi.BotAPI
}

// NewBot создает новый экземпляр бота
func NewBot(token string) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot.Debug = false

	return &Bot{api: bot}, nil
}

// SetCommands устанавливает команды бота
func (b *Bot) SetCommands() error {
	commands := []tgbotapi.BotCommand{
		{
			Command:     "start",
			Description: "🚀 Подключить уведомления",
		},
		{
			Command:     "help",
			Description: "ℹ️ Как привязать аккаунт",
		},
	}

	_, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...))
	if err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}
	return nil
}

// SendMessage отправляет HTML сообщение
func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	_, err := b.api.Send(msg)
	return err
}

// SendNotification отправляет уведомление с заголовком
func (b *Bot) SendNotification(chatID int64, title, message string) error {
	return b.SendMessage(chatID, FormatNotification(title, message))
}

// FormatNotification собирает текст уведомления с экранированием HTML
func FormatNotification(title, message string) string {
	return fmt.Sprintf("🔔 <b>%s</b>\n\n%s", html.EscapeString(title), html.EscapeString(message))
}

// Run обрабатывает входящие команды, пока не отменен ctx
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if err := b.SendMessage(update.Message.Chat.ID, CommandReply(update.Message.Command(), update.Message.Chat.ID)); err != nil {
				log.Printf("telegram: reply to %d: %v", update.Message.Chat.ID, err)
			}
		}
	}
}

// CommandReply возвращает ответ на команду бота
func CommandReply(command string, chatID int64) string {
	switch strings.ToLower(command) {
	case "start":
		return fmt.Sprintf(`👋 Добро пожаловать в Sahay!

Чтобы получать уведомления о подборе пары и сессиях, укажите этот номер чата в профиле:

<code>%d</code>`, chatID)
	default:
		return fmt.Sprintf(`ℹ️ Бот присылает уведомления о новых парах, отказах и завершении сессий.

Номер вашего чата: <code>%d</code>
Укажите его в профиле на сайте, чтобы привязать аккаунт.`, chatID)
	}
}
