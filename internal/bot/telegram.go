package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"calorie-bot/config"
	"calorie-bot/internal/i18n"
	"calorie-bot/internal/models"
	"calorie-bot/pkg/logger"
)

// maxPhotoSize matches the Bot API download limit.
const maxPhotoSize = 20 << 20

var ErrNotConnected = errors.New("telegram bot is not connected")

// TelegramBot is the Telegram transport: it turns updates into Events and
// implements Messenger on top of the Bot API.
type TelegramBot struct {
	cfg    config.Telegram
	logger *logger.Logger
	files  *http.Client

	mu  sync.RWMutex
	bot *tgbotapi.BotAPI
}

func NewTelegramBot(cfg config.Telegram, logger *logger.Logger) *TelegramBot {
	return &TelegramBot{
		cfg:    cfg,
		logger: logger,
		files:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (t *TelegramBot) api() (*tgbotapi.BotAPI, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.bot == nil {
		return nil, ErrNotConnected
	}
	return t.bot, nil
}

func (t *TelegramBot) connect() (*tgbotapi.BotAPI, error) {
	if bot, err := t.api(); err == nil {
		return bot, nil
	}

	endpoint := t.cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(t.cfg.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	bot.Debug = t.cfg.Debug
	t.logger.Infow("Authorized on Telegram", "username", bot.Self.UserName)

	t.mu.Lock()
	t.bot = bot
	t.mu.Unlock()
	return bot, nil
}

// Run connects if needed and feeds updates to the dispatcher until ctx is
// done. Any other return is a failure the caller may restart from.
func (t *TelegramBot) Run(ctx context.Context, dispatcher *Dispatcher) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in update loop: %v", r)
		}
	}()

	bot, err := t.connect()
	if err != nil {
		return err
	}

	// First, remove any existing webhook to ensure we can use polling
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := bot.GetUpdatesChan(updateConfig)
	defer t.stopPolling(ctx, bot, updates)

	t.logger.Info("Started receiving Telegram updates")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return errors.New("telegram update channel closed")
			}
			ev, ok := toEvent(update)
			if !ok {
				continue
			}
			if err := dispatcher.Dispatch(ctx, ev); err != nil {
				return nil
			}
		}
	}
}

// stopPolling ends the long poll of bot. A stopped BotAPI cannot poll again,
// so unless ctx is done it is dropped and the next Run connects afresh.
func (t *TelegramBot) stopPolling(ctx context.Context, bot *tgbotapi.BotAPI, updates tgbotapi.UpdatesChannel) {
	bot.StopReceivingUpdates()
	// the poller may be blocked on a send; it closes updates once it sees the stop
	go func() {
		for range updates {
		}
	}()

	if ctx.Err() != nil {
		return
	}
	t.mu.Lock()
	if t.bot == bot {
		t.bot = nil
	}
	t.mu.Unlock()
}

func toEvent(update tgbotapi.Update) (Event, bool) {
	if cq := update.CallbackQuery; cq != nil && cq.From != nil {
		ev := Event{
			Kind:         EventCallback,
			UserID:       cq.From.ID,
			ChatID:       cq.From.ID,
			CallbackID:   cq.ID,
			CallbackData: cq.Data,
		}
		if cq.Message != nil {
			ev.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				ev.ChatID = cq.Message.Chat.ID
			}
		}
		return ev, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return Event{}, false
	}
	ev := Event{UserID: msg.From.ID, ChatID: msg.Chat.ID, MessageID: msg.MessageID}

	switch {
	case msg.IsCommand():
		ev.Kind = EventCommand
		ev.Command = msg.Command()
	case len(msg.Photo) > 0:
		ev.Kind = EventPhoto
		// the last size is the largest
		ev.PhotoFileID = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Text != "":
		ev.Kind = EventText
		ev.Text = msg.Text
	default:
		return Event{}, false
	}
	return ev, true
}

func (t *TelegramBot) Send(ctx context.Context, msg models.OutgoingMessage) (int, error) {
	bot, err := t.api()
	if err != nil {
		return 0, err
	}

	m := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	m.ParseMode = tgbotapi.ModeHTML
	m.ReplyToMessageID = msg.ReplyTo
	if markup := replyMarkup(msg); markup != nil {
		m.ReplyMarkup = markup
	}

	sent, err := bot.Send(m)
	if err != nil {
		return 0, fmt.Errorf("send message to %d: %w", msg.ChatID, err)
	}
	return sent.MessageID, nil
}

func (t *TelegramBot) Delete(ctx context.Context, chatID int64, messageID int) error {
	bot, err := t.api()
	if err != nil {
		return err
	}
	_, err = bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (t *TelegramBot) AnswerCallback(ctx context.Context, callbackID string) error {
	bot, err := t.api()
	if err != nil {
		return err
	}
	_, err = bot.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}

func (t *TelegramBot) Download(ctx context.Context, fileID string) ([]byte, error) {
	bot, err := t.api()
	if err != nil {
		return nil, err
	}
	url, err := bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.files.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPhotoSize))
}

func replyMarkup(msg models.OutgoingMessage) interface{} {
	lang := msg.Language

	switch msg.Markup {
	case models.MarkupLanguageMenu:
		var row []tgbotapi.InlineKeyboardButton
		for _, code := range models.SupportedLanguages {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(i18n.LanguageNames[code], models.CallbackLanguagePrefix+code))
		}
		return tgbotapi.NewInlineKeyboardMarkup(row)

	case models.MarkupInputChoice:
		keyboard := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(i18n.Text(lang, i18n.ButtonAddPhoto)),
				tgbotapi.NewKeyboardButton(i18n.Text(lang, i18n.ButtonAddText)),
			),
		)
		keyboard.ResizeKeyboard = true
		return keyboard

	case models.MarkupDonation:
		var rows [][]tgbotapi.InlineKeyboardButton
		if msg.DonateURL != "" {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL(i18n.Text(lang, i18n.ButtonDonate), msg.DonateURL),
			))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(i18n.Text(lang, i18n.ButtonContinueFree), models.CallbackDonateContinue),
		))
		return tgbotapi.NewInlineKeyboardMarkup(rows...)

	case models.MarkupRemoveKeyboard:
		return tgbotapi.NewRemoveKeyboard(true)
	}
	return nil
}

// RunWithRestart calls run until ctx is done, waiting delay after every
// return or panic before the next attempt.
func RunWithRestart(ctx context.Context, delay time.Duration, run func(context.Context) error, logger *logger.Logger) {
	for attempt := 1; ; attempt++ {
		err := runSafely(ctx, run)
		if ctx.Err() != nil {
			return
		}
		logger.Errorw("Bot stopped unexpectedly, restarting", "error", err, "attempt", attempt, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func runSafely(ctx context.Context, run func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return run(ctx)
}
