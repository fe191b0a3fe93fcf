package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	"calorie-bot/internal/classifier"
	"calorie-bot/internal/donation"
	"calorie-bot/internal/format"
	"calorie-bot/internal/i18n"
	"calorie-bot/internal/metrics"
	"calorie-bot/internal/models"
	"calorie-bot/internal/session"
	"calorie-bot/pkg/logger"
)

type EventKind int

const (
	EventCommand EventKind = iota
	EventCallback
	EventText
	EventPhoto
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventCallback:
		return "callback"
	case EventText:
		return "text"
	case EventPhoto:
		return "photo"
	}
	return "unknown"
}

// Event is one inbound update, stripped of transport details.
type Event struct {
	Kind      EventKind
	UserID    int64
	ChatID    int64
	MessageID int
	// Command is set for EventCommand, without the leading slash.
	Command      string
	Text         string
	PhotoFileID  string
	CallbackID   string
	CallbackData string
}

func (e Event) key() session.Key {
	return session.Key{UserID: e.UserID, ChatID: e.ChatID}
}

type Storage interface {
	GetLanguage(ctx context.Context, userID int64) (string, error)
	SetLanguage(ctx context.Context, userID int64, lang string) error
	AppendFoodEntry(ctx context.Context, userID int64, calories int, at time.Time) error
	DailyTotal(ctx context.Context, userID int64, date time.Time) (int, error)
	RecordFirstUse(ctx context.Context, userID int64, date time.Time) error
}

type Analyzer interface {
	Describe(ctx context.Context, lang string, image []byte) (string, error)
	Estimate(ctx context.Context, lang, description string) (string, error)
}

// Messenger is the outbound side of the transport.
type Messenger interface {
	Send(ctx context.Context, msg models.OutgoingMessage) (int, error)
	Delete(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID string) error
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Router is the conversation state machine. It expects the events of one user
// to arrive one at a time; see Dispatcher.
type Router struct {
	sessions  *session.Store
	store     Storage
	analyzer  Analyzer
	messenger Messenger
	links     *donation.Links
	now       func() time.Time
	logger    *logger.Logger
}

func NewRouter(sessions *session.Store, store Storage, analyzer Analyzer, messenger Messenger, logger *logger.Logger) *Router {
	return &Router{
		sessions:  sessions,
		store:     store,
		analyzer:  analyzer,
		messenger: messenger,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock sets the source of the current time, which decides the diary date.
func (r *Router) WithClock(now func() time.Time) *Router {
	r.now = now
	return r
}

// WithDonationLinks enables the /donate command.
func (r *Router) WithDonationLinks(links *donation.Links) *Router {
	r.links = links
	return r
}

// turn carries what every handler needs for one event.
type turn struct {
	ctx  context.Context
	ev   Event
	key  session.Key
	lang string
	log  *logger.Logger
}

func (r *Router) Handle(ctx context.Context, ev Event) {
	metrics.RecordUpdate(ev.Kind.String())

	t := &turn{
		ctx: ctx,
		ev:  ev,
		key: ev.key(),
		log: r.logger.With("user_id", ev.UserID, "chat_id", ev.ChatID),
	}
	t.lang = r.language(t)
	t.log.Debugw("Handling event", "kind", ev.Kind.String(), "state", r.sessions.Get(t.key))

	switch ev.Kind {
	case EventCommand:
		r.handleCommand(t)
	case EventCallback:
		r.handleCallback(t)
	case EventPhoto:
		r.handlePhoto(t)
	case EventText:
		r.handleText(t)
	}
}

// Reset returns the conversation of ev to idle. The dispatcher calls it when
// handling ev panicked.
func (r *Router) Reset(ev Event) {
	r.sessions.Clear(ev.key())
}

func (r *Router) language(t *turn) string {
	lang, err := r.store.GetLanguage(t.ctx, t.ev.UserID)
	if err != nil {
		t.log.Warnw("Failed to get language, using default", "error", err)
		return models.DefaultLanguage
	}
	return lang
}

func (r *Router) handleCommand(t *turn) {
	switch t.ev.Command {
	case "start", "language":
		r.reply(t, i18n.Text(t.lang, i18n.ChooseLanguage), models.MarkupLanguageMenu)
	case "help":
		r.reply(t, i18n.Text(t.lang, i18n.Help), models.MarkupNone)
	case "donate":
		r.offerDonation(t)
	default:
		r.showMenu(t)
	}
}

func (r *Router) handleCallback(t *turn) {
	if err := r.messenger.AnswerCallback(t.ctx, t.ev.CallbackID); err != nil {
		t.log.Warnw("Failed to answer callback", "error", err)
	}

	data := t.ev.CallbackData
	switch {
	case strings.HasPrefix(data, models.CallbackLanguagePrefix):
		r.selectLanguage(t, strings.TrimPrefix(data, models.CallbackLanguagePrefix))
	case data == models.CallbackDonateContinue:
		if err := r.messenger.Delete(t.ctx, t.ev.ChatID, t.ev.MessageID); err != nil {
			t.log.Warnw("Failed to delete donation prompt", "error", err)
		}
		if r.sessions.Get(t.key) == session.StateAwaitingDonationResponse {
			r.sessions.Clear(t.key)
		}
	default:
		t.log.Warnw("Unknown callback", "data", data)
	}
}

func (r *Router) selectLanguage(t *turn, code string) {
	if !models.IsSupportedLanguage(code) {
		t.log.Warnw("Unsupported language selected", "language", code)
		return
	}
	if err := r.store.SetLanguage(t.ctx, t.ev.UserID, code); err != nil {
		t.log.Errorw("Failed to save language", "error", err)
		r.reply(t, i18n.Text(t.lang, i18n.Error), models.MarkupNone)
		return
	}
	t.lang = code
	t.log.Infow("Language set", "language", code)

	r.sessions.Clear(t.key)
	if r.reply(t, i18n.Text(code, i18n.LanguageSet), models.MarkupNone) != nil {
		return
	}
	r.reply(t, i18n.Text(code, i18n.Welcome), models.MarkupInputChoice)
}

func (r *Router) handleText(t *turn) {
	text := t.ev.Text

	switch {
	case i18n.IsButton(text, i18n.ButtonAddPhoto):
		r.sessions.Clear(t.key)
		r.reply(t, i18n.Text(t.lang, i18n.SendPhoto), models.MarkupNone)
		return
	case i18n.IsButton(text, i18n.ButtonAddText):
		r.sessions.Set(t.key, session.StateAwaitingFoodText)
		if r.reply(t, i18n.Text(t.lang, i18n.TextInput), models.MarkupNone) != nil {
			r.sessions.Clear(t.key)
		}
		return
	}

	switch r.sessions.Get(t.key) {
	case session.StateAwaitingCalories:
		r.saveCalories(t, text)
	case session.StateAwaitingFoodText:
		r.analyzeText(t, text)
	default:
		if classifier.LooksLikeFood(text) {
			r.analyzeText(t, text)
			return
		}
		r.sessions.Clear(t.key)
		r.showMenu(t)
	}
}

func (r *Router) analyzeText(t *turn, text string) {
	r.recordFirstUse(t)
	start := time.Now()

	if r.reply(t, i18n.Text(t.lang, i18n.AnalyzingText), models.MarkupNone) != nil {
		r.sessions.Clear(t.key)
		return
	}

	estimate, err := r.analyzer.Estimate(t.ctx, t.lang, text)
	metrics.RecordAnalysis("text", time.Since(start), err == nil)
	if err != nil {
		r.abort(t, "Failed to estimate food description", err)
		return
	}

	r.offerCalories(t, estimate)
}

func (r *Router) handlePhoto(t *turn) {
	r.recordFirstUse(t)
	start := time.Now()

	if r.reply(t, i18n.Text(t.lang, i18n.Analyzing), models.MarkupNone) != nil {
		r.sessions.Clear(t.key)
		return
	}

	description, err := r.describePhoto(t)
	if err != nil {
		metrics.RecordAnalysis("photo", time.Since(start), false)
		r.abort(t, "Failed to analyze food photo", err)
		return
	}
	if r.reply(t, i18n.Text(t.lang, i18n.FoodAnalysis)+format.NutritionHTML(description), models.MarkupNone) != nil {
		r.sessions.Clear(t.key)
		return
	}

	estimate, err := r.analyzer.Estimate(t.ctx, t.lang, description)
	metrics.RecordAnalysis("photo", time.Since(start), err == nil)
	if err != nil {
		r.abort(t, "Failed to estimate food photo", err)
		return
	}

	r.offerCalories(t, estimate)
}

func (r *Router) describePhoto(t *turn) (string, error) {
	image, err := r.messenger.Download(t.ctx, t.ev.PhotoFileID)
	if err != nil {
		return "", err
	}
	return r.analyzer.Describe(t.ctx, t.lang, image)
}

// offerCalories shows the estimate and waits for the user to type the calories.
func (r *Router) offerCalories(t *turn, estimate string) {
	text := i18n.Text(t.lang, i18n.NutritionalValues) +
		format.NutritionHTML(estimate) +
		i18n.Text(t.lang, i18n.ApproximateNote)
	if r.reply(t, text, models.MarkupNone) != nil {
		r.sessions.Clear(t.key)
		return
	}
	if r.reply(t, i18n.Text(t.lang, i18n.SaveCalories), models.MarkupRemoveKeyboard) != nil {
		r.sessions.Clear(t.key)
		return
	}
	r.sessions.Set(t.key, session.StateAwaitingCalories)
}

func (r *Router) saveCalories(t *turn, text string) {
	calories, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || calories <= 0 {
		r.reply(t, i18n.Text(t.lang, i18n.InvalidCalories), models.MarkupNone)
		return
	}

	now := r.now()
	if err := r.store.AppendFoodEntry(t.ctx, t.ev.UserID, calories, now); err != nil {
		r.abort(t, "Failed to save food entry", err)
		return
	}
	metrics.RecordEntry()
	r.sessions.Clear(t.key)
	t.log.Infow("Food entry saved", "calories", calories)

	total, err := r.store.DailyTotal(t.ctx, t.ev.UserID, now)
	if err != nil {
		t.log.Errorw("Failed to read daily total", "error", err)
		r.reply(t, i18n.Text(t.lang, i18n.CaloriesSaved), models.MarkupInputChoice)
		return
	}
	r.reply(t, i18n.CaloriesAdded(t.lang, calories, total), models.MarkupInputChoice)
}

func (r *Router) offerDonation(t *turn) {
	url, err := r.links.URL(t.ctx, t.ev.UserID, r.now())
	if err != nil {
		t.log.Warnw("Failed to create donation link, using fallback", "error", err)
	}
	if url == "" {
		r.showMenu(t)
		return
	}

	_, err = r.messenger.Send(t.ctx, models.OutgoingMessage{
		ChatID:    t.ev.ChatID,
		Text:      i18n.Text(t.lang, i18n.DonationPrompt),
		Markup:    models.MarkupDonation,
		Language:  t.lang,
		DonateURL: url,
	})
	if err != nil {
		t.log.Errorw("Failed to send donation prompt", "error", err)
		return
	}
	r.sessions.Set(t.key, session.StateAwaitingDonationResponse)
}

func (r *Router) showMenu(t *turn) {
	r.reply(t, i18n.Text(t.lang, i18n.Welcome), models.MarkupInputChoice)
}

func (r *Router) recordFirstUse(t *turn) {
	if err := r.store.RecordFirstUse(t.ctx, t.ev.UserID, r.now()); err != nil {
		t.log.Warnw("Failed to record first use", "error", err)
	}
}

// abort ends the current flow with an error message.
func (r *Router) abort(t *turn, msg string, err error) {
	t.log.Errorw(msg, "error", err, "state", r.sessions.Get(t.key))
	r.sessions.Clear(t.key)
	r.reply(t, i18n.Text(t.lang, i18n.Error), models.MarkupNone)
}

func (r *Router) reply(t *turn, text string, markup models.Markup) error {
	_, err := r.messenger.Send(t.ctx, models.OutgoingMessage{
		ChatID:   t.ev.ChatID,
		Text:     text,
		Markup:   markup,
		Language: t.lang,
	})
	if err != nil {
		t.log.Errorw("Failed to send message", "error", err)
	}
	return err
}
