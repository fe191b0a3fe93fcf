// Package scheduler runs the daily summary broadcast.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"calorie-bot/internal/donation"
	"calorie-bot/internal/format"
	"calorie-bot/internal/i18n"
	"calorie-bot/internal/metrics"
	"calorie-bot/internal/models"
	"calorie-bot/pkg/logger"
)

type Storage interface {
	GetLanguage(ctx context.Context, userID int64) (string, error)
	AllDailyTotals(ctx context.Context, date time.Time) ([]models.DailyTotal, error)
	GetFirstUse(ctx context.Context, userID int64) (*time.Time, error)
	GetLastDonationPrompt(ctx context.Context, userID int64) (*time.Time, error)
	SetLastDonationPrompt(ctx context.Context, userID int64, date time.Time) error
}

type Sender interface {
	Send(ctx context.Context, msg models.OutgoingMessage) (int, error)
}

// Summarizer writes the body of a non-empty daily summary.
type Summarizer interface {
	SummarizeDay(ctx context.Context, lang string, total int) (string, error)
}

// Report counts what one broadcast run did.
type Report struct {
	RunID     string
	Users     int
	Summaries int
	Failed    int
	Prompts   int
}

type Broadcaster struct {
	store      Storage
	sender     Sender
	summarizer Summarizer
	links      *donation.Links
	limiter    *rate.Limiter
	logger     *logger.Logger
}

func NewBroadcaster(store Storage, sender Sender, logger *logger.Logger) *Broadcaster {
	return &Broadcaster{
		store:   store,
		sender:  sender,
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  logger,
	}
}

func (b *Broadcaster) WithSummarizer(s Summarizer) *Broadcaster {
	b.summarizer = s
	return b
}

// WithDonationLinks makes donation prompts carry a per-user checkout link.
// fallbackURL is used when the link cannot be created.
func (b *Broadcaster) WithDonationLinks(linker donation.Linker, fallbackURL string) *Broadcaster {
	b.links = donation.NewLinks(linker, fallbackURL)
	return b
}

func (b *Broadcaster) WithDonationURL(url string) *Broadcaster {
	b.links = donation.NewLinks(nil, url)
	return b
}

// WithRateLimit caps outgoing messages per second across the run.
func (b *Broadcaster) WithRateLimit(perSecond float64, burst int) *Broadcaster {
	if perSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return b
}

// RunOnce sends the summary for today to every user with recorded activity and
// a donation prompt to those due one. A failure for one user is logged and the
// run moves on; only the initial enumeration and cancellation abort it.
func (b *Broadcaster) RunOnce(ctx context.Context, today time.Time) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString()}
	log := b.logger.With("run_id", report.RunID)

	totals, err := b.store.AllDailyTotals(ctx, today)
	if err != nil {
		return report, fmt.Errorf("list daily totals: %w", err)
	}
	log.Infow("Starting daily broadcast", "users", len(totals), "date", today.Format(models.DateLayout))

	for _, t := range totals {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Users++

		lang, err := b.store.GetLanguage(ctx, t.UserID)
		if err != nil {
			log.Warnw("Failed to get language, using default", "user_id", t.UserID, "error", err)
			lang = models.DefaultLanguage
		}

		if err := b.sendSummary(ctx, t, lang); err != nil {
			report.Failed++
			log.Errorw("Failed to send daily summary", "user_id", t.UserID, "error", err)
		} else {
			report.Summaries++
		}

		prompted, err := b.maybePrompt(ctx, t.UserID, lang, today)
		if err != nil {
			log.Errorw("Failed to process donation prompt", "user_id", t.UserID, "error", err)
		}
		if prompted {
			report.Prompts++
		}
	}

	metrics.RecordBroadcastRun(time.Since(start))
	log.Infow("Daily broadcast finished",
		"users", report.Users,
		"summaries", report.Summaries,
		"failed", report.Failed,
		"prompts", report.Prompts,
		"duration", time.Since(start))
	return report, nil
}

func (b *Broadcaster) sendSummary(ctx context.Context, t models.DailyTotal, lang string) error {
	body := i18n.Text(lang, i18n.NoEntries)
	if t.Total > 0 {
		body = b.summaryBody(ctx, t, lang)
	}

	err := b.send(ctx, models.OutgoingMessage{
		ChatID: t.UserID,
		Text:   i18n.Text(lang, i18n.DailySummary) + body,
	})
	metrics.RecordBroadcastMessage("summary", err == nil)
	return err
}

func (b *Broadcaster) summaryBody(ctx context.Context, t models.DailyTotal, lang string) string {
	if b.summarizer != nil {
		text, err := b.summarizer.SummarizeDay(ctx, lang, t.Total)
		if err == nil {
			return format.NutritionHTML(text)
		}
		b.logger.Warnw("Failed to write summary, using template", "user_id", t.UserID, "error", err)
	}
	return i18n.ApproximateTotal(lang, t.Total)
}

func (b *Broadcaster) maybePrompt(ctx context.Context, userID int64, lang string, today time.Time) (bool, error) {
	firstUse, err := b.store.GetFirstUse(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("get first use: %w", err)
	}
	if firstUse == nil {
		return false, nil
	}
	lastPrompt, err := b.store.GetLastDonationPrompt(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("get last donation prompt: %w", err)
	}
	if !donation.ShouldPrompt(firstUse, lastPrompt, today) {
		return false, nil
	}

	url, err := b.links.URL(ctx, userID, today)
	if err != nil {
		b.logger.Warnw("Failed to create donation link, using fallback", "user_id", userID, "error", err)
	}
	if url == "" {
		b.logger.Warnw("Donation prompt due but no donation link configured", "user_id", userID)
		return false, nil
	}

	err = b.send(ctx, models.OutgoingMessage{
		ChatID:    userID,
		Text:      i18n.Text(lang, i18n.DonationPrompt),
		Markup:    models.MarkupDonation,
		Language:  lang,
		DonateURL: url,
	})
	metrics.RecordBroadcastMessage("donation", err == nil)
	if err != nil {
		return false, fmt.Errorf("send donation prompt: %w", err)
	}

	if err := b.store.SetLastDonationPrompt(ctx, userID, today); err != nil {
		return true, fmt.Errorf("record donation prompt: %w", err)
	}
	return true, nil
}

func (b *Broadcaster) send(ctx context.Context, msg models.OutgoingMessage) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := b.sender.Send(ctx, msg)
	return err
}
