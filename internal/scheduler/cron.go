package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"calorie-bot/config"
	"calorie-bot/pkg/logger"
)

// Daily triggers a Broadcaster once a day at the configured local time.
type Daily struct {
	cron        *cron.Cron
	broadcaster *Broadcaster
	location    *time.Location
	logger      *logger.Logger
	timeout     time.Duration

	mu  sync.Mutex
	ctx context.Context
}

func NewDaily(cfg config.Scheduler, broadcaster *Broadcaster, logger *logger.Logger) (*Daily, error) {
	hour, minute, err := cfg.Clock()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	cl := cronLogger{logger}
	d := &Daily{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		broadcaster: broadcaster,
		location:    loc,
		logger:      logger,
		timeout:     2 * time.Hour,
		ctx:         context.Background(),
	}

	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	if _, err := d.cron.AddFunc(spec, d.run); err != nil {
		return nil, fmt.Errorf("schedule daily summary %q: %w", spec, err)
	}
	return d, nil
}

// Next reports when the broadcast fires next after t.
func (d *Daily) Next(t time.Time) time.Time {
	entries := d.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(t)
}

// Start runs the schedule in the background. Runs triggered after ctx is done
// are skipped.
func (d *Daily) Start(ctx context.Context) {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()

	d.cron.Start()
	d.logger.Infow("Daily summary scheduled", "next", d.Next(time.Now().In(d.location)))
}

// Stop stops the schedule and waits for a running broadcast until ctx is done.
func (d *Daily) Stop(ctx context.Context) error {
	select {
	case <-d.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Daily) run() {
	d.mu.Lock()
	parent := d.ctx
	d.mu.Unlock()
	if parent.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	if _, err := d.broadcaster.RunOnce(ctx, time.Now().In(d.location)); err != nil {
		d.logger.Errorw("Daily broadcast failed", "error", err)
	}
}

// cronLogger routes cron's own logging into zap.
type cronLogger struct {
	logger *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
