package bot

import (
	"context"
	"fmt"
	"sync"

	"calorie-bot/pkg/logger"
)

type Handler interface {
	Handle(ctx context.Context, ev Event)
}

// Resetter is implemented by handlers that can drop the conversation state
// left behind by an event whose handling panicked.
type Resetter interface {
	Reset(ev Event)
}

// Dispatcher hands events to a fixed set of workers. All events of a user go
// to the same worker, so they are handled one at a time and in arrival order
// while different users proceed in parallel.
type Dispatcher struct {
	handler Handler
	queues  []chan Event
	wg      sync.WaitGroup
	logger  *logger.Logger
}

func NewDispatcher(handler Handler, workers, queueSize int, logger *logger.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	queues := make([]chan Event, workers)
	for i := range queues {
		queues[i] = make(chan Event, queueSize)
	}
	return &Dispatcher{handler: handler, queues: queues, logger: logger}
}

func (d *Dispatcher) Start(ctx context.Context) {
	for i, q := range d.queues {
		d.wg.Add(1)
		go d.work(ctx, i, q)
	}
}

// Dispatch queues ev, blocking while the user's worker is busy and its queue
// is full. It must not be called after Stop.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	select {
	case d.queues[d.shard(ev.UserID)] <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop lets the workers drain their queues and waits for them.
func (d *Dispatcher) Stop() {
	for _, q := range d.queues {
		close(q)
	}
	d.wg.Wait()
}

func (d *Dispatcher) shard(userID int64) int {
	return int(uint64(userID) % uint64(len(d.queues)))
}

func (d *Dispatcher) work(ctx context.Context, id int, queue <-chan Event) {
	defer d.wg.Done()
	for ev := range queue {
		d.handle(ctx, id, ev)
	}
}

func (d *Dispatcher) handle(ctx context.Context, worker int, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorw("Recovered from panic while processing update",
				"worker", worker, "user_id", ev.UserID, "error", fmt.Sprint(r))
			if resetter, ok := d.handler.(Resetter); ok {
				resetter.Reset(ev)
			}
		}
	}()
	d.handler.Handle(ctx, ev)
}
