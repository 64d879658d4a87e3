package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/territorio/internal/logging"
)

// LockPrefix namespaces per-phone locks in Redis.
const LockPrefix = "bot:lock:"

// MessageHandler consumes one webhook event.
type MessageHandler interface {
	HandleIncomingMessage(ctx context.Context, ev Event) error
}

// DaemonOpts holds parameters for creating a Daemon.
type DaemonOpts struct {
	Handler   MessageHandler
	Locker    *redislock.Client // nil leaves messages of one phone unserialized
	LockTTL   time.Duration     // default 30s
	InboxSize int               // default 256
	Logger    logrus.FieldLogger
}

// Daemon hands webhook events to the bot, each in its own goroutine.
type Daemon struct {
	handler MessageHandler
	locker  *redislock.Client
	lockTTL time.Duration
	inbox   chan Event
	log     logrus.FieldLogger
	wg      sync.WaitGroup
}

// NewDaemon creates a Daemon.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Handler == nil {
		return nil, fmt.Errorf("bot: daemon: handler is required")
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = 256
	}
	return &Daemon{
		handler: opts.Handler,
		locker:  opts.Locker,
		lockTTL: opts.LockTTL,
		inbox:   make(chan Event, opts.InboxSize),
		log:     logging.Component(opts.Logger, "daemon"),
	}, nil
}

// Submit queues ev without blocking. It reports false when the inbox is
// full and the event was dropped.
func (d *Daemon) Submit(ev Event) bool {
	select {
	case d.inbox <- ev:
		return true
	default:
		d.log.WithField("phone", ev.Phone()).Warn("inbox full, event dropped")
		return false
	}
}

// Run dispatches queued events until ctx is cancelled, then waits for the
// handlers already started. Handlers run with a context detached from ctx
// so a shutdown never aborts a ledger transaction midway.
func (d *Daemon) Run(ctx context.Context) error {
	d.log.Info("bot daemon started")
	work := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			d.log.Info("bot daemon stopped")
			return nil
		case ev := <-d.inbox:
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.handle(work, ev)
			}()
		}
	}
}

func (d *Daemon) handle(ctx context.Context, ev Event) {
	phone := ev.Phone()
	log := d.log.WithFields(logrus.Fields{"phone": phone, "instance": ev.InstanceName()})

	if d.locker != nil && phone != "" {
		lock := d.obtain(ctx, phone, log)
		if lock != nil {
			defer func() {
				if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
					log.WithError(err).Warn("release phone lock")
				}
			}()
		}
	}

	if err := d.handler.HandleIncomingMessage(ctx, ev); err != nil {
		log.WithError(err).Error("handle message")
	}
}

// obtain waits up to the lock TTL for the phone's lock. When it cannot be
// had the message is handled anyway.
func (d *Daemon) obtain(ctx context.Context, phone string, log logrus.FieldLogger) *redislock.Lock {
	lockCtx, cancel := context.WithTimeout(ctx, d.lockTTL)
	defer cancel()
	lock, err := d.locker.Obtain(lockCtx, LockPrefix+phone, d.lockTTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(50 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		log.Warn("could not obtain phone lock; proceeding without lock")
		return nil
	}
	if err != nil {
		log.WithError(err).Warn("error obtaining phone lock; proceeding without lock")
		return nil
	}
	return lock
}
