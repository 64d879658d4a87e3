package reminder

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/territorio/internal/logging"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Handler runs one due task.
type Handler interface {
	HandleReminder(ctx context.Context, task Task) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, task Task) error

// HandleReminder calls f.
func (f HandlerFunc) HandleReminder(ctx context.Context, task Task) error {
	return f(ctx, task)
}

// PollerOpts configures a Poller.
type PollerOpts struct {
	Queue     *RedisQueue
	Handler   Handler
	Schedule  string // 5-field cron expression, default every minute
	BatchSize int
	Logger    logrus.FieldLogger
}

// Poller drains due tasks from the queue on a cron schedule.
type Poller struct {
	queue     *RedisQueue
	handler   Handler
	schedule  string
	batchSize int
	log       logrus.FieldLogger
}

// NewPoller validates opts and returns a Poller.
func NewPoller(opts PollerOpts) (*Poller, error) {
	if opts.Queue == nil {
		return nil, fmt.Errorf("reminder: queue is required")
	}
	if opts.Handler == nil {
		return nil, fmt.Errorf("reminder: handler is required")
	}
	if opts.Schedule == "" {
		opts.Schedule = "* * * * *"
	}
	if _, err := cronParser.Parse(opts.Schedule); err != nil {
		return nil, fmt.Errorf("reminder: invalid schedule %q: %w", opts.Schedule, err)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	return &Poller{
		queue:     opts.Queue,
		handler:   opts.Handler,
		schedule:  opts.Schedule,
		batchSize: opts.BatchSize,
		log:       logging.Component(opts.Logger, "reminder"),
	}, nil
}

// Run polls on the schedule until ctx is cancelled, then waits for a poll
// in progress to finish.
func (p *Poller) Run(ctx context.Context) error {
	c := cron.New(cron.WithParser(cronParser))
	if _, err := c.AddFunc(p.schedule, func() {
		if _, err := p.PollOnce(ctx); err != nil {
			p.log.WithError(err).Error("poll failed")
		}
	}); err != nil {
		return fmt.Errorf("reminder: schedule poller: %w", err)
	}

	entry := p.log.WithField("schedule", p.schedule)
	if n, err := p.queue.Pending(ctx); err == nil {
		entry = entry.WithField("pending", n)
	}
	entry.Info("reminder poller started")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	p.log.Info("reminder poller stopped")
	return nil
}

// PollOnce handles every task due now and returns how many ran. A failing
// task is logged and dropped; the others still run.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	handled := 0
	for {
		tasks, err := p.queue.Due(ctx, p.batchSize)
		if err != nil {
			return handled, err
		}
		for _, t := range tasks {
			if err := p.handler.HandleReminder(ctx, t); err != nil {
				p.log.WithFields(logrus.Fields{
					"task_id":       t.ID,
					"assignment_id": t.AssignmentID,
				}).WithError(err).Error("reminder task failed")
				continue
			}
			handled++
		}
		if len(tasks) < p.batchSize {
			return handled, nil
		}
	}
}
