package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zulandar/territorio/internal/bot"
	"github.com/zulandar/territorio/internal/config"
	"github.com/zulandar/territorio/internal/db"
	"github.com/zulandar/territorio/internal/dialog"
	"github.com/zulandar/territorio/internal/ledger"
	"github.com/zulandar/territorio/internal/logging"
	"github.com/zulandar/territorio/internal/reminder"
	"github.com/zulandar/territorio/internal/server"
	"github.com/zulandar/territorio/internal/whatsapp"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		migrate    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server, bot and reminder poller",
		Long:  "Starts the HTTP server (Evolution webhook and admin API), the bot daemon and the reminder poller. Stops on SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, migrate)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to territorio config file")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run database migrations before starting")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, migrate bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB(gormDB)
	if migrate {
		if err := db.AutoMigrate(gormDB); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr(), err)
	}

	svc, err := buildServices(cfg, ledger.New(gormDB), rdb, log)
	if err != nil {
		return err
	}

	log.WithField("version", Version).Info("territorio starting")
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.daemon.Run(ctx) })
	g.Go(func() error { return svc.poller.Run(ctx) })
	g.Go(func() error {
		return server.Start(ctx, server.StartOpts{
			Ledger:    svc.ledger,
			Inbox:     svc.daemon,
			JWTSecret: cfg.Auth.JWTSecret,
			Port:      cfg.Server.Port,
			Logger:    log,
		})
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("territorio stopped")
	return nil
}

type services struct {
	ledger *ledger.Ledger
	bot    *bot.Bot
	daemon *bot.Daemon
	poller *reminder.Poller
}

// buildServices wires the bot, its daemon and the reminder poller on top of
// the ledger and the Redis client.
func buildServices(cfg *config.Config, l *ledger.Ledger, rdb *redis.Client, log logrus.FieldLogger) (*services, error) {
	gateway, err := whatsapp.NewEvolution(whatsapp.EvolutionOpts{
		BaseURL: cfg.Evolution.APIURL,
		Timeout: time.Duration(cfg.Evolution.TimeoutSec) * time.Second,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	queue := reminder.NewRedisQueue(rdb, reminder.DefaultKey, nil)
	b, err := bot.New(bot.Opts{
		Ledger:    l,
		Store:     dialog.NewRedisStore(rdb, time.Duration(cfg.Bot.StateTTLSec)*time.Second, log),
		Gateway:   gateway,
		Scheduler: queue,
		Config:    cfg.Bot,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	var locker *redislock.Client
	if cfg.Bot.SerializePerPhone {
		locker = redislock.New(rdb)
	}
	daemon, err := bot.NewDaemon(bot.DaemonOpts{
		Handler:   b,
		Locker:    locker,
		InboxSize: cfg.Bot.InboxSize,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	poller, err := reminder.NewPoller(reminder.PollerOpts{
		Queue:     queue,
		Handler:   b,
		Schedule:  cfg.Reminder.PollCron,
		BatchSize: cfg.Reminder.BatchSize,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	return &services{ledger: l, bot: b, daemon: daemon, poller: poller}, nil
}
