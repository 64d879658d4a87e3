// Package server exposes the Evolution webhook, a health check and the
// JWT-protected admin API over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/territorio/internal/bot"
	"github.com/zulandar/territorio/internal/ledger"
	"github.com/zulandar/territorio/internal/logging"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "territorio-bot-server"

// Submitter accepts webhook events for asynchronous handling.
type Submitter interface {
	Submit(ev bot.Event) bool
}

// StartOpts holds configuration for the HTTP server.
type StartOpts struct {
	Ledger    *ledger.Ledger
	Inbox     Submitter
	JWTSecret string
	Port      int
	Logger    logrus.FieldLogger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.Ledger == nil {
		return nil, fmt.Errorf("server: ledger is required")
	}
	if opts.Inbox == nil {
		return nil, fmt.Errorf("server: inbox is required")
	}
	if opts.JWTSecret == "" {
		return nil, fmt.Errorf("server: jwt secret is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	h := &handlers{
		ledger: opts.Ledger,
		inbox:  opts.Inbox,
		log:    logging.Component(opts.Logger, "server"),
	}
	registerRoutes(router, h, []byte(opts.JWTSecret))
	return router, nil
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}
	if opts.Port <= 0 {
		opts.Port = 3333
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	logging.Component(opts.Logger, "server").WithField("port", opts.Port).Info("http server listening")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
