// Package api exposes fundraisers, donations, reports and moderation over
// HTTP with JSON bodies.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"raisefunds/config"
	"raisefunds/logger"
	"raisefunds/payments"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg       config.ServerConfig
	db        *gorm.DB
	donations *payments.Service
	verifier  *payments.Verifier // nil when no chain node is configured
	now       func() time.Time
}

func NewServer(cfg config.ServerConfig, db *gorm.DB, donations *payments.Service, verifier *payments.Verifier) *Server {
	return &Server{
		cfg:       cfg,
		db:        db,
		donations: donations,
		verifier:  verifier,
		now:       time.Now,
	}
}

// Run serves HTTP on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout(),
		WriteTimeout: s.cfg.WriteTimeout(),
		IdleTimeout:  s.cfg.IdleTimeout(),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening on %s", s.cfg.Address)
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return errors.Wrap(err, "ListenAndServe")

	case <-ctx.Done():
		logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "Shutdown")
		}
		return nil
	}
}
