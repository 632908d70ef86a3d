package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"mexc-trader/internal/store"
	"mexc-trader/internal/trading"
)

// tradesPageLimit caps the /api/trades response size.
const tradesPageLimit = 50

// Server serves the read-only HTTP surface: status snapshot, trade history,
// health and metrics. It never mutates bot state.
type Server struct {
	status    *trading.StatusBuilder
	store     store.Store
	accountID string
	logger    zerolog.Logger
	http      *http.Server
}

// New creates a Server listening on addr.
func New(addr string, status *trading.StatusBuilder, s store.Store, accountID string, logger zerolog.Logger) *Server {
	srv := &Server{
		status:    status,
		store:     s,
		accountID: accountID,
		logger:    logger.With().Str("component", "server").Logger(),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), srv.requestLogger())

	router.GET("/healthz", srv.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/status", srv.handleStatus)
		api.GET("/trades", srv.handleTrades)
	}

	srv.http = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return srv
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("http server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	snapshot, err := s.status.Build(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("status snapshot failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "status unavailable"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleTrades(c *gin.Context) {
	trades, err := s.store.ListRecentPositions(c.Request.Context(), s.accountID, tradesPageLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("listing trades failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "trades unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}
