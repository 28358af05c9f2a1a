// Package server exposes the review pipeline over a JSON HTTP API.
package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"github.com/Shin-ichiroh/Manuscript-review/internal/history"
	"github.com/Shin-ichiroh/Manuscript-review/internal/logger"
	"github.com/Shin-ichiroh/Manuscript-review/internal/pipeline"
	"github.com/Shin-ichiroh/Manuscript-review/internal/posting"
)

const (
	defaultAddress       = "127.0.0.1:8080"
	defaultReviewTimeout = 2 * time.Minute
	defaultHistoryLimit  = 20
	shutdownTimeout      = 5 * time.Second
)

// Processor runs postings through the review pipeline.
type Processor interface {
	ProcessURL(ctx context.Context, pageURL string) *pipeline.Outcome
	ProcessRecord(ctx context.Context, record posting.Record) *pipeline.Outcome
}

// HistoryStore persists review outcomes.
type HistoryStore interface {
	Append(outcome *pipeline.Outcome) (*history.Entry, error)
	List(limit int) ([]*history.Entry, error)
}

type Config struct {
	Address string
	// ReviewTimeout bounds a single review request.
	ReviewTimeout time.Duration
	Debug         bool
}

// Server is the HTTP front end of the review pipeline.
type Server struct {
	h             *server.Hertz
	processor     Processor
	history       HistoryStore
	reviewTimeout time.Duration
	logger        *zap.Logger
}

type reviewRequest struct {
	URL        string         `json:"url"`
	Posting    map[string]any `json:"posting"`
	Save       *bool          `json:"save"`
	ShowPrompt bool           `json:"show_prompt"`
}

type reviewResponse struct {
	ID      string            `json:"id,omitempty"`
	Outcome *pipeline.Outcome `json:"outcome"`
}

// New builds a Server. A nil store disables history.
func New(cfg Config, processor Processor, store HistoryStore, l *zap.Logger) *Server {
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}
	if cfg.ReviewTimeout <= 0 {
		cfg.ReviewTimeout = defaultReviewTimeout
	}

	if cfg.Debug {
		hlog.SetLevel(hlog.LevelDebug)
	} else {
		hlog.SetLevel(hlog.LevelWarn)
	}

	s := &Server{
		h:             server.New(server.WithHostPorts(cfg.Address), server.WithHandleMethodNotAllowed(true)),
		processor:     processor,
		history:       store,
		reviewTimeout: cfg.ReviewTimeout,
		logger:        logger.OrNop(l),
	}
	s.routes()

	return s
}

func (s *Server) routes() {
	s.h.Use(func(ctx context.Context, c *app.RequestContext) {
		started := time.Now()
		c.Next(ctx)
		s.logger.Debug("http request",
			zap.String("method", string(c.Method())),
			zap.String("path", string(c.Path())),
			zap.Int("status", c.Response.StatusCode()),
			zap.Duration("duration", time.Since(started)),
		)
	})

	api := s.h.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.POST("/review", s.handleReview)
	api.GET("/history", s.handleHistory)
}

// Run serves until ctx is cancelled, then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.h.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.h.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(_ context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{"status": "ok"})
}

func (s *Server) handleReview(ctx context.Context, c *app.RequestContext) {
	var req reviewRequest
	if len(c.Request.Body()) == 0 {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "request body is required"})
		return
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body: " + err.Error()})
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" && len(req.Posting) == 0 {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "either url or posting is required"})
		return
	}

	reviewCtx, cancel := context.WithTimeout(ctx, s.reviewTimeout)
	defer cancel()

	var outcome *pipeline.Outcome
	if len(req.Posting) > 0 {
		record, err := posting.FromMap(req.Posting)
		if err != nil {
			c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid posting: " + err.Error()})
			return
		}
		if record.URL == "" {
			record.URL = req.URL
		}
		outcome = s.processor.ProcessRecord(reviewCtx, *record)
	} else {
		outcome = s.processor.ProcessURL(reviewCtx, req.URL)
	}

	resp := reviewResponse{Outcome: outcome}

	if s.history != nil && (req.Save == nil || *req.Save) {
		entry, err := s.history.Append(outcome)
		if err != nil {
			s.logger.Error("saving review to history", zap.Error(err))
		} else {
			resp.ID = entry.ID
		}
	}

	if !req.ShowPrompt && outcome.Review != nil {
		r := *outcome.Review
		r.Prompt = ""
		outcome.Review = &r
	}

	c.JSON(consts.StatusOK, resp)
}

func (s *Server) handleHistory(_ context.Context, c *app.RequestContext) {
	if s.history == nil {
		c.JSON(consts.StatusNotFound, utils.H{"error": "history is disabled"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(consts.StatusBadRequest, utils.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := s.history.List(limit)
	if err != nil {
		s.logger.Error("reading history", zap.Error(err))
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "reading history failed"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{"items": entries, "count": len(entries)})
}
