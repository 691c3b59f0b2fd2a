// Package api exposes the extraction pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fscner/internal"
	"fscner/internal/pipeline"
	"fscner/internal/storage"
)

const maxBatchRows = 500

type Server struct {
	proc   *pipeline.ProcessingService
	db     *storage.DB
	logger *slog.Logger
}

// NewServer builds the HTTP surface. db may be nil; /v1/runs then returns 404.
func NewServer(proc *pipeline.ProcessingService, db *storage.DB, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{proc: proc, db: db, logger: logger}
}

type extractRequest struct {
	Text string `json:"text" binding:"required"`
}

type batchRequest struct {
	Rows []string `json:"rows" binding:"required"`
}

type batchResponse struct {
	Companies []internal.CompanyView `json:"companies"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.handleHealth)
	v1 := r.Group("/v1")
	v1.POST("/extract", s.handleExtract)
	v1.POST("/extract/batch", s.handleExtractBatch)
	if s.db != nil {
		v1.GET("/runs", s.handleRuns)
	}
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleExtract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "body must be {\"text\": \"...\"} with non-empty text"})
		return
	}

	companies, err := s.proc.ProcessRows(c.Request.Context(), []string{req.Text})
	if err != nil {
		s.recognizerFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, companies[0].View())
}

func (s *Server) handleExtractBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "body must be {\"rows\": [\"...\"]}"})
		return
	}
	if len(req.Rows) > maxBatchRows {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "too many rows, max " + strconv.Itoa(maxBatchRows)})
		return
	}
	for i, row := range req.Rows {
		if strings.TrimSpace(row) == "" {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "row " + strconv.Itoa(i+1) + " is empty"})
			return
		}
	}

	companies, err := s.proc.ProcessRows(c.Request.Context(), req.Rows)
	if err != nil {
		s.recognizerFailure(c, err)
		return
	}
	resp := batchResponse{Companies: make([]internal.CompanyView, 0, len(companies))}
	for _, company := range companies {
		resp.Companies = append(resp.Companies, company.View())
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := s.db.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) recognizerFailure(c *gin.Context, err error) {
	s.logger.Warn("extraction failed", "path", c.FullPath(), "err", err)
	c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
