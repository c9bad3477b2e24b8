// Package api exposes the pipeline over HTTP.
package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/semaphore"

	"github.com/ivlev/topic2video/internal/config"
	"github.com/ivlev/topic2video/internal/engine"
	"github.com/ivlev/topic2video/internal/system"
)

// Builder produces a video for a topic. *engine.Project implements it.
type Builder interface {
	BuildVideo(ctx context.Context, topic, outputPath string) (*engine.Artifact, error)
}

type Server struct {
	cfg     config.ServerConfig
	builder Builder
	sem     *semaphore.Weighted
	active  atomic.Int64
	logger  *slog.Logger

	Router *gin.Engine
}

func NewServer(cfg config.ServerConfig, b Builder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	limit := cfg.MaxConcurrentRuns
	if limit <= 0 {
		limit = 1
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger), corsMiddleware())

	s := &Server{
		cfg:     cfg,
		builder: b,
		sem:     semaphore.NewWeighted(int64(limit)),
		logger:  logger,
		Router:  router,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.Router.GET("/health", s.health)
	s.Router.POST("/generate_video", s.generateVideo)
	s.Router.Static("/static", s.cfg.StaticDir)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "address", s.cfg.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type generateRequest struct {
	Topic string `json:"topic"`
}

type generateResponse struct {
	Status   string  `json:"status"`
	VideoURL string  `json:"video_url"`
	Duration float64 `json:"duration"`
	Scenes   int     `json:"scenes"`
	QRCode   string  `json:"qr_code,omitempty"`
}

func errorBody(err string) gin.H {
	return gin.H{"status": "error", "error": err}
}

func (s *Server) generateVideo(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		c.JSON(http.StatusBadRequest, errorBody("topic is required"))
		return
	}

	ctx := c.Request.Context()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		c.JSON(http.StatusServiceUnavailable, errorBody("request cancelled while waiting for a render slot"))
		return
	}
	defer s.sem.Release(1)

	s.active.Add(1)
	defer s.active.Add(-1)

	art, err := s.builder.BuildVideo(ctx, topic, "")
	if err != nil {
		s.logger.Error("Video generation failed", "topic", topic, "error", err)
		c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	url := s.artifactURL(art.Path)
	art.URL = url

	resp := generateResponse{
		Status:   "done",
		VideoURL: url,
		Duration: art.Duration,
		Scenes:   art.Scenes,
	}
	if qr, err := qrDataURL(url); err == nil {
		resp.QRCode = qr
	} else {
		s.logger.Warn("QR code generation failed", "error", err)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) artifactURL(path string) string {
	return strings.TrimRight(s.cfg.PublicURL, "/") + "/static/" + filepath.Base(path)
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{
		"status":      "ok",
		"active_runs": s.active.Load(),
	}
	if mem, err := system.Memory(); err == nil {
		body["memory"] = mem
	}
	c.JSON(http.StatusOK, body)
}

// qrDataURL encodes content as a PNG QR code data URL.
func qrDataURL(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("qrcode: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).Round(time.Millisecond))
	}
}
