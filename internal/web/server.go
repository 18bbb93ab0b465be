package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/conorfennell/idiomas/internal/backend"
	"github.com/conorfennell/idiomas/internal/bundle"
	"github.com/conorfennell/idiomas/internal/domain"
	"github.com/conorfennell/idiomas/internal/metrics"
	"github.com/conorfennell/idiomas/internal/srs"
)

const (
	appName    = "app_idiomas"
	appVersion = "0.1.0"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed static/index.html
var indexHTML []byte

// Static is the embedded app shell: index.html and base_words.json.
var Static fs.FS = mustSub(staticFiles, "static")

// BundleName is the vocabulary bundle's file name inside Static.
const BundleName = "base_words.json"

func mustSub(f fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(f, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Options configures a Server.
type Options struct {
	// Bundle overrides the embedded vocabulary bundle.
	Bundle bundle.Loader
	Logger *slog.Logger
}

// Server is the app shell host and REST backend. Vocabulary comes from the
// bundle and is loaded once at startup.
type Server struct {
	router *gin.Engine
	words  []domain.Word
	logger *slog.Logger
}

// NewServer loads the bundle and configures the routes.
func NewServer(ctx context.Context, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loader := opts.Bundle
	if loader == nil {
		loader = bundle.FSLoader{FS: Static, Name: BundleName}
	}
	words, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary bundle: %w", err)
	}
	logger.Info("Vocabulary bundle loaded", "words", len(words))

	s := &Server{
		router: gin.New(),
		words:  words,
		logger: logger,
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(requestLogger(s.logger), gin.Recovery(), cors(), metrics.Middleware())

	s.router.GET("/", s.handleRoot)
	s.router.GET("/index.html", s.handleIndex)
	s.router.GET("/"+BundleName, s.handleBundle)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/themes/", s.handleThemes)
	s.router.GET("/themes/:theme/words", s.handleWords)
	s.router.POST("/srs/review", s.handleReview)
}

// handleRoot serves the app shell to browsers and the service banner to API
// clients asking for JSON.
func (s *Server) handleRoot(c *gin.Context) {
	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		c.JSON(http.StatusOK, gin.H{"ok": true, "name": appName, "version": appVersion})
		return
	}
	s.handleIndex(c)
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) handleBundle(c *gin.Context) {
	c.JSON(http.StatusOK, s.words)
}

func (s *Server) handleThemes(c *gin.Context) {
	c.JSON(http.StatusOK, domain.GroupThemes(s.words))
}

func (s *Server) handleWords(c *gin.Context) {
	words := domain.WordsForTheme(s.words, c.Param("theme"))
	if len(words) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Theme not found or empty"})
		return
	}
	c.JSON(http.StatusOK, words)
}

func (s *Server) handleReview(c *gin.Context) {
	var req backend.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	grade := srs.Grade(*req.Grade)
	resp := backend.ReviewResponse{
		WordID:         req.WordID,
		NextDueSeconds: int(srs.NextDelay(grade) / time.Second),
	}
	if len(s.words) > 0 {
		next := s.words[rand.Intn(len(s.words))]
		resp.NextWord = &next
	}
	c.JSON(http.StatusOK, resp)
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
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
		logger.Debug("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
