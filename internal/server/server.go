// Package server exposes the scan engine, the profile store and the
// classification client over HTTP for the editor task pane.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/paperpilot/internal/classify"
	"github.com/hyperifyio/paperpilot/internal/profile"
	"github.com/hyperifyio/paperpilot/internal/report"
	"github.com/hyperifyio/paperpilot/internal/scan"
)

// DefaultAllowOrigins are the local dev origins of the task pane.
var DefaultAllowOrigins = []string{
	"https://localhost:3000",
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

// Options configures a Server. Store is required.
type Options struct {
	Store        *profile.Store
	Scanner      *scan.Scanner
	Classifier   *classify.Classifier
	AllowOrigins []string
	Logger       *zerolog.Logger
}

// Server is the HTTP front of the engine.
type Server struct {
	store      *profile.Store
	scanner    *scan.Scanner
	classifier *classify.Classifier
	metrics    *metrics
	logger     zerolog.Logger
	engine     *gin.Engine
}

// New builds the router.
func New(opts Options) *Server {
	s := &Server{
		store:      opts.Store,
		scanner:    opts.Scanner,
		classifier: opts.Classifier,
		metrics:    newMetrics(),
		logger:     log.Logger,
	}
	if s.store == nil {
		s.store = profile.NewStore(profile.Defaults())
	}
	if s.scanner == nil {
		s.scanner = scan.New()
	}
	if s.classifier == nil {
		s.classifier = &classify.Classifier{}
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}
	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = DefaultAllowOrigins
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())
	r.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "X-Requested-With"},
		MaxAge:       12 * time.Hour,
	}))

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))
	v1 := r.Group("/v1")
	{
		v1.GET("/profiles", s.handleProfiles)
		v1.POST("/scan", s.handleScan)
		v1.POST("/scan/captions", s.handleScanCaptions)
		v1.POST("/scan/citations", s.handleScanCitations)
		v1.POST("/classify", s.handleClassify)
	}
	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		s.metrics.requestSeconds.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("http request")
	}
}

// ScanRequest is the body of the scan endpoints. Paragraphs is the document
// snapshot in order; Text is raw searchable body text, used by the citation
// scan when Paragraphs is empty.
type ScanRequest struct {
	ProfileID  string   `json:"profileId"`
	Document   string   `json:"document"`
	Paragraphs []string `json:"paragraphs"`
	Text       string   `json:"text"`
}

// ClassifyRequest is the body of /v1/classify.
type ClassifyRequest struct {
	ProfileID  string `json:"profileId"`
	Term       string `json:"term"`
	Sentence   string `json:"sentence"`
	RawCaption string `json:"rawCaption"`
}

// ErrorResponse is returned for malformed requests.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "profiles": len(s.store.All())})
}

func (s *Server) handleProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profiles": s.store.All()})
}

// resolveProfile returns the default profile for an empty id and nil for an
// unknown one, so the caption scan reports the missing profile.
func (s *Server) resolveProfile(id string) *profile.Profile {
	if strings.TrimSpace(id) == "" {
		p, err := s.store.Get("")
		if err != nil {
			return nil
		}
		return &p
	}
	p, ok := profile.Lookup(s.store.All(), id)
	if !ok {
		return nil
	}
	return &p
}

func (s *Server) bindScan(c *gin.Context) (ScanRequest, bool) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn().Err(err).Str("route", c.FullPath()).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return req, false
	}
	return req, true
}

func (s *Server) handleScanCaptions(c *gin.Context) {
	req, ok := s.bindScan(c)
	if !ok {
		return
	}
	res, err := s.scanner.CaptionsForProfile(scan.Paragraphs(req.Paragraphs...), s.resolveProfile(req.ProfileID))
	s.metrics.observeScan(scan.KindCaption, &res, err)
	var ce *scan.ConfigError
	if errors.As(err, &ce) {
		s.logger.Warn().Err(err).Str("profile", req.ProfileID).Msg("caption scan rejected")
		c.JSON(http.StatusUnprocessableEntity, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleScanCitations(c *gin.Context) {
	req, ok := s.bindScan(c)
	if !ok {
		return
	}
	var res scan.Result
	if len(req.Paragraphs) == 0 && req.Text != "" {
		res = s.scanner.CitationsInText(req.Text)
	} else {
		var p *profile.Profile
		if req.ProfileID != "" {
			p = s.resolveProfile(req.ProfileID)
		}
		res = s.scanner.CitationsForProfile(scan.Paragraphs(req.Paragraphs...), p)
	}
	s.metrics.observeScan(scan.KindCitation, &res, nil)
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleScan(c *gin.Context) {
	req, ok := s.bindScan(c)
	if !ok {
		return
	}
	out, err := report.Collect(c.Request.Context(), s.scanner, req.Document, scan.Paragraphs(req.Paragraphs...), s.resolveProfile(req.ProfileID))
	if err != nil {
		s.logger.Warn().Err(err).Msg("scan cancelled")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "CANCELLED"})
		return
	}
	var capErr error
	if msg, bad := out.Errors[scan.KindCaption]; bad {
		capErr = errors.New(msg)
	}
	s.metrics.observeScan(scan.KindCaption, out.Captions, capErr)
	s.metrics.observeScan(scan.KindCitation, out.Citations, nil)
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleClassify(c *gin.Context) {
	var body ClassifyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	req := classify.Request{Term: body.Term, Sentence: body.Sentence, RawCaption: body.RawCaption}
	// suggestions only shape text, so an unknown id falls back like an empty one
	if p, err := s.store.Get(body.ProfileID); err == nil {
		req.Profile = &p
	}
	res, err := s.classifier.Classify(c.Request.Context(), req)
	if errors.Is(err, classify.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "CLASSIFY_FAILED"})
		return
	}
	s.metrics.observeClassification(res)
	c.JSON(http.StatusOK, res)
}
