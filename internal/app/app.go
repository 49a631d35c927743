package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/paperpilot/internal/cache"
	"github.com/hyperifyio/paperpilot/internal/classify"
	"github.com/hyperifyio/paperpilot/internal/docsource"
	"github.com/hyperifyio/paperpilot/internal/fix"
	"github.com/hyperifyio/paperpilot/internal/pattern"
	"github.com/hyperifyio/paperpilot/internal/profile"
	"github.com/hyperifyio/paperpilot/internal/report"
	"github.com/hyperifyio/paperpilot/internal/scan"
	"github.com/hyperifyio/paperpilot/internal/server"
)

// ErrNoParagraphs is returned when the input document yields no paragraphs.
var ErrNoParagraphs = errors.New("no paragraphs in document")

// App wires the profile store, the scan engine, the classification client and
// the HTTP API from one Config.
type App struct {
	cfg        Config
	store      *profile.Store
	scanner    *scan.Scanner
	classifier *classify.Classifier
}

func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	store, err := profile.OpenStore(cfg.ProfilesPath)
	if err != nil {
		return nil, fmt.Errorf("open profiles: %w", err)
	}

	scanner := &scan.Scanner{
		Patterns:        pattern.NewCache(cfg.PatternCacheSize),
		MaxCaptionRunes: cfg.MaxCaptionRunes,
		Logger:          log.Logger.With().Str("component", "scan").Logger(),
	}

	a := &App{cfg: cfg, store: store, scanner: scanner, classifier: &classify.Classifier{}}
	if strings.TrimSpace(cfg.LLMModel) != "" {
		a.classifier = a.newClassifier(ctx)
	}
	log.Debug().
		Int("profiles", len(store.All())).
		Str("store", store.Path()).
		Bool("model", a.classifier.Client != nil).
		Msg("app ready")
	return a, nil
}

func (a *App) newClassifier(ctx context.Context) *classify.Classifier {
	cfg := a.cfg
	c := &classify.Classifier{
		Client:       classify.NewOpenAIProvider(cfg.LLMBaseURL, cfg.LLMAPIKey, newClassifyHTTPClient()),
		Model:        cfg.LLMModel,
		SystemPrompt: cfg.SystemPrompt,
	}
	if cfg.ClassifyRPS > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(cfg.ClassifyRPS), 1)
	}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			_ = cache.ClearDir(cfg.CacheDir)
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err == nil && n > 0 {
				log.Debug().Int("removed", n).Msg("purged stale classification cache entries")
			}
		}
		c.Cache = &cache.ResponseCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}

	// Best-effort preflight; the fallback covers an unreachable service.
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if ids, ok, err := classify.Models(pctx, c.Client); ok {
		if err != nil {
			log.Warn().Err(err).Msg("LLM model list failed; continuing with fallback available")
		} else {
			log.Info().Int("count", len(ids)).Msg("LLM models available")
		}
	}
	return c
}

func (a *App) Close() {
	// nothing yet
}

// Profiles returns the current profile collection.
func (a *App) Profiles() []profile.Profile { return a.store.All() }

// Profile resolves the configured profile. An empty id picks the default
// profile; an unknown id yields nil so scans report the missing profile.
func (a *App) Profile() *profile.Profile {
	id := strings.TrimSpace(a.cfg.ProfileID)
	if id == "" {
		p, err := a.store.Get("")
		if err != nil {
			return nil
		}
		return &p
	}
	p, ok := profile.Lookup(a.store.All(), id)
	if !ok {
		log.Warn().Str("profile", id).Msg("unknown profile")
		return nil
	}
	return &p
}

func (a *App) kinds() []scan.Kind {
	switch a.cfg.Kind {
	case KindCaptions:
		return []scan.Kind{scan.KindCaption}
	case KindCitations:
		return []scan.Kind{scan.KindCitation}
	}
	return nil
}

// ScanAll runs the configured scans over paragraphs concurrently.
func (a *App) ScanAll(ctx context.Context, document string, paragraphs []scan.Paragraph) (report.Scan, error) {
	if len(paragraphs) == 0 {
		return report.Scan{}, ErrNoParagraphs
	}
	s, err := report.Collect(ctx, a.scanner, document, paragraphs, a.Profile(), a.kinds()...)
	if err != nil {
		return report.Scan{}, err
	}
	for kind, msg := range s.Errors {
		log.Warn().Str("kind", string(kind)).Msg(msg)
	}
	log.Info().Str("document", document).Str("profile", s.ProfileID).Int("issues", s.IssueCount()).Msg("scan complete")
	return s, nil
}

// ScanFile reads the input document and scans it.
func (a *App) ScanFile(ctx context.Context, path string) (report.Scan, []scan.Paragraph, error) {
	paragraphs, err := docsource.Read(path)
	if err != nil {
		return report.Scan{}, nil, err
	}
	s, err := a.ScanAll(ctx, filepath.Base(path), paragraphs)
	if err != nil {
		return report.Scan{}, paragraphs, fmt.Errorf("%s: %w", path, err)
	}
	return s, paragraphs, nil
}

// WriteReports writes the Markdown, JSON and PDF reports configured in cfg.
// An empty path skips that format.
func (a *App) WriteReports(s report.Scan) error {
	opts := report.Options{IncludeLogs: a.cfg.IncludeLogs}
	if p := a.cfg.ReportPath; p != "" {
		if err := os.WriteFile(p, []byte(report.Markdown(s, opts)), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.Info().Str("path", p).Msg("wrote markdown report")
	}
	if p := a.cfg.ReportJSONPath; p != "" {
		b, err := report.JSON(s)
		if err != nil {
			return err
		}
		if err := os.WriteFile(p, b, 0o644); err != nil {
			return fmt.Errorf("write json report: %w", err)
		}
		log.Info().Str("path", p).Msg("wrote json report")
	}
	if p := a.cfg.ReportPDFPath; p != "" {
		if err := report.WritePDF(s, opts, p); err != nil {
			return fmt.Errorf("write pdf report: %w", err)
		}
		log.Info().Str("path", p).Msg("wrote pdf report")
	}
	return nil
}

// FixResult summarizes a fix run.
type FixResult struct {
	Scan       report.Scan
	Paragraphs []scan.Paragraph
	Applied    int
	Manual     int
	OutputPath string
}

// Fix scans path, applies every suggestion and writes the document to
// OutputPath, or back to path when OutputPath is empty. HTML input keeps its
// markup outside the changed blocks. DryRun skips the write.
func (a *App) Fix(ctx context.Context, path string) (FixResult, error) {
	s, paragraphs, err := a.ScanFile(ctx, path)
	if err != nil {
		return FixResult{}, err
	}
	var issues []scan.Issue
	for _, r := range []*scan.Result{s.Captions, s.Citations} {
		if r != nil {
			issues = append(issues, r.Issues...)
		}
	}
	out, applied, err := fix.ApplyAll(paragraphs, issues)
	if err != nil {
		return FixResult{}, err
	}
	res := FixResult{Scan: s, Paragraphs: out, Applied: applied}
	for _, is := range issues {
		if !is.HasSuggestion() {
			res.Manual++
		}
	}
	res.OutputPath = a.cfg.OutputPath
	if res.OutputPath == "" {
		res.OutputPath = path
	}
	if a.cfg.DryRun {
		log.Info().Int("applied", applied).Int("manual", res.Manual).Msg("dry run: document not written")
		return res, nil
	}
	if err := docsource.Save(path, res.OutputPath, out); err != nil {
		return res, fmt.Errorf("write document: %w", err)
	}
	log.Info().Str("path", res.OutputPath).Int("applied", applied).Int("manual", res.Manual).Msg("fixes applied")
	return res, nil
}

// Classify asks the classification service about one term, sentence or raw
// caption, shaped by the configured profile.
func (a *App) Classify(ctx context.Context, req classify.Request) (classify.Classification, error) {
	if req.Profile == nil {
		// unknown ids fall back to the default profile here; scans reject them
		if p, err := a.store.Get(a.cfg.ProfileID); err == nil {
			req.Profile = &p
		}
	}
	return a.classifier.Classify(ctx, req)
}

// ErrNoModel is returned when a command needs the classification service but
// no model is configured.
var ErrNoModel = errors.New("no classification model configured")

// Models lists the models offered by the classification service.
func (a *App) Models(ctx context.Context) ([]string, error) {
	if a.classifier.Client == nil {
		return nil, ErrNoModel
	}
	ids, ok, err := classify.Models(ctx, a.classifier.Client)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("classification service cannot list models")
	}
	return ids, nil
}

// Serve runs the HTTP API until ctx is cancelled. With WatchProfiles the
// profile store reloads when its file changes.
func (a *App) Serve(ctx context.Context) error {
	addr := a.cfg.ListenAddr
	if addr == "" {
		addr = DefaultListenAddr
	}
	srv := server.New(server.Options{
		Store:        a.store,
		Scanner:      a.scanner,
		Classifier:   a.classifier,
		AllowOrigins: a.cfg.AllowOrigins,
	})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, addr) })
	if a.cfg.WatchProfiles && a.store.Path() != "" {
		g.Go(func() error {
			return profile.Watch(gctx, a.store, profile.DefaultDebounce, nil)
		})
	}
	return g.Wait()
}
