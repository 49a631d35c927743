package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/paperpilot/internal/app"
	"github.com/hyperifyio/paperpilot/internal/classify"
	"github.com/hyperifyio/paperpilot/internal/profile"
	"github.com/hyperifyio/paperpilot/internal/report"
)

// cli holds flag values shared by all subcommands.
type cli struct {
	flags      app.Config
	configPath string
	envFiles   []string
	cfg        app.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "paperpilot",
		Short: "Check manuscript captions and citations against journal style profiles",
		Long: `paperpilot scans a manuscript for figure/table captions and citation
markers that do not follow the selected journal profile, suggests fixes,
and can apply them or serve the checks to an editor task pane.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "Path to YAML/JSON config file")
	pf.StringSliceVar(&c.envFiles, "env-file", []string{".env"}, "Dotenv files to load (later files override)")
	pf.BoolVarP(&c.flags.Verbose, "verbose", "v", false, "Verbose logging")
	pf.StringVar(&c.flags.ProfilesPath, "profiles", "", "Profile store file (YAML/JSON); built-in profiles when empty")
	pf.StringVarP(&c.flags.ProfileID, "profile", "p", "", "Journal profile id; default is the first active profile")
	pf.StringVar(&c.flags.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL for the classification service")
	pf.StringVar(&c.flags.LLMModel, "llm.model", "", "Classification model; heuristics only when empty")
	pf.StringVar(&c.flags.LLMAPIKey, "llm.key", "", "API key for the classification service")
	pf.Float64Var(&c.flags.ClassifyRPS, "llm.rps", app.DefaultClassifyRPS, "Classification requests per second")
	pf.StringVar(&c.flags.CacheDir, "cache.dir", app.DefaultCacheDir, "Classification cache directory")
	pf.DurationVar(&c.flags.CacheMaxAge, "cache.maxAge", 0, "Purge cache entries older than this; 0 disables")
	pf.BoolVar(&c.flags.CacheClear, "cache.clear", false, "Clear the cache directory on start")
	pf.BoolVar(&c.flags.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	pf.IntVar(&c.flags.MaxCaptionRunes, "max.captionRunes", app.DefaultMaxCaptionRunes, "Paragraphs longer than this are never captions")
	pf.IntVar(&c.flags.PatternCacheSize, "patternCache", app.DefaultPatternCacheSize, "Compiled pattern cache size")

	root.AddCommand(
		c.scanCmd(),
		c.fixCmd(),
		c.profilesCmd(),
		c.classifyCmd(),
		c.serveCmd(),
	)
	return root
}

// load builds the effective config: flags, then file config for unset
// fields, then env overrides, then explicitly set flags again.
func (c *cli) load(cmd *cobra.Command) error {
	if err := app.LoadEnvFiles(c.envFiles...); err != nil {
		return err
	}
	cfg := c.flags
	if c.configPath != "" {
		fc, err := app.LoadConfigFile(c.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)
	c.reapplyChangedFlags(cmd, &cfg)
	if cfg.Kind == "" {
		cfg.Kind = app.KindAll
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if err := app.ValidateConfig(cfg); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// flagFields maps flag names to the Config field they set.
var flagFields = map[string]func(dst *app.Config, src app.Config){
	"verbose":           func(d *app.Config, s app.Config) { d.Verbose = s.Verbose },
	"profiles":          func(d *app.Config, s app.Config) { d.ProfilesPath = s.ProfilesPath },
	"profile":           func(d *app.Config, s app.Config) { d.ProfileID = s.ProfileID },
	"llm.base":          func(d *app.Config, s app.Config) { d.LLMBaseURL = s.LLMBaseURL },
	"llm.model":         func(d *app.Config, s app.Config) { d.LLMModel = s.LLMModel },
	"llm.key":           func(d *app.Config, s app.Config) { d.LLMAPIKey = s.LLMAPIKey },
	"llm.rps":           func(d *app.Config, s app.Config) { d.ClassifyRPS = s.ClassifyRPS },
	"cache.dir":         func(d *app.Config, s app.Config) { d.CacheDir = s.CacheDir },
	"cache.maxAge":      func(d *app.Config, s app.Config) { d.CacheMaxAge = s.CacheMaxAge },
	"cache.clear":       func(d *app.Config, s app.Config) { d.CacheClear = s.CacheClear },
	"cache.strictPerms": func(d *app.Config, s app.Config) { d.CacheStrictPerms = s.CacheStrictPerms },
	"max.captionRunes":  func(d *app.Config, s app.Config) { d.MaxCaptionRunes = s.MaxCaptionRunes },
	"patternCache":      func(d *app.Config, s app.Config) { d.PatternCacheSize = s.PatternCacheSize },
	"kind":              func(d *app.Config, s app.Config) { d.Kind = s.Kind },
	"report":            func(d *app.Config, s app.Config) { d.ReportPath = s.ReportPath },
	"json":              func(d *app.Config, s app.Config) { d.ReportJSONPath = s.ReportJSONPath },
	"pdf":               func(d *app.Config, s app.Config) { d.ReportPDFPath = s.ReportPDFPath },
	"logs":              func(d *app.Config, s app.Config) { d.IncludeLogs = s.IncludeLogs },
	"output":            func(d *app.Config, s app.Config) { d.OutputPath = s.OutputPath },
	"dry-run":           func(d *app.Config, s app.Config) { d.DryRun = s.DryRun },
	"listen":            func(d *app.Config, s app.Config) { d.ListenAddr = s.ListenAddr },
	"watch":             func(d *app.Config, s app.Config) { d.WatchProfiles = s.WatchProfiles },
	"allow-origin":      func(d *app.Config, s app.Config) { d.AllowOrigins = s.AllowOrigins },
}

func (c *cli) reapplyChangedFlags(cmd *cobra.Command, cfg *app.Config) {
	for name, set := range flagFields {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			set(cfg, c.flags)
		}
	}
}

func (c *cli) newApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, c.cfg)
	if err != nil {
		return nil, fmt.Errorf("init app: %w", err)
	}
	return a, nil
}

func (c *cli) scanCmd() *cobra.Command {
	var format string
	var failOnIssues bool
	cmd := &cobra.Command{
		Use:   "scan [document]",
		Short: "Scan a document and report caption and citation issues",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				c.cfg.InputPath = args[0]
			}
			return runScan(cmd.Context(), c.cfg, format, failOnIssues, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&c.flags.Kind, "kind", app.KindAll, "Scan kind: all, captions or citations")
	f.StringVar(&c.flags.ReportPath, "report", "", "Write the Markdown report to this path")
	f.StringVar(&c.flags.ReportJSONPath, "json", "", "Write the JSON report to this path")
	f.StringVar(&c.flags.ReportPDFPath, "pdf", "", "Write the PDF report to this path")
	f.BoolVar(&c.flags.IncludeLogs, "logs", false, "Include the decision trace in reports")
	f.StringVar(&format, "format", "md", "Stdout format when no report path is set: md or json")
	f.BoolVar(&failOnIssues, "fail-on-issues", false, "Exit with status 2 when issues are found")
	return cmd
}

func runScan(ctx context.Context, cfg app.Config, format string, failOnIssues bool, out io.Writer) error {
	if err := app.RequireInput(cfg); err != nil {
		return err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	s, _, err := a.ScanFile(ctx, cfg.InputPath)
	if err != nil {
		return err
	}
	if err := a.WriteReports(s); err != nil {
		return err
	}
	if cfg.ReportPath == "" && cfg.ReportJSONPath == "" && cfg.ReportPDFPath == "" {
		if err := writeScan(out, s, format, cfg.IncludeLogs); err != nil {
			return err
		}
	}
	if failOnIssues && s.IssueCount() > 0 {
		return fmt.Errorf("%w: %d", errIssuesFound, s.IssueCount())
	}
	return nil
}

func writeScan(out io.Writer, s report.Scan, format string, logs bool) error {
	switch strings.ToLower(format) {
	case "json":
		b, err := report.JSON(s)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	case "md", "markdown", "":
		_, err := io.WriteString(out, report.Markdown(s, report.Options{IncludeLogs: logs}))
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func (c *cli) fixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix [document]",
		Short: "Apply every suggested fix to a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.Fix(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "applied %d fix(es), %d issue(s) need a manual fix\n", res.Applied, res.Manual)
			return err
		},
	}
	cmd.Flags().StringVarP(&c.flags.OutputPath, "output", "o", "", "Write the fixed document here instead of in place")
	cmd.Flags().BoolVar(&c.flags.DryRun, "dry-run", false, "Report what would change without writing")
	cmd.Flags().StringVar(&c.flags.Kind, "kind", app.KindAll, "Fix kind: all, captions or citations")
	return cmd
}

func (c *cli) profilesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List journal profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return writeProfiles(cmd.OutOrStdout(), a, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print profiles as JSON")
	return cmd
}

func writeProfiles(out io.Writer, a *app.App, asJSON bool) error {
	profiles := a.Profiles()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(profiles)
	}
	def := a.Profile()
	for _, p := range profiles {
		mark := " "
		if def != nil && def.ID == p.ID {
			mark = "*"
		}
		caption := "-"
		if r := p.Rules.CaptionStyle.Rule(profile.Figure); r != nil {
			caption = fmt.Sprintf("%q%q", r.Validate.ExpectedPrefix+" 1", r.Validate.Separator)
		}
		citation := "universal"
		if p.Rules.CitationStyle != nil {
			citation = string(p.Rules.CitationStyle.Brackets)
		}
		if _, err := fmt.Fprintf(out, "%s %-8s %-24s %-7s caption=%s citation=%s\n", mark, p.ID, p.Name, p.Status, caption, citation); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) classifyCmd() *cobra.Command {
	var req classify.Request
	var listModels bool
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a term, sentence or raw caption",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if listModels {
				return writeModels(cmd.Context(), cmd.OutOrStdout(), a)
			}
			res, err := a.Classify(cmd.Context(), req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Term, "term", "", "Term to check for informal wording")
	f.StringVar(&req.Sentence, "sentence", "", "Sentence to check for a missing citation")
	f.StringVar(&req.RawCaption, "caption", "", "Raw caption text to format")
	f.BoolVar(&listModels, "list-models", false, "List models offered by the classification service")
	return cmd
}

func writeModels(ctx context.Context, out io.Writer, a *app.App) error {
	ids, err := a.Models(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := fmt.Fprintln(out, id); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan API for the editor task pane",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			err = a.Serve(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Info().Msg("server stopped")
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&c.flags.ListenAddr, "listen", app.DefaultListenAddr, "Listen address")
	f.BoolVar(&c.flags.WatchProfiles, "watch", false, "Reload the profile store when its file changes")
	f.StringSliceVar(&c.flags.AllowOrigins, "allow-origin", nil, "CORS origin allowed to call the API (repeatable)")
	return cmd
}
