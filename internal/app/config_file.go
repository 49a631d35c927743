package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema.
type FileConfig struct {
	Input  string `yaml:"input" json:"input"`
	Output string `yaml:"output" json:"output"`

	Report struct {
		Markdown    string `yaml:"markdown" json:"markdown"`
		JSON        string `yaml:"json" json:"json"`
		PDF         string `yaml:"pdf" json:"pdf"`
		IncludeLogs bool   `yaml:"includeLogs" json:"includeLogs"`
	} `yaml:"report" json:"report"`

	Profiles struct {
		File    string `yaml:"file" json:"file"`
		Default string `yaml:"default" json:"default"`
		Watch   bool   `yaml:"watch" json:"watch"`
	} `yaml:"profiles" json:"profiles"`

	Scan struct {
		Kind             string `yaml:"kind" json:"kind"`
		MaxCaptionRunes  int    `yaml:"maxCaptionRunes" json:"maxCaptionRunes"`
		PatternCacheSize int    `yaml:"patternCacheSize" json:"patternCacheSize"`
	} `yaml:"scan" json:"scan"`

	LLM struct {
		BaseURL      string  `yaml:"base" json:"base"`
		Model        string  `yaml:"model" json:"model"`
		APIKey       string  `yaml:"key" json:"key"`
		RPS          float64 `yaml:"rps" json:"rps"`
		SystemPrompt string  `yaml:"systemPrompt" json:"systemPrompt"`
	} `yaml:"llm" json:"llm"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	Server struct {
		Listen       string   `yaml:"listen" json:"listen"`
		AllowOrigins []string `yaml:"allowOrigins" json:"allowOrigins"`
	} `yaml:"server" json:"server"`

	DryRun  bool `yaml:"dryRun" json:"dryRun"`
	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from fc into cfg for fields that are unset
// or still at their flag default, so explicit flags win.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setStr := func(dst *string, v string, def string) {
		if (*dst == "" || *dst == def) && v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int, def int) {
		if (*dst == 0 || *dst == def) && v > 0 {
			*dst = v
		}
	}
	setBool := func(dst *bool, v bool) {
		if !*dst && v {
			*dst = true
		}
	}

	setStr(&cfg.InputPath, fc.Input, "")
	setStr(&cfg.OutputPath, fc.Output, "")

	setStr(&cfg.ReportPath, fc.Report.Markdown, "")
	setStr(&cfg.ReportJSONPath, fc.Report.JSON, "")
	setStr(&cfg.ReportPDFPath, fc.Report.PDF, "")
	setBool(&cfg.IncludeLogs, fc.Report.IncludeLogs)

	setStr(&cfg.ProfilesPath, fc.Profiles.File, "")
	setStr(&cfg.ProfileID, fc.Profiles.Default, "")
	setBool(&cfg.WatchProfiles, fc.Profiles.Watch)

	setStr(&cfg.Kind, fc.Scan.Kind, KindAll)
	setInt(&cfg.MaxCaptionRunes, fc.Scan.MaxCaptionRunes, DefaultMaxCaptionRunes)
	setInt(&cfg.PatternCacheSize, fc.Scan.PatternCacheSize, DefaultPatternCacheSize)

	setStr(&cfg.LLMBaseURL, fc.LLM.BaseURL, "")
	setStr(&cfg.LLMModel, fc.LLM.Model, "")
	setStr(&cfg.LLMAPIKey, fc.LLM.APIKey, "")
	if (cfg.ClassifyRPS == 0 || cfg.ClassifyRPS == DefaultClassifyRPS) && fc.LLM.RPS > 0 {
		cfg.ClassifyRPS = fc.LLM.RPS
	}
	setStr(&cfg.SystemPrompt, fc.LLM.SystemPrompt, "")

	setStr(&cfg.CacheDir, fc.Cache.Dir, DefaultCacheDir)
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	setBool(&cfg.CacheClear, fc.Cache.Clear)
	setBool(&cfg.CacheStrictPerms, fc.Cache.StrictPerms)

	setStr(&cfg.ListenAddr, fc.Server.Listen, DefaultListenAddr)
	if len(cfg.AllowOrigins) == 0 && len(fc.Server.AllowOrigins) > 0 {
		cfg.AllowOrigins = append([]string{}, fc.Server.AllowOrigins...)
	}

	setBool(&cfg.DryRun, fc.DryRun)
	setBool(&cfg.Verbose, fc.Verbose)
}

// ValidateConfig checks settings shared by every command.
func ValidateConfig(cfg Config) error {
	switch strings.TrimSpace(cfg.Kind) {
	case "", KindAll, KindCaptions, KindCitations:
	default:
		return fmt.Errorf("config: scan kind %q must be one of all, captions, citations", cfg.Kind)
	}
	if cfg.MaxCaptionRunes < 0 || cfg.PatternCacheSize < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.ClassifyRPS < 0 {
		return errors.New("config: llm.rps must not be negative")
	}
	if cfg.CacheMaxAge < 0 {
		return errors.New("config: cache.maxAge must not be negative")
	}
	if strings.TrimSpace(cfg.LLMModel) != "" && strings.TrimSpace(cfg.LLMBaseURL) == "" && strings.TrimSpace(cfg.LLMAPIKey) == "" {
		return errors.New("config: llm.model needs llm.base or llm.key")
	}
	return nil
}

// RequireInput reports a missing input document.
func RequireInput(cfg Config) error {
	if strings.TrimSpace(cfg.InputPath) == "" {
		return errors.New("config: input path is required")
	}
	return nil
}
