package app

import "time"

// Scan kinds accepted by Config.Kind.
const (
	KindAll       = "all"
	KindCaptions  = "captions"
	KindCitations = "citations"
)

// Config holds runtime configuration for the application.
type Config struct {
	InputPath  string
	OutputPath string

	// Reports
	ReportPath     string
	ReportJSONPath string
	ReportPDFPath  string
	IncludeLogs    bool

	// Profiles
	ProfilesPath  string
	ProfileID     string
	WatchProfiles bool

	// Engine
	Kind             string
	MaxCaptionRunes  int
	PatternCacheSize int

	// Classification service
	LLMBaseURL   string
	LLMModel     string
	LLMAPIKey    string
	ClassifyRPS  float64
	SystemPrompt string

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool

	// HTTP API
	ListenAddr   string
	AllowOrigins []string

	// Behavior
	DryRun  bool
	Verbose bool
}

// Defaults used by flag parsing; file config may replace a value still equal
// to its default.
const (
	DefaultListenAddr       = "127.0.0.1:8088"
	DefaultCacheDir         = ".paperpilot-cache"
	DefaultMaxCaptionRunes  = 300
	DefaultPatternCacheSize = 256
	DefaultClassifyRPS      = 2.0
)
