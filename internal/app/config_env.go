package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable the application reads.
const EnvPrefix = "PAPERPILOT_"

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ApplyEnvOverrides overrides cfg fields with environment variables that are
// set, so env beats the config file; the CLI reapplies explicit flags after.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	setStr := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setStr(&cfg.ProfilesPath, "PROFILES")
	setStr(&cfg.ProfileID, "PROFILE")
	setStr(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setStr(&cfg.LLMModel, "LLM_MODEL")
	setStr(&cfg.LLMAPIKey, "LLM_API_KEY")
	setStr(&cfg.CacheDir, "CACHE_DIR")
	setStr(&cfg.ListenAddr, "LISTEN")

	if v := splitList(getenv("ALLOW_ORIGINS")); len(v) > 0 {
		cfg.AllowOrigins = v
	}
	if d, err := time.ParseDuration(getenv("CACHE_MAX_AGE")); err == nil {
		cfg.CacheMaxAge = d
	}
	if f, err := strconv.ParseFloat(getenv("LLM_RPS"), 64); err == nil && f > 0 {
		cfg.ClassifyRPS = f
	}

	setBool := func(dst *bool, key string) {
		switch strings.ToLower(getenv(key)) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
	setBool(&cfg.DryRun, "DRY_RUN")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.WatchProfiles, "WATCH_PROFILES")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
}
