package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		Port      string `envconfig:"PORT" default:"8391"`
		LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
		LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

		// Optional TOML file; defaults to $XDG_CONFIG_HOME/lyrics-sync/config.toml
		ConfigFile string `envconfig:"CONFIG_FILE" default:""`

		// Lyric sources in priority order
		LyricsSources      []string `envconfig:"LYRICS_SOURCES" default:"netease,qqmusic,lrclib,kugou,local"`
		TranslationSources []string `envconfig:"TRANSLATION_SOURCES" default:"netease-translation"`
		AdapterTimeoutMs   int      `envconfig:"ADAPTER_TIMEOUT_MS" default:"5000"`

		CacheCapacity   int    `envconfig:"CACHE_CAPACITY" default:"512"`
		CacheBackend    string `envconfig:"CACHE_BACKEND" default:"bolt"` // bolt, redis or memory
		CacheDBPath     string `envconfig:"CACHE_DB_PATH" default:""`
		CacheBackupPath string `envconfig:"CACHE_BACKUP_PATH" default:""`
		RedisAddr       string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
		RedisPassword   string `envconfig:"REDIS_PASSWORD" default:""`
		RedisDB         int    `envconfig:"REDIS_DB" default:"0"`
		RedisTTLHours   int    `envconfig:"REDIS_TTL_HOURS" default:"0"` // 0 keeps entries forever
		StatsDBPath     string `envconfig:"STATS_DB_PATH" default:""`

		PollIntervalMs       int      `envconfig:"POLL_INTERVAL_MS" default:"250"`
		SeekThresholdMs      int      `envconfig:"SEEK_THRESHOLD_MS" default:"1000"`
		MinLastLineDisplayMs int      `envconfig:"MIN_LAST_LINE_DISPLAY_MS" default:"5000"`
		LyricAdvanceMs       int      `envconfig:"LYRIC_ADVANCE_MS" default:"0"`
		PlayerBlacklist      []string `envconfig:"PLAYER_BLACKLIST" default:"firefox,mozilla,chromium,chrome,kdeconnect"`
		LocalLyricsPath      string   `envconfig:"LOCAL_LYRICS_PATH" default:""`
		MinSimilarityScore   float64  `envconfig:"MIN_SIMILARITY_SCORE" default:"0.6"`
		DurationMatchDeltaMs int      `envconfig:"DURATION_MATCH_DELTA_MS" default:"5000"`

		CircuitBreakerThreshold    int `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`       // Consecutive failures before circuit opens
		CircuitBreakerCooldownSecs int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"300"` // Seconds to wait before retrying

		RateLimitPerSecond         int      `envconfig:"RATE_LIMIT_PER_SECOND" default:"20"`
		RateLimitBurstLimit        int      `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"40"`
		ResolveRateLimitPerSecond  int      `envconfig:"RESOLVE_RATE_LIMIT_PER_SECOND" default:"1"`
		ResolveRateLimitBurstLimit int      `envconfig:"RESOLVE_RATE_LIMIT_BURST_LIMIT" default:"3"`
		AdminAPIKey                string   `envconfig:"ADMIN_API_KEY" default:""`
		CORSAllowedOrigins         []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	}

	FeatureFlags struct {
		CacheCompression bool `envconfig:"FF_CACHE_COMPRESSION" default:"true"`
		Translation      bool `envconfig:"FF_TRANSLATION" default:"true"`
		EnableHTTP       bool `envconfig:"ENABLE_HTTP" default:"true"`
		SimpleOutput     bool `envconfig:"SIMPLE_OUTPUT" default:"false"`
	}
}

// FileConfig is the TOML file layout. Zero values leave the env settings untouched.
type FileConfig struct {
	LyricsSources      []string `toml:"lyrics_sources"`
	TranslationSources []string `toml:"translation_sources"`
	PlayerBlacklist    []string `toml:"player_blacklist"`

	Local struct {
		LyricsPath string `toml:"lyrics_path"`
	} `toml:"local"`

	Display struct {
		LyricAdvanceTime int   `toml:"lyric_advance_time"` // milliseconds
		SimpleOutput     *bool `toml:"simple_output"`
	} `toml:"display"`

	Mpris struct {
		PollIntervalMs int `toml:"poll_interval_ms"`
	} `toml:"mpris"`
}

// load loads the configuration from the environment, then overlays the TOML file if present.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}

	cfg := Config{}
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	applyPathDefaults(&cfg)

	path := cfg.Configuration.ConfigFile
	if path == "" {
		path = filepath.Join(ConfigDir(), "config.toml")
	}
	if err := LoadFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadFile overlays the TOML file at path onto cfg. A missing file is not an error.
func LoadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	var fc FileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return err
	}
	fc.apply(cfg)
	log.Debugf("Loaded config file %s", path)
	return nil
}

func (fc FileConfig) apply(cfg *Config) {
	c := &cfg.Configuration
	if len(fc.LyricsSources) > 0 {
		c.LyricsSources = normalizeList(fc.LyricsSources)
	}
	if len(fc.TranslationSources) > 0 {
		c.TranslationSources = normalizeList(fc.TranslationSources)
	}
	if len(fc.PlayerBlacklist) > 0 {
		c.PlayerBlacklist = normalizeList(fc.PlayerBlacklist)
	}
	if fc.Local.LyricsPath != "" {
		c.LocalLyricsPath = expandHome(fc.Local.LyricsPath)
	}
	if fc.Display.LyricAdvanceTime > 0 {
		c.LyricAdvanceMs = fc.Display.LyricAdvanceTime
	}
	if fc.Display.SimpleOutput != nil {
		cfg.FeatureFlags.SimpleOutput = *fc.Display.SimpleOutput
	}
	if fc.Mpris.PollIntervalMs > 0 {
		c.PollIntervalMs = fc.Mpris.PollIntervalMs
	}
}

func applyPathDefaults(cfg *Config) {
	c := &cfg.Configuration
	c.LyricsSources = normalizeList(c.LyricsSources)
	c.TranslationSources = normalizeList(c.TranslationSources)
	c.PlayerBlacklist = normalizeList(c.PlayerBlacklist)

	if c.CacheDBPath == "" {
		c.CacheDBPath = filepath.Join(DataDir(), "lyrics_cache.db")
	}
	if c.CacheBackupPath == "" {
		c.CacheBackupPath = filepath.Join(DataDir(), "backups")
	}
	if c.StatsDBPath == "" {
		c.StatsDBPath = filepath.Join(DataDir(), "stats.db")
	}
	if c.LocalLyricsPath == "" {
		c.LocalLyricsPath = filepath.Join(ConfigDir(), "lyrics")
	} else {
		c.LocalLyricsPath = expandHome(c.LocalLyricsPath)
	}
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/"))
}

// ConfigDir returns the XDG config directory for the daemon.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "lyrics-sync")
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "lyrics-sync")
	}
	return ".lyrics-sync"
}

// DataDir returns the XDG data directory used for the cache and stats files.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "lyrics-sync")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "lyrics-sync")
	}
	return ".lyrics-sync"
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}

// AdapterTimeout returns the per-adapter fetch timeout.
func (c Config) AdapterTimeout() time.Duration {
	return time.Duration(c.Configuration.AdapterTimeoutMs) * time.Millisecond
}

// PollInterval returns the player polling interval.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Configuration.PollIntervalMs) * time.Millisecond
}
