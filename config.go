package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// Centralized configuration values
const (
	// Artifact naming
	ArtifactExt    = ".mp3"
	MaxQueryLength = 100
	CacheKeyLength = 16

	// Search
	SearchBaseURL = "https://www.youtube.com/results"
	WatchBaseURL  = "https://www.youtube.com/watch?v="

	// Index
	RedisKeyPrefix = "artifact:"

	// Health Check
	HealthCheckInterval = 30 * time.Second

	EnvPrefix = "YTMP3_"
)

const (
	SearchProviderWeb   = "web"
	SearchProviderYTDLP = "ytdlp"

	ResolverYouTube = "youtube"
	ResolverYTDLP   = "ytdlp"

	NamingTitle = "title"
	NamingID    = "id"
)

// Config holds every runtime setting. Defaults live in the envDefault tags;
// a config file and CLI flags may override them through viper.
type Config struct {
	Addr        string `env:"ADDR" envDefault:":3000"`
	ArtifactDir string `env:"DIR" envDefault:"."`

	MaxDurationSeconds int    `env:"MAX_DURATION" envDefault:"500"`
	Bitrate            string `env:"BITRATE" envDefault:"192k"`

	SearchProvider string `env:"SEARCH_PROVIDER" envDefault:"web"`
	StreamResolver string `env:"STREAM_RESOLVER" envDefault:"youtube"`
	Naming         string `env:"NAMING" envDefault:"title"`
	Locale         string `env:"LOCALE" envDefault:"en"`

	YTDLPPath  string `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	FFmpegPath string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisTTL      time.Duration `env:"REDIS_TTL" envDefault:"24h"`

	RequestsPerSecond float64 `env:"RATE_LIMIT" envDefault:"100"`
	BurstSize         int     `env:"RATE_BURST" envDefault:"200"`

	MetadataTimeout  time.Duration `env:"METADATA_TIMEOUT" envDefault:"45s"`
	TranscodeTimeout time.Duration `env:"TRANSCODE_TIMEOUT" envDefault:"10m"`

	LogLevel string `env:"LEVEL" envDefault:"info"`
}

// DefaultConfig returns the built-in defaults, ignoring the environment.
func DefaultConfig() Config {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{
		Environment: map[string]string{},
	})
	if err != nil {
		// envDefault tags are constants; a failure here is a programming error.
		panic(err)
	}
	return cfg
}

// LoadConfig parses the environment and then applies any value viper knows
// about (config file or bound flag).
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: EnvPrefix})
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if v != nil {
		applyViper(&cfg, v)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyViper(cfg *Config, v *viper.Viper) {
	if v.IsSet("addr") {
		cfg.Addr = v.GetString("addr")
	}
	if v.IsSet("dir") {
		cfg.ArtifactDir = v.GetString("dir")
	}
	if v.IsSet("max_duration") {
		cfg.MaxDurationSeconds = v.GetInt("max_duration")
	}
	if v.IsSet("bitrate") {
		cfg.Bitrate = v.GetString("bitrate")
	}
	if v.IsSet("search_provider") {
		cfg.SearchProvider = v.GetString("search_provider")
	}
	if v.IsSet("stream_resolver") {
		cfg.StreamResolver = v.GetString("stream_resolver")
	}
	if v.IsSet("naming") {
		cfg.Naming = v.GetString("naming")
	}
	if v.IsSet("locale") {
		cfg.Locale = v.GetString("locale")
	}
	if v.IsSet("ytdlp_path") {
		cfg.YTDLPPath = v.GetString("ytdlp_path")
	}
	if v.IsSet("ffmpeg_path") {
		cfg.FFmpegPath = v.GetString("ffmpeg_path")
	}
	if v.IsSet("redis_addr") {
		cfg.RedisAddr = v.GetString("redis_addr")
	}
	if v.IsSet("redis_password") {
		cfg.RedisPassword = v.GetString("redis_password")
	}
	if v.IsSet("redis_db") {
		cfg.RedisDB = v.GetInt("redis_db")
	}
	if v.IsSet("redis_ttl") {
		cfg.RedisTTL = v.GetDuration("redis_ttl")
	}
	if v.IsSet("rate_limit") {
		cfg.RequestsPerSecond = v.GetFloat64("rate_limit")
	}
	if v.IsSet("rate_burst") {
		cfg.BurstSize = v.GetInt("rate_burst")
	}
	if v.IsSet("metadata_timeout") {
		cfg.MetadataTimeout = v.GetDuration("metadata_timeout")
	}
	if v.IsSet("transcode_timeout") {
		cfg.TranscodeTimeout = v.GetDuration("transcode_timeout")
	}
	if v.IsSet("level") {
		cfg.LogLevel = v.GetString("level")
	}
}

// Validate normalizes enum-like fields and rejects values the server cannot run with.
func (c *Config) Validate() error {
	c.SearchProvider = strings.ToLower(strings.TrimSpace(c.SearchProvider))
	c.StreamResolver = strings.ToLower(strings.TrimSpace(c.StreamResolver))
	c.Naming = strings.ToLower(strings.TrimSpace(c.Naming))
	c.Locale = strings.ToLower(strings.TrimSpace(c.Locale))

	switch c.SearchProvider {
	case SearchProviderWeb, SearchProviderYTDLP:
	default:
		return fmt.Errorf("unknown search provider %q", c.SearchProvider)
	}
	switch c.StreamResolver {
	case ResolverYouTube, ResolverYTDLP:
	default:
		return fmt.Errorf("unknown stream resolver %q", c.StreamResolver)
	}
	switch c.Naming {
	case NamingTitle, NamingID:
	default:
		return fmt.Errorf("unknown naming mode %q", c.Naming)
	}
	if _, ok := catalogs[c.Locale]; !ok {
		return fmt.Errorf("unknown locale %q", c.Locale)
	}
	if c.MaxDurationSeconds <= 0 {
		return fmt.Errorf("max_duration must be positive, got %d", c.MaxDurationSeconds)
	}
	if strings.TrimSpace(c.ArtifactDir) == "" {
		c.ArtifactDir = "."
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit must be positive, got %v", c.RequestsPerSecond)
	}
	if c.BurstSize < 1 {
		c.BurstSize = 1
	}
	return nil
}
