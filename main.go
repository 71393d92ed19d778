package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:           "ytmp3search",
		Short:         "Search YouTube and serve the first result as MP3",
		Long:          "Serves GET /<query>: searches YouTube, converts the first result to a 192 kbps MP3 and redirects to it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          execute,
	}
)

// flag name -> config key
var flagKeys = map[string]string{
	"addr":            "addr",
	"dir":             "dir",
	"max-duration":    "max_duration",
	"search-provider": "search_provider",
	"stream-resolver": "stream_resolver",
	"naming":          "naming",
	"locale":          "locale",
	"redis-addr":      "redis_addr",
	"level":           "level",
}

func init() {
	defaults := DefaultConfig()
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./ytmp3search.yaml)")
	rootCmd.Flags().String("addr", defaults.Addr, "listen address")
	rootCmd.Flags().String("dir", defaults.ArtifactDir, "artifact directory, wiped of *.mp3 on start")
	rootCmd.Flags().Int("max-duration", defaults.MaxDurationSeconds, "longest video accepted, in seconds")
	rootCmd.Flags().String("search-provider", defaults.SearchProvider, "search provider: web or ytdlp")
	rootCmd.Flags().String("stream-resolver", defaults.StreamResolver, "stream resolver: youtube or ytdlp")
	rootCmd.Flags().String("naming", defaults.Naming, "artifact naming: title or id")
	rootCmd.Flags().String("locale", defaults.Locale, "error message locale: en or pt")
	rootCmd.Flags().String("redis-addr", defaults.RedisAddr, "redis address for the artifact index (optional)")
	rootCmd.Flags().String("level", defaults.LogLevel, "log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("ytmp3search failed", "err", err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, err
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("ytmp3search")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "ytmp3",
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		logger.Warn("unknown log level, using info", "level", level)
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

func execute(cmd *cobra.Command, _ []string) error {
	v, err := initConfig(cmd)
	if err != nil {
		return err
	}
	cfg, err := LoadConfig(v)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("Using configuration file", "path", used)
	}
	return run(cmd.Context(), cfg, logger)
}

func run(ctx context.Context, cfg Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.ArtifactDir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	store := NewArtifactStore(initRedis(ctx, cfg, logger), cfg.RedisTTL, logger)

	// Artifacts from earlier runs must be gone before the first request.
	removed, err := Sweep(ctx, cfg.ArtifactDir, store, logger)
	if err != nil {
		logger.Error("cleanup failed", "dir", cfg.ArtifactDir, "err", err)
	} else {
		logger.Info("🧹 Old artifacts removed", "count", removed, "dir", cfg.ArtifactDir)
	}

	searcher := newSearcher(cfg, newHTTPClient(cfg.MetadataTimeout))
	// Streams may take minutes; they are bounded by context, not client timeout.
	resolver := newStreamResolver(cfg, newHTTPClient(0))
	transcoder := newFFmpegTranscoder(cfg.FFmpegPath, cfg.Bitrate)
	pipeline := NewPipeline(ctx, cfg, resolver, transcoder, store, logger)
	server := NewServer(cfg, searcher, pipeline, store, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	done := setupGracefulShutdown(ctx, srv, logger)
	go startHealthCheck(ctx, store, logger)

	logger.Info("🚀 Server running", "addr", cfg.Addr, "search", cfg.SearchProvider, "resolver", cfg.StreamResolver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
