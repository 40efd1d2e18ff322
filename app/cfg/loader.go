package cfg

import (
	"cmp"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DataDir string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for the seen-cache and sqlite database"`
	DBPath  string `long:"db-path" env:"DB_PATH" description:"Path to the sqlite database (defaults to <data-dir>/digesto.db)"`

	// Curation configuration
	SourcesFile    string  `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"YAML file mapping categories to feed URLs"`
	MaxCacheSize   int     `long:"max-cache-size" env:"MAX_CACHE_SIZE" default:"1000" description:"Maximum number of remembered article URLs"`
	MinConfidence  float64 `long:"min-confidence" env:"MIN_CONFIDENCE_SCORE" default:"0.7" description:"Minimum confidence to accept an article (rejects risk >= 1 - value)"`
	MaxNewsPerDay  int     `long:"max-news" env:"MAX_NEWS_PER_DAY" default:"10" description:"Default maximum number of articles per digest"`
	PerSourceLimit int     `long:"per-source-limit" env:"PER_SOURCE_LIMIT" default:"10" description:"Maximum feed entries inspected per source"`
	FetchTimeout   int     `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-source and per-article fetch timeout in seconds"`
	SourceRate     float64 `long:"source-rate" env:"SOURCE_RATE" default:"1" description:"Maximum requests per second against a single host"`

	// Delivery configuration
	DeliveryHour string `long:"delivery-hour" env:"DELIVERY_HOUR" default:"08:00" description:"Local time of day (HH:MM) after which digests are delivered"`
	WebhookURL   string `long:"webhook-url" env:"WEBHOOK_URL" description:"Delivery webhook URL (digests are logged to stdout when unset)"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of background workers for fetch and delivery tasks"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Digesto/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"America/Sao_Paulo" description:"Timezone for delivery scheduling (e.g., UTC, America/Sao_Paulo)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DataDir:           raw.DataDir,
		DBPath:            cmp.Or(raw.DBPath, filepath.Join(raw.DataDir, "digesto.db")),
		SourcesFile:       raw.SourcesFile,
		MaxCacheSize:      raw.MaxCacheSize,
		MinConfidence:     raw.MinConfidence,
		MaxNewsPerDay:     raw.MaxNewsPerDay,
		PerSourceLimit:    raw.PerSourceLimit,
		FetchTimeout:      raw.FetchTimeout,
		SourceRate:        raw.SourceRate,
		DeliveryHour:      raw.DeliveryHour,
		WebhookURL:        raw.WebhookURL,
		Port:              raw.Port,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		return fmt.Errorf("min-confidence must be within [0,1], got %g", cfg.MinConfidence)
	}
	if cfg.MaxCacheSize <= 0 {
		return fmt.Errorf("max-cache-size must be positive, got %d", cfg.MaxCacheSize)
	}
	if cfg.MaxNewsPerDay <= 0 {
		return fmt.Errorf("max-news must be positive, got %d", cfg.MaxNewsPerDay)
	}
	if _, err := time.Parse("15:04", cfg.DeliveryHour); err != nil {
		return fmt.Errorf("delivery-hour must be HH:MM, got %q", cfg.DeliveryHour)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
