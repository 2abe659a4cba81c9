// Package config loads boardsync settings.
//
// Sources are applied in order, later ones winning:
//
//  1. built-in defaults ([Default])
//  2. a .env file, which only fills variables not already set
//  3. a TOML file (boardsync.toml in the working directory, or --config)
//  4. environment variables (BOARDSYNC_*, MIRO_*)
//
// Command-line flags are applied by the CLI on top of the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/boardsync/pkg/boardsync"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/httputil"
	"github.com/matzehuels/boardsync/pkg/layout"
	"github.com/matzehuels/boardsync/pkg/miro"
	"github.com/matzehuels/boardsync/pkg/webhook"
)

// DefaultFile is the TOML file read when no path is given.
const DefaultFile = "boardsync.toml"

// Layout providers.
const (
	ProviderBundled = "bundled"
	ProviderRemote  = "remote"
)

// Config is the full application configuration.
type Config struct {
	Server  Server  `toml:"server"`
	Miro    Miro    `toml:"miro"`
	Layout  Layout  `toml:"layout"`
	Sync    Sync    `toml:"sync"`
	Storage Storage `toml:"storage"`
	Webhook Webhook `toml:"webhook"`
	Graph   Graph   `toml:"graph"`
}

// Server configures `boardsync serve`.
type Server struct {
	Addr            string        `toml:"addr"`
	PublicURL       string        `toml:"public_url"` // used to build the OAuth redirect URL
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	MaxBodyBytes    int64         `toml:"max_body_bytes"`
}

// Miro configures the REST client and the OAuth app.
type Miro struct {
	BaseURL       string  `toml:"base_url"`
	ClientID      string  `toml:"client_id"`
	ClientSecret  string  `toml:"client_secret"`
	RedirectURL   string  `toml:"redirect_url"`
	AccessToken   string  `toml:"access_token"` // static token, skips OAuth
	BoardID       string  `toml:"board_id"`     // default board for CLI commands
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// Layout configures the layout engine.
type Layout struct {
	Provider        string `toml:"provider"`
	RemoteURL       string `toml:"remote_url"`
	Workers         int    `toml:"workers"`
	Algorithm       string `toml:"algorithm"`
	NestedAlgorithm string `toml:"nested_algorithm"`
	Direction       string `toml:"direction"`
}

// Sync configures the board sync service and the default column mapping.
type Sync struct {
	Attempts        int                           `toml:"attempts"`
	BaseDelay       time.Duration                 `toml:"base_delay"`
	IDColumn        string                        `toml:"id_column"`
	LabelColumn     string                        `toml:"label_column"`
	TemplateColumn  string                        `toml:"template_column"`
	DefaultTemplate string                        `toml:"default_template"`
	Templates       map[string]boardsync.Template `toml:"templates"`
}

// Storage selects the persistence backends. Empty URLs fall back to
// in-process or file storage.
type Storage struct {
	RedisURL      string `toml:"redis_url"`
	MongoURL      string `toml:"mongo_url"`
	MongoDatabase string `toml:"mongo_database"`
	CacheDir      string `toml:"cache_dir"`
	TokenDir      string `toml:"token_dir"`
}

// Webhook sizes the webhook queue.
type Webhook struct {
	QueueSize int `toml:"queue_size"`
	Workers   int `toml:"workers"`
}

// Graph configures the Microsoft Graph workbook fetcher.
type Graph struct {
	BaseURL     string `toml:"base_url"`
	AccessToken string `toml:"access_token"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:            ":8080",
			PublicURL:       "http://localhost:8080",
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    8 << 20,
		},
		Miro: Miro{
			BaseURL:       miro.DefaultBaseURL,
			RatePerSecond: 10,
			Burst:         20,
		},
		Layout: Layout{
			Provider:  ProviderBundled,
			Algorithm: layout.AlgorithmLayered,
		},
		Sync: Sync{
			Attempts:        httputil.DefaultAttempts,
			BaseDelay:       httputil.DefaultBaseDelay,
			IDColumn:        "id",
			LabelColumn:     "label",
			TemplateColumn:  "template",
			DefaultTemplate: boardsync.DefaultTemplate,
		},
		Storage: Storage{
			MongoDatabase: "boardsync",
		},
		Webhook: Webhook{
			QueueSize: webhook.DefaultCapacity,
			Workers:   webhook.DefaultWorkers,
		},
	}
}

// Load builds the configuration from all sources. An empty path reads
// DefaultFile if it exists; an explicit path must exist. envFile names the
// dotenv file; an empty envFile reads ".env" if it exists.
func Load(path, envFile string) (*Config, error) {
	if err := loadDotenv(envFile); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := cfg.decodeFile(path); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotenv(envFile string) error {
	explicit := envFile != ""
	if !explicit {
		envFile = ".env"
	}
	err := godotenv.Load(envFile)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	return nil
}

func (c *Config) decodeFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return apperrors.New(apperrors.ErrCodeInvalidInput, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// LookupFunc is the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("BOARDSYNC_ADDR", &c.Server.Addr)
	e.str("BOARDSYNC_PUBLIC_URL", &c.Server.PublicURL)
	e.duration("BOARDSYNC_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	e.str("MIRO_API_URL", &c.Miro.BaseURL)
	e.str("MIRO_CLIENT_ID", &c.Miro.ClientID)
	e.str("MIRO_CLIENT_SECRET", &c.Miro.ClientSecret)
	e.str("MIRO_REDIRECT_URL", &c.Miro.RedirectURL)
	e.str("MIRO_ACCESS_TOKEN", &c.Miro.AccessToken)
	e.str("MIRO_BOARD_ID", &c.Miro.BoardID)
	e.float("MIRO_RATE_PER_SECOND", &c.Miro.RatePerSecond)
	e.int("MIRO_BURST", &c.Miro.Burst)

	e.str("BOARDSYNC_LAYOUT_PROVIDER", &c.Layout.Provider)
	e.str("BOARDSYNC_LAYOUT_URL", &c.Layout.RemoteURL)
	e.int("BOARDSYNC_LAYOUT_WORKERS", &c.Layout.Workers)
	e.str("BOARDSYNC_LAYOUT_ALGORITHM", &c.Layout.Algorithm)

	e.int("BOARDSYNC_SYNC_ATTEMPTS", &c.Sync.Attempts)
	e.duration("BOARDSYNC_SYNC_BASE_DELAY", &c.Sync.BaseDelay)

	e.str("BOARDSYNC_REDIS_URL", &c.Storage.RedisURL)
	e.str("BOARDSYNC_MONGO_URL", &c.Storage.MongoURL)
	e.str("BOARDSYNC_MONGO_DATABASE", &c.Storage.MongoDatabase)
	e.str("BOARDSYNC_CACHE_DIR", &c.Storage.CacheDir)
	e.str("BOARDSYNC_TOKEN_DIR", &c.Storage.TokenDir)

	e.int("BOARDSYNC_WEBHOOK_QUEUE", &c.Webhook.QueueSize)
	e.int("BOARDSYNC_WEBHOOK_WORKERS", &c.Webhook.Workers)

	e.str("BOARDSYNC_GRAPH_URL", &c.Graph.BaseURL)
	e.str("BOARDSYNC_GRAPH_TOKEN", &c.Graph.AccessToken)

	return errors.Join(e.errs...)
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Layout.Provider {
	case ProviderBundled:
	case ProviderRemote:
		if err := apperrors.ValidateURL(c.Layout.RemoteURL); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "layout.remote_url")
		}
	default:
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			"layout.provider must be %q or %q, got %q", ProviderBundled, ProviderRemote, c.Layout.Provider)
	}
	if c.Layout.Algorithm != "" && !layout.IsAlgorithm(c.Layout.Algorithm) {
		return apperrors.New(apperrors.ErrCodeInvalidAlgorithm, "layout.algorithm: unknown algorithm %q", c.Layout.Algorithm)
	}
	if c.Layout.NestedAlgorithm != "" && !layout.IsNestedAlgorithm(c.Layout.NestedAlgorithm) {
		return apperrors.New(apperrors.ErrCodeInvalidAlgorithm, "layout.nested_algorithm: unknown algorithm %q", c.Layout.NestedAlgorithm)
	}
	if c.Layout.Workers < 0 || c.Webhook.Workers < 0 || c.Webhook.QueueSize < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "worker and queue sizes must not be negative")
	}
	if c.Sync.Attempts < 1 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "sync.attempts must be at least 1")
	}
	if c.Miro.BoardID != "" {
		if err := apperrors.ValidateBoardID(c.Miro.BoardID); err != nil {
			return err
		}
	}
	return nil
}

// LayoutOptions returns the configured layout defaults.
func (c *Config) LayoutOptions() layout.Options {
	return layout.Options{
		Algorithm:       c.Layout.Algorithm,
		NestedAlgorithm: c.Layout.NestedAlgorithm,
		Direction:       c.Layout.Direction,
	}
}

// Columns returns the configured column mapping.
func (c *Config) Columns() boardsync.Columns {
	return boardsync.Columns{
		IDColumn:        c.Sync.IDColumn,
		LabelColumn:     c.Sync.LabelColumn,
		TemplateColumn:  c.Sync.TemplateColumn,
		DefaultTemplate: c.Sync.DefaultTemplate,
	}
}

// RedirectURL returns the OAuth callback URL, derived from the public URL
// unless set explicitly.
func (c *Config) RedirectURL() string {
	if c.Miro.RedirectURL != "" {
		return c.Miro.RedirectURL
	}
	return strings.TrimRight(c.Server.PublicURL, "/") + "/auth/callback"
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = f
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}
