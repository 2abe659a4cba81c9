// Package cli implements the boardsync command-line interface.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/boardsync/internal/config"
	"github.com/matzehuels/boardsync/pkg/auth"
	"github.com/matzehuels/boardsync/pkg/cache"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/layout"
	"github.com/matzehuels/boardsync/pkg/miro"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "boardsync"

	// tokenKey is the token file of the CLI's Miro session.
	tokenKey = "default"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded by the root command before any subcommand runs.
	Config *config.Config

	configPath string
	envFile    string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Factories
// =============================================================================

// newCache opens the local cache. Sync state and layouts live here.
func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := c.cachePath()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newEngine builds the layout engine for the configured provider.
func (c *CLI) newEngine(ch cache.Cache) *layout.Engine {
	var provider layout.LibraryProvider = layout.Bundled{}
	if c.Config.Layout.Provider == config.ProviderRemote {
		provider = layout.NewRemote(c.Config.Layout.RemoteURL)
	}
	return layout.New(provider,
		layout.WithWorkers(c.Config.Layout.Workers),
		layout.WithCache(ch, cache.NewDefaultKeyer()),
		layout.WithLogger(c.Logger))
}

// tokenStore opens the file store holding the CLI's Miro token.
func (c *CLI) tokenStore() (*auth.FileTokenStore, error) {
	dir := c.Config.Storage.TokenDir
	if dir == "" {
		var err error
		if dir, err = configDir(); err != nil {
			return nil, err
		}
		dir = filepath.Join(dir, "tokens")
	}
	return auth.NewFileTokenStore(dir)
}

func (c *CLI) oauth() *auth.OAuth {
	return auth.NewOAuth(auth.Config{
		ClientID:     c.Config.Miro.ClientID,
		ClientSecret: c.Config.Miro.ClientSecret,
		RedirectURL:  c.Config.RedirectURL(),
	})
}

// miroClient connects to Miro with the configured access token or the token
// saved by `boardsync auth login`. Refreshed tokens are written back.
func (c *CLI) miroClient(ctx context.Context) (*miro.Client, error) {
	opts := []miro.Option{
		miro.WithBaseURL(c.Config.Miro.BaseURL),
		miro.WithRetry(c.Config.Sync.Attempts, c.Config.Sync.BaseDelay),
		miro.WithLogger(c.Logger),
	}
	if tok := c.Config.Miro.AccessToken; tok != "" {
		return miro.NewClient(auth.StaticTokenSource(tok), opts...), nil
	}

	store, err := c.tokenStore()
	if err != nil {
		return nil, err
	}
	tok, err := store.Get(ctx, tokenKey)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "not logged in (run 'boardsync auth login' first)")
		}
		return nil, err
	}
	if tok.Expired() {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "Miro session expired (run 'boardsync auth login')")
	}
	ts := c.oauth().TokenSource(context.WithoutCancel(ctx), store, tokenKey, tok.OAuth2())
	return miro.NewClient(ts, opts...), nil
}

// boardID resolves the target board from a flag or the configuration.
func (c *CLI) boardID(flag string) (string, error) {
	id := flag
	if id == "" {
		id = c.Config.Miro.BoardID
	}
	if id == "" {
		return "", apperrors.New(apperrors.ErrCodeInvalidInput, "no board given (use --board or MIRO_BOARD_ID)")
	}
	return id, apperrors.ValidateBoardID(id)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/boardsync/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configDir returns the config directory using XDG standard (~/.config/boardsync/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
