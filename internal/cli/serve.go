package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/matzehuels/boardsync/internal/server"
	"github.com/matzehuels/boardsync/pkg/auth"
	"github.com/matzehuels/boardsync/pkg/cache"
	"github.com/matzehuels/boardsync/pkg/idempotency"
)

// redisPrefix namespaces the backend's cache keys.
const redisPrefix = "boardsync:"

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP backend for the board panel",
		Long: `Run the HTTP backend used by the Miro board panel.

The backend signs users in with Miro OAuth, proxies widget listings, runs
layouts and syncs, and receives Miro webhooks.

Storage follows the configuration: with storage.redis_url the cache, OAuth
state and idempotency keys live in Redis; with storage.mongo_url tokens are
kept in MongoDB. Without them everything stays in process, except the cache,
which falls back to the local cache directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.Config.Server.Addr = addr
			}
			return c.runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context) error {
	deps, cleanup, err := c.serverDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.New(deps)
	printSuccess("Listening on %s", c.Config.Server.Addr)
	printDetail("Layout provider: %s", c.Config.Layout.Provider)
	if !deps.OAuth.Configured() && c.Config.Miro.AccessToken == "" {
		printWarning("No Miro client secret or access token configured, sign-in is disabled")
	}

	err = srv.Run(ctx)
	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serverDeps opens the configured stores. cleanup closes them.
func (c *CLI) serverDeps(ctx context.Context) (server.Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (server.Deps, func(), error) {
		cleanup()
		return server.Deps{}, func() {}, err
	}

	deps := server.Deps{
		Config: c.Config,
		Logger: c.Logger,
		OAuth:  c.oauth(),
	}

	st := c.Config.Storage
	if st.RedisURL != "" {
		opts, err := redis.ParseURL(st.RedisURL)
		if err != nil {
			return fail(fmt.Errorf("parse redis url: %w", err))
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fail(fmt.Errorf("connect to redis: %w", err))
		}
		rc := cache.NewRedisCacheFromClient(client, redisPrefix)
		closers = append(closers, func() { rc.Close() })

		deps.Cache = rc
		deps.States = auth.NewRedisStateStore(client, redisPrefix+"oauth_state:")
		deps.Idempotency = idempotency.NewRedisStore(client, redisPrefix+"idempotency:", idempotency.DefaultTTL)
		c.Logger.Info("using redis", "addr", opts.Addr)
	} else {
		fc, err := c.newCache(false)
		if err != nil {
			return fail(fmt.Errorf("open cache: %w", err))
		}
		closers = append(closers, func() { fc.Close() })
		deps.Cache = fc
	}

	if st.MongoURL != "" {
		tokens, err := auth.NewMongoTokenStore(ctx, st.MongoURL, st.MongoDatabase, "")
		if err != nil {
			return fail(fmt.Errorf("connect to mongodb: %w", err))
		}
		closers = append(closers, func() { tokens.Close(context.Background()) })
		deps.Tokens = tokens
		c.Logger.Info("using mongodb token store", "database", st.MongoDatabase)
	} else if st.TokenDir != "" {
		tokens, err := auth.NewFileTokenStore(st.TokenDir)
		if err != nil {
			return fail(err)
		}
		deps.Tokens = tokens
	}

	engine := c.newEngine(deps.Cache)
	closers = append(closers, func() { engine.Close() })
	deps.Layout = engine

	return deps, cleanup, nil
}
