package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/structmine/structmine/internal/server"
	"github.com/structmine/structmine/pkg/cache"
	"github.com/structmine/structmine/pkg/store"
)

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		mongoURI   string
		redisAddr  string
		cacheScope string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server.

The server exposes detection over HTTP: POST raw MPS text to /api/detect
and query recorded runs under /api/runs. Without --mongo, run history is
kept in memory and lost on restart. With --redis, detection results are
cached in Redis instead of the local filesystem.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			var st store.Store = store.NewMemoryStore()
			if mongoURI != "" {
				st, err = store.NewMongoStore(ctx, store.MongoConfig{URI: mongoURI})
				if err != nil {
					return fmt.Errorf("connect mongodb: %w", err)
				}
			}

			var cch cache.Cache
			switch {
			case noCache:
				cch = cache.NewNullCache()
			case redisAddr != "":
				cch, err = cache.NewRedisCache(ctx, cache.RedisConfig{Addr: redisAddr})
				if err != nil {
					return fmt.Errorf("connect redis: %w", err)
				}
			default:
				cch, err = newCache(cfg, false)
				if err != nil {
					return err
				}
			}

			var keyer cache.Keyer
			if cacheScope != "" {
				keyer = cache.NewScopedKeyer(nil, cacheScope+":")
			}

			srv, err := server.New(server.Config{
				Addr:   addr,
				Cache:  cch,
				Keyer:  keyer,
				Store:  st,
				Logger: c.Logger,
			})
			if err != nil {
				return err
			}
			defer srv.Close(ctx)

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&mongoURI, "mongo", "", "MongoDB URI for persistent run history")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address for the detection cache")
	cmd.Flags().StringVar(&cacheScope, "cache-scope", "", "key prefix isolating this deployment on a shared cache")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}
