package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/legalize/pkg/cache"
	"github.com/matzehuels/legalize/pkg/observability/prom"
	"github.com/matzehuels/legalize/pkg/pipeline"
	"github.com/matzehuels/legalize/pkg/server"
)

// serveOpts holds the flags of the serve command.
type serveOpts struct {
	addr        string
	maxDuration time.Duration
	maxBody     int64
	cacheURL    string // redis URL; empty disables the shared cache
	cacheDir    string // local file cache used when cacheURL is empty
	noCache     bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	o := serveOpts{
		addr:        server.DefaultAddr,
		maxDuration: server.DefaultMaxDuration,
		maxBody:     server.DefaultMaxBody,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the legalizer over HTTP",
		Long: `Serve POST /v1/legalize, /healthz and Prometheus /metrics.

Results are cached in Redis when --cache-url is set, otherwise in the local
cache directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), &o)
		},
	}

	cmd.Flags().StringVar(&o.addr, "addr", o.addr, "listen address")
	cmd.Flags().DurationVar(&o.maxDuration, "max-duration", o.maxDuration, "largest annealing budget a request may use")
	cmd.Flags().Int64Var(&o.maxBody, "max-body", o.maxBody, "request body limit in bytes")
	cmd.Flags().StringVar(&o.cacheURL, "cache-url", "", "redis URL for the shared result cache (redis://host:6379/0)")
	cmd.Flags().StringVar(&o.cacheDir, "cache-dir", "", "local result cache directory")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable the result cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, o *serveOpts) error {
	cc, err := c.serverCache(ctx, o)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(cc, cache.NewScopedKeyer(nil, "api:"), c.Logger)
	defer runner.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom.New(reg).Install()

	srv := server.New(server.Config{
		Addr:        o.addr,
		MaxDuration: o.maxDuration,
		MaxBody:     o.maxBody,
		Runner:      runner,
		Gatherer:    reg,
		Logger:      c.Logger,
	})
	printInfo("Listening on %s", StyleValue.Render(o.addr))
	printDetail("annealing budget capped at %s", o.maxDuration)
	return srv.ListenAndServe(ctx)
}

// serverCache opens Redis when configured. An unreachable Redis is not
// fatal; the server then runs without a cache.
func (c *CLI) serverCache(ctx context.Context, o *serveOpts) (cache.Cache, error) {
	if o.noCache {
		return cache.NewNullCache(), nil
	}
	if o.cacheURL == "" {
		return newCache(false, o.cacheDir)
	}
	rc, err := cache.NewRedisCache(ctx, o.cacheURL)
	if err != nil {
		if !errors.Is(err, cache.ErrUnavailable) {
			return nil, fmt.Errorf("cache: %w", err)
		}
		c.Logger.Warn("redis unavailable, caching disabled", "url", o.cacheURL, "err", err)
		return cache.NewNullCache(), nil
	}
	return rc, nil
}
