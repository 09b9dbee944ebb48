package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/glmr-tools/glmr/internal/config"
	"github.com/glmr-tools/glmr/pkg/client"
	"github.com/glmr-tools/glmr/pkg/collector"
	"github.com/glmr-tools/glmr/pkg/httpcache"
	"github.com/glmr-tools/glmr/pkg/logging"
)

func collectCommand() *cli.Command {
	return &cli.Command{
		Name:  "collect",
		Usage: "Collect merge request data and update the local JSONL cache",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "since",
				Usage: "Override the configured updated_after timestamp",
			},
			&cli.StringFlag{
				Name:  "group",
				Usage: "Override the configured group path or ID",
			},
		},
		Action: runCollect,
	}
}

func runCollect(c *cli.Context) error {
	level := logging.LevelInfo
	if c.Bool("verbose") {
		level = logging.LevelDebug
	}
	logging.Setup(logging.Config{
		Level:  level,
		Pretty: c.Bool("pretty"),
	})

	cfg, err := config.Load()
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %s", err), 1)
	}
	if since := c.String("since"); since != "" {
		cfg.ReportSince = since
	}
	if group := c.String("group"); group != "" {
		cfg.GroupIDOrPath = group
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	clientCfg := client.DefaultConfig(cfg.GitLabAPIBase, cfg.GitLabToken)
	clientCfg.PerPage = cfg.PerPage
	clientCfg.Cache = openResponseCache(cfg.RedisAddr)

	apiClient, err := client.New(clientCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("create GitLab client: %s", err), 1)
	}

	col := collector.New(apiClient, collector.Config{
		Group:          cfg.GroupIDOrPath,
		UpdatedAfter:   cfg.ReportSince,
		MaxConcurrency: cfg.MaxConcurrency,
		CacheDir:       cfg.CacheDir,
	})

	summary, err := col.Run(context.Background())
	if err != nil {
		return cli.Exit(fmt.Sprintf("collection failed: %s", err), 1)
	}

	fmt.Printf("Collected %d merge requests across %d projects (considered %d).\n",
		summary.Written, summary.Projects, summary.Seen)
	return nil
}

// openResponseCache builds the optional Redis-backed response cache.
// An unreachable Redis disables the cache rather than failing the run.
func openResponseCache(addr string) *httpcache.Store {
	if addr == "" {
		return nil
	}

	redisClient := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("Redis unreachable, response cache disabled")
		redisClient.Close()
		return nil
	}

	return httpcache.NewStore(redisClient, 0)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("addr", addr).Msg("Serving Prometheus metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn().Err(err).Msg("Metrics listener stopped")
	}
}
