package cmd

import (
	"context"
	"log/slog"
	"time"

	"airshark/internal/ai"
	"airshark/internal/config"
	"airshark/internal/digest"
	"airshark/internal/feed"
	"airshark/internal/ingest"
	"airshark/internal/metrics"
	"airshark/internal/redisclient"
	"airshark/internal/rotation"
	"airshark/internal/storage"
	"airshark/internal/twitterapi"

	"github.com/redis/go-redis/v9"
)

// pipeline is the wired set of components shared by serve, fetch and digest.
type pipeline struct {
	durations    config.Durations
	store        *storage.MemoryStore
	rotation     *rotation.Scheduler
	orchestrator *ingest.Orchestrator
	feed         *feed.Service
	metrics      *metrics.Metrics
	rdb          *redis.Client
}

func (p *pipeline) Close() {
	if p.rdb != nil {
		_ = p.rdb.Close()
	}
}

func buildPipeline(ctx context.Context, cfg config.Config) (*pipeline, error) {
	d, err := cfg.ParseDurations()
	if err != nil {
		return nil, err
	}
	if cfg.Sources.TwitterAPI.APIKey == "" {
		slog.Warn("twitterapi: no api key configured; every fetch will fail authentication")
	}

	p := &pipeline{durations: d, metrics: metrics.New()}

	var cache storage.Cache
	if cfg.Redis.Addr != "" {
		rdb := redisclient.New(cfg.Redis)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := redisclient.Ping(pingCtx, rdb)
		cancel()
		if err != nil {
			slog.Warn("redis: unavailable, running without durable cache", "error", err)
			_ = rdb.Close()
		} else {
			p.rdb = rdb
			cache = storage.NewRedisCache(rdb)
		}
	}

	p.store = storage.NewMemoryStore(storage.Policy{
		StaleAfter:        d.StaleAfter,
		RetainFor:         d.RetainFor,
		KeepUnknownTokens: *cfg.Pipeline.KeepUnknownTokens,
	}, cache)

	if rc, ok := cache.(*storage.RedisCache); ok {
		n, err := rc.LoadInto(ctx, p.store, time.Now())
		if err != nil {
			slog.Warn("redis: restore failed", "restored", n, "error", err)
		} else {
			slog.Info("redis: restored cached posts", "restored", n)
		}
	}

	tw := cfg.Sources.TwitterAPI
	p.rotation = rotation.New(tw.Queries, d.FetchInterval)
	p.orchestrator = ingest.New(
		twitterapi.NewClient(tw.BaseURL, tw.APIKey, tw.QueryType),
		p.store,
		p.rotation,
		ingest.Options{
			MaxCallsPerHour:  tw.MaxCallsPerHour,
			CycleTimeout:     d.FetchTimeout,
			MaxCyclesPerPass: cfg.Pipeline.MaxCyclesPerPass,
			Metrics:          p.metrics,
		},
	)
	p.feed = feed.NewService(p.store)
	return p, nil
}

func (p *pipeline) digestBuilder(cfg config.Config) *digest.Builder {
	b := &digest.Builder{
		Feed:        p.feed,
		OutputDir:   cfg.Digest.OutputDir,
		TopN:        cfg.Digest.TopN,
		MinPosts:    cfg.Digest.MinPosts,
		Language:    cfg.Digest.Language,
		Title:       cfg.Digest.Title,
		IncludeScam: cfg.Digest.IncludeScam,
	}
	if cfg.OpenAI.APIKey != "" {
		c, err := ai.NewOpenAI(ai.Config{APIKey: cfg.OpenAI.APIKey, Model: cfg.OpenAI.Model, BaseURL: cfg.OpenAI.BaseURL})
		if err != nil {
			slog.Warn("openai: summaries disabled", "error", err)
		} else {
			b.Summarizer = c
		}
	}
	return b
}
