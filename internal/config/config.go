package config

import (
	"fmt"
	"time"
)

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // text or json
}

// RedisConfig holds redis connection settings. An empty Addr disables the durable cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TwitterAPIConfig controls the twitterapi.io data source.
type TwitterAPIConfig struct {
	BaseURL         string   `mapstructure:"base_url"`
	APIKey          string   `mapstructure:"api_key"`
	QueryType       string   `mapstructure:"query_type"`     // Top or Latest
	FetchInterval   string   `mapstructure:"fetch_interval"` // duration string, e.g., "10m"
	Timeout         string   `mapstructure:"timeout"`        // per fetch cycle
	MaxCallsPerHour int      `mapstructure:"max_calls_per_hour"`
	Queries         []string `mapstructure:"queries"`
}

// DataSources groups available providers.
type DataSources struct {
	TwitterAPI TwitterAPIConfig `mapstructure:"twitterapi"`
}

// PipelineConfig holds the store windows and the fetch pass shape.
type PipelineConfig struct {
	StaleAfter        string `mapstructure:"stale_after"`
	RetainFor         string `mapstructure:"retain_for"`
	SweepInterval     string `mapstructure:"sweep_interval"`
	KeepUnknownTokens *bool  `mapstructure:"keep_unknown_tokens"`
	MaxCyclesPerPass  int    `mapstructure:"max_cycles_per_pass"`
}

// ServerConfig controls the feed HTTP API.
type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	GinMode string `mapstructure:"gin_mode"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// DigestConfig controls the markdown digest export.
type DigestConfig struct {
	OutputDir   string `mapstructure:"output_dir"`
	TopN        int    `mapstructure:"top_n"`
	MinPosts    int    `mapstructure:"min_posts"`
	Language    string `mapstructure:"language"`
	Title       string `mapstructure:"title"`    // supports {.CurrentDate} and {.Count}
	Interval    string `mapstructure:"interval"` // empty disables the digest worker in serve
	IncludeScam bool   `mapstructure:"include_scam"`
}

// Config is the top-level configuration structure.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Sources  DataSources    `mapstructure:"sources"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Server   ServerConfig   `mapstructure:"server"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Digest   DigestConfig   `mapstructure:"digest"`
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.LogFormat == "" {
		c.App.LogFormat = "text"
	}
	tw := &c.Sources.TwitterAPI
	if tw.BaseURL == "" {
		tw.BaseURL = "https://api.twitterapi.io"
	}
	if tw.QueryType == "" {
		tw.QueryType = "Top"
	}
	if tw.FetchInterval == "" {
		tw.FetchInterval = "10m"
	}
	if tw.Timeout == "" {
		tw.Timeout = "30s"
	}
	if tw.MaxCallsPerHour == 0 {
		tw.MaxCallsPerHour = 6
	}
	if c.Pipeline.StaleAfter == "" {
		c.Pipeline.StaleAfter = "168h"
	}
	if c.Pipeline.RetainFor == "" {
		c.Pipeline.RetainFor = "720h"
	}
	if c.Pipeline.SweepInterval == "" {
		c.Pipeline.SweepInterval = "1h"
	}
	if c.Pipeline.KeepUnknownTokens == nil {
		keep := true
		c.Pipeline.KeepUnknownTokens = &keep
	}
	if c.Pipeline.MaxCyclesPerPass == 0 {
		c.Pipeline.MaxCyclesPerPass = 10
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3001"
	}
	if c.Server.GinMode == "" {
		c.Server.GinMode = "release"
	}
	if c.Digest.OutputDir == "" {
		c.Digest.OutputDir = "./out"
	}
	if c.Digest.TopN == 0 {
		c.Digest.TopN = 10
	}
	if c.Digest.MinPosts == 0 {
		c.Digest.MinPosts = 3
	}
}

// Durations is the parsed form of every duration string in the config.
type Durations struct {
	FetchInterval time.Duration
	FetchTimeout  time.Duration
	StaleAfter    time.Duration
	RetainFor     time.Duration
	SweepInterval time.Duration
	DigestEvery   time.Duration // zero when the digest worker is disabled
}

// ParseDurations validates and parses the duration fields. Call after FillDefaults.
func (c *Config) ParseDurations() (Durations, error) {
	var d Durations
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"sources.twitterapi.fetch_interval", c.Sources.TwitterAPI.FetchInterval, &d.FetchInterval},
		{"sources.twitterapi.timeout", c.Sources.TwitterAPI.Timeout, &d.FetchTimeout},
		{"pipeline.stale_after", c.Pipeline.StaleAfter, &d.StaleAfter},
		{"pipeline.retain_for", c.Pipeline.RetainFor, &d.RetainFor},
		{"pipeline.sweep_interval", c.Pipeline.SweepInterval, &d.SweepInterval},
		{"digest.interval", c.Digest.Interval, &d.DigestEvery},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		v, err := time.ParseDuration(f.raw)
		if err != nil {
			return Durations{}, fmt.Errorf("invalid %s: %w", f.name, err)
		}
		if v < 0 {
			return Durations{}, fmt.Errorf("invalid %s: negative duration", f.name)
		}
		*f.dst = v
	}
	return d, nil
}
