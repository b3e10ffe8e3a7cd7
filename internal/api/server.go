// Package api serves the feed over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"airshark/internal/feed"
	"airshark/internal/metrics"
	"airshark/internal/rotation"

	"github.com/gin-gonic/gin"
)

// Refresher runs a throttled fetch pass and reports how many posts it accepted.
type Refresher interface {
	Refresh(ctx context.Context, now time.Time) int
}

// Querier answers feed queries.
type Querier interface {
	Query(opts feed.Options, cursor string) (feed.Page, error)
}

// StatusFunc reports pipeline diagnostics for /api/status.
type StatusFunc func() Status

type Status struct {
	RetainedPosts  int            `json:"retained_posts"`
	RetainedTokens int            `json:"retained_tokens"`
	Rotation       rotation.State `json:"rotation"`
}

type Server struct {
	refresher Refresher
	feed      Querier
	status    StatusFunc
	metrics   *metrics.Metrics
	engine    *gin.Engine
}

// New builds the router. m and status may be nil.
func New(refresher Refresher, q Querier, status StatusFunc, m *metrics.Metrics) *Server {
	s := &Server{refresher: refresher, feed: q, status: status, metrics: m}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	if m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := r.Group("/api")
	api.GET("/tweets", s.getTweets)
	api.POST("/refresh", s.postRefresh)
	api.GET("/status", s.getStatus)
	s.engine = r
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second, // a refresh pass may run inside the request
		IdleTimeout:  120 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("api: listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("api: stopped")
	return nil
}

type tweetsResponse struct {
	feed.Page
	NewTweetsFound int `json:"new_tweets_found"`
}

func (s *Server) getTweets(c *gin.Context) {
	opts, ok := s.options(c)
	if !ok {
		return
	}
	found := 0
	if c.DefaultQuery("refresh", "true") != "false" {
		found = s.refresher.Refresh(c.Request.Context(), time.Now())
	}
	s.respondFeed(c, opts, found)
}

func (s *Server) postRefresh(c *gin.Context) {
	opts, ok := s.options(c)
	if !ok {
		return
	}
	found := s.refresher.Refresh(c.Request.Context(), time.Now())
	s.respondFeed(c, opts, found)
}

func (s *Server) getStatus(c *gin.Context) {
	if s.status == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "status unavailable"})
		return
	}
	c.JSON(http.StatusOK, s.status())
}

// options parses the feed parameters, answering 400 when they are invalid. Bad
// parameters never reach the provider.
func (s *Server) options(c *gin.Context) (feed.Options, bool) {
	opts, err := parseOptions(c)
	if err == nil {
		err = feed.Validate(opts, c.Query("cursor"))
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return feed.Options{}, false
	}
	return opts, true
}

func (s *Server) respondFeed(c *gin.Context, opts feed.Options, found int) {
	page, err := s.feed.Query(opts, c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tweetsResponse{Page: page, NewTweetsFound: found})
}

func parseOptions(c *gin.Context) (feed.Options, error) {
	opts := feed.DefaultOptions()
	flags := []struct {
		name string
		dst  *bool
	}{
		{"show_scam", &opts.ShowScam},
		{"show_non_scam", &opts.ShowNonScam},
		{"show_verified", &opts.ShowVerified},
		{"show_non_verified", &opts.ShowNonVerified},
		{"show_unknown_tokens", &opts.ShowUnknownTokens},
	}
	for _, f := range flags {
		raw, ok := c.GetQuery(f.name)
		if !ok {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return feed.Options{}, errors.New("invalid " + f.name + ": " + raw)
		}
		*f.dst = v
	}

	opts.Search = c.Query("search")
	opts.Date = c.Query("date")
	opts.Token = strings.TrimPrefix(c.Query("token"), "$")

	sortBy, err := feed.ParseSortBy(c.Query("sort_by"))
	if err != nil {
		return feed.Options{}, err
	}
	opts.SortBy = sortBy

	ints := []struct {
		name string
		dst  *int
	}{
		{"min_engagement", &opts.MinEngagement},
		{"limit", &opts.Limit},
	}
	for _, f := range ints {
		raw, ok := c.GetQuery(f.name)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return feed.Options{}, errors.New("invalid " + f.name + ": " + raw)
		}
		*f.dst = v
	}
	return opts, nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("api: request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}
