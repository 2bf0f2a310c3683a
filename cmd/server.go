package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/jeffypooo/proctop/internal/config"
	"github.com/jeffypooo/proctop/internal/metrics"
	"github.com/jeffypooo/proctop/internal/source"
	"github.com/jeffypooo/proctop/internal/web"
)

func main() {
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	src, err := source.New(cfg.SourceOptions())
	if err != nil {
		log.Fatalf("Error creating counter source: %v", err)
	}

	e := newServer(cfg, src)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Error(err)
	}
}

type server struct {
	cfg config.Config
	src metrics.CounterSource
	// shared backs /api/snapshot; every SSE stream gets its own sampler so
	// streams do not advance each other's rate state.
	shared *metrics.Sampler
}

func newServer(cfg config.Config, src metrics.CounterSource) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(cfg.Level())
	e.Use(middleware.Recover())

	s := &server{
		cfg:    cfg,
		src:    src,
		shared: metrics.NewSampler(src, cfg.SamplerOptions(e.Logger)),
	}
	e.GET("/", s.rootHandler)
	e.GET("/api/snapshot", s.apiSnapshotHandler)
	e.GET("/api/snapshot/sse", s.apiSnapshotSSEHandler)
	return e
}

func (s *server) rootHandler(c echo.Context) error {
	intervalParam := c.QueryParam("interval")
	if intervalParam == "" {
		intervalParam = s.cfg.Interval.String()
	}
	limitParam := c.QueryParam("limit")
	if limitParam == "" {
		limitParam = strconv.Itoa(s.cfg.ProcLimit)
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	return web.Index(intervalParam, limitParam).Render(c.Request().Context(), c.Response().Writer)
}

// apiSnapshotHandler samples the shared sampler once. Rates cover the time
// since the previous request to this endpoint.
func (s *server) apiSnapshotHandler(c echo.Context) error {
	v, err := s.parseView(c)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	snap := s.shared.Sample()
	snap.Processes = metrics.Arrange(snap.Processes, v.sort, v.dir, v.limit)
	return c.JSON(http.StatusOK, snap)
}

func (s *server) apiSnapshotSSEHandler(c echo.Context) error {
	c.Logger().Info("SSE request received", "remote_addr", c.Request().RemoteAddr, "url", c.Request().URL.String())

	interval, err := parseInterval(c.QueryParam("interval"), s.cfg.Interval)
	if err != nil {
		return c.String(http.StatusBadRequest, fmt.Sprintf("Invalid interval: %v", err))
	}
	v, err := s.parseView(c)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	resp := c.Response()
	resp.Header().Set("Content-Type", "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("Access-Control-Allow-Origin", "*")

	fmt.Fprintf(resp.Writer, "event: connected\ndata: Connected to metrics stream\n\n")
	resp.Flush()

	ctx := c.Request().Context()
	sampler := metrics.NewSampler(s.src, s.cfg.SamplerOptions(c.Logger()))
	for snap := range sampler.Stream(ctx, interval) {
		procs := metrics.Arrange(snap.Processes, v.sort, v.dir, v.limit)

		var buf strings.Builder
		if err := web.SnapshotDisplay(snap, procs).Render(ctx, &buf); err != nil {
			c.Logger().Errorf("Error rendering snapshot: %v", err)
			continue
		}
		htmlContent := strings.ReplaceAll(buf.String(), "\n", " ")
		if _, err := fmt.Fprintf(resp.Writer, "event: metrics\ndata: %s\n\n", htmlContent); err != nil {
			c.Logger().Infof("Client disconnected: %v", err)
			return nil
		}
		resp.Flush()
	}
	c.Logger().Info("Client disconnected (context done)")
	return nil
}

type view struct {
	sort  metrics.ProcSort
	dir   metrics.SortDirection
	limit int
}

func (s *server) parseView(c echo.Context) (view, error) {
	v := view{
		sort:  metrics.ProcSort(s.cfg.ProcSort),
		dir:   metrics.SortDirection(s.cfg.SortDirection),
		limit: s.cfg.ProcLimit,
	}
	if p := c.QueryParam("sort"); p != "" {
		by, ok := metrics.ParseProcSort(p)
		if !ok {
			return view{}, fmt.Errorf("invalid sort: %q", p)
		}
		v.sort = by
	}
	if p := c.QueryParam("dir"); p != "" {
		dir, ok := metrics.ParseSortDirection(p)
		if !ok {
			return view{}, fmt.Errorf("invalid dir: %q", p)
		}
		v.dir = dir
	}
	if p := c.QueryParam("limit"); p != "" {
		limit, err := strconv.Atoi(p)
		if err != nil || limit <= 0 {
			return view{}, fmt.Errorf("invalid limit: %q", p)
		}
		v.limit = limit
	}
	return v, nil
}

// parseInterval accepts Go durations ("500ms", "2s") or a bare number of
// seconds ("1.5").
func parseInterval(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		seconds, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0, err
		}
		d = time.Duration(seconds * float64(time.Second))
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", raw)
	}
	return d, nil
}
