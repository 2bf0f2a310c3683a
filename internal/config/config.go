// Package config loads server and CLI settings from an optional YAML file
// and command-line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jeffypooo/proctop/internal/metrics"
	"github.com/jeffypooo/proctop/internal/source"
	"github.com/labstack/gommon/log"
	"gopkg.in/yaml.v3"
)

const (
	defaultListen      = ":8080"
	defaultInterval    = time.Second
	defaultProcLimit   = 10
	defaultReadWorkers = 8
	defaultLogLevel    = "info"
)

type Config struct {
	Listen        string        `yaml:"listen"`
	Interval      time.Duration `yaml:"interval"`
	ProcLimit     int           `yaml:"proc_limit"`
	ProcSort      string        `yaml:"proc_sort"`
	SortDirection string        `yaml:"sort_direction"`
	Source        string        `yaml:"source"`
	ProcRoot      string        `yaml:"proc_root"`
	TickScale     float64       `yaml:"tick_scale"`
	ReadWorkers   int           `yaml:"read_workers"`
	LogLevel      string        `yaml:"log_level"`
}

func Default() Config {
	return Normalize(Config{})
}

// Normalize fills zero or invalid fields with defaults.
func Normalize(cfg Config) Config {
	n := cfg
	if n.Listen == "" {
		n.Listen = defaultListen
	}
	if n.Interval <= 0 {
		n.Interval = defaultInterval
	}
	if n.ProcLimit <= 0 {
		n.ProcLimit = defaultProcLimit
	}
	if _, ok := metrics.ParseProcSort(n.ProcSort); !ok {
		n.ProcSort = string(metrics.ProcSortCpu)
	}
	if _, ok := metrics.ParseSortDirection(n.SortDirection); !ok {
		n.SortDirection = string(metrics.SortDirectionDesc)
	}
	if n.Source == "" {
		n.Source = source.DefaultKind()
	}
	if n.ProcRoot == "" {
		n.ProcRoot = "/proc"
	}
	if n.TickScale <= 0 {
		n.TickScale = metrics.DefaultTickScale
	}
	if n.ReadWorkers <= 0 {
		n.ReadWorkers = defaultReadWorkers
	}
	n.LogLevel = strings.ToLower(strings.TrimSpace(n.LogLevel))
	if _, ok := logLevels[n.LogLevel]; !ok {
		n.LogLevel = defaultLogLevel
	}
	return n
}

// Load reads a YAML file. A missing path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return Normalize(cfg), nil
}

// Parse loads the file named by -config and applies any flags explicitly set
// on the command line on top of it.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	path := fs.String("config", "", "path to a YAML config file")
	listen := fs.String("listen", defaultListen, "HTTP listen address")
	interval := fs.Duration("interval", defaultInterval, "refresh interval (e.g. 500ms, 2s)")
	limit := fs.Int("limit", defaultProcLimit, "number of processes to show")
	sortBy := fs.String("sort", string(metrics.ProcSortCpu), "process sort key: cpu, mem, pid or command")
	dir := fs.String("dir", string(metrics.SortDirectionDesc), "sort direction: asc or desc")
	src := fs.String("source", source.DefaultKind(), "counter source: gopsutil or procfs (default procfs on linux)")
	procRoot := fs.String("proc-root", "/proc", "procfs mount point for the procfs source")
	tickScale := fs.Float64("tick-scale", metrics.DefaultTickScale, "kernel ticks per second")
	workers := fs.Int("workers", defaultReadWorkers, "concurrent per-process reads")
	level := fs.String("log-level", defaultLogLevel, "log level: debug, info, warn, error or off")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg, err := Load(*path)
	if err != nil {
		return Config{}, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = *listen
		case "interval":
			cfg.Interval = *interval
		case "limit":
			cfg.ProcLimit = *limit
		case "sort":
			cfg.ProcSort = *sortBy
		case "dir":
			cfg.SortDirection = *dir
		case "source":
			cfg.Source = *src
		case "proc-root":
			cfg.ProcRoot = *procRoot
		case "tick-scale":
			cfg.TickScale = *tickScale
		case "workers":
			cfg.ReadWorkers = *workers
		case "log-level":
			cfg.LogLevel = *level
		}
	})
	return Normalize(cfg), nil
}

var logLevels = map[string]log.Lvl{
	"debug": log.DEBUG,
	"info":  log.INFO,
	"warn":  log.WARN,
	"error": log.ERROR,
	"off":   log.OFF,
}

func (c Config) Level() log.Lvl {
	if lvl, ok := logLevels[c.LogLevel]; ok {
		return lvl
	}
	return log.INFO
}

func (c Config) SourceOptions() source.Options {
	return source.Options{Kind: c.Source, ProcRoot: c.ProcRoot, TickScale: c.TickScale}
}

func (c Config) SamplerOptions(logger metrics.Logger) metrics.Options {
	return metrics.Options{TickScale: c.TickScale, Workers: c.ReadWorkers, Logger: logger}
}
