package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"
	"golang.org/x/term"

	"github.com/jeffypooo/proctop/internal/config"
	"github.com/jeffypooo/proctop/internal/metrics"
	"github.com/jeffypooo/proctop/internal/source"
)

func main() {
	fs := flag.NewFlagSet("proctop", flag.ExitOnError)
	watch := fs.Bool("watch", false, "keep printing a snapshot every interval until interrupted")
	count := fs.Int("count", 0, "stop after this many snapshots in watch mode (0 = unlimited)")
	cfg, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger := log.New("proctop")
	logger.SetLevel(cfg.Level())

	src, err := source.New(cfg.SourceOptions())
	if err != nil {
		log.Fatalf("Error creating counter source: %v", err)
	}
	sampler := metrics.NewSampler(src, cfg.SamplerOptions(logger))

	tty := term.IsTerminal(int(os.Stdout.Fd()))
	if !*watch {
		// the first sample only sets baselines
		sampler.Sample()
		time.Sleep(cfg.Interval)
		if err := dump(sampler.Sample(), cfg, tty); err != nil {
			log.Fatalf("Error marshalling snapshot: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n := 0
	for snap := range sampler.Stream(ctx, cfg.Interval) {
		if tty {
			fmt.Print("\033[H\033[2J")
		}
		if err := dump(snap, cfg, tty); err != nil {
			log.Fatalf("Error marshalling snapshot: %v", err)
		}
		n++
		if *count > 0 && n >= *count {
			return
		}
	}
}

// dump prints indented JSON on a terminal and one line per snapshot otherwise.
func dump(snap metrics.Snapshot, cfg config.Config, indent bool) error {
	snap.Processes = metrics.Arrange(snap.Processes,
		metrics.ProcSort(cfg.ProcSort), metrics.SortDirection(cfg.SortDirection), cfg.ProcLimit)

	var (
		out []byte
		err error
	)
	if indent {
		out, err = json.MarshalIndent(snap, "", " ")
	} else {
		out, err = json.Marshal(snap)
	}
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
