package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/railfreq/extractor/internal/config"
	"github.com/railfreq/extractor/internal/static"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	// Command line flags
	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "Optional YAML config file")
	feedPath := flag.String("feed", "", "Path to the GTFS zip")
	outputDir := flag.String("out", "", "Output directory (recreated on every run)")
	date := flag.String("date", "", "Reference date as YYYYMMDD (default today)")
	routeType := flag.Int("route-type", 0, "GTFS route_type to extract")
	dbPath := flag.String("db", "", "Optional SQLite database for the frequency side table")
	download := flag.Bool("download", false, "Download the feed first if missing or stale")
	workers := flag.Int("workers", 0, "Parallel geometry slicers")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.LoadFile(*configFile); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags win over env and file, but only when given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "feed":
			cfg.FeedPath = *feedPath
		case "out":
			cfg.OutputDir = *outputDir
		case "date":
			cfg.ReferenceDate = *date
		case "route-type":
			cfg.RouteType = *routeType
		case "db":
			cfg.DatabasePath = *dbPath
		case "workers":
			cfg.SliceWorkers = *workers
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *download {
		if _, err := static.EnsureFeed(ctx, cfg, false); err != nil {
			log.Fatalf("Failed to fetch feed: %v", err)
		}
	}

	summary, err := static.Run(ctx, cfg)
	if err != nil {
		log.Fatalf("Extraction failed: %v", err)
	}

	log.Printf("Done: %d segments (%d with geometry), %d stops written to %s",
		summary.Manifest.Counts.Segments, summary.Manifest.Counts.LineFeatures,
		summary.Manifest.Counts.Stops, cfg.OutputDir)
}
