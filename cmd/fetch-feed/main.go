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

	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "Optional YAML config file")
	feedPath := flag.String("feed", "", "Where to store the GTFS zip")
	url := flag.String("url", "", "Feed URL")
	force := flag.Bool("force", false, "Download even if the archive is fresh")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.LoadFile(*configFile); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *feedPath != "" {
		cfg.FeedPath = *feedPath
	}
	if *url != "" {
		cfg.FeedURL = *url
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	downloaded, err := static.EnsureFeed(ctx, cfg, *force)
	if err != nil {
		log.Fatalf("Failed to fetch feed: %v", err)
	}
	if downloaded {
		log.Printf("Feed saved to %s", cfg.FeedPath)
	}
}
