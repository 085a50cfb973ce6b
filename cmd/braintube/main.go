package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/martinmana808/braintube/internal/ai"
	"github.com/martinmana808/braintube/internal/cache"
	"github.com/martinmana808/braintube/internal/config"
	"github.com/martinmana808/braintube/internal/feed"
	"github.com/martinmana808/braintube/internal/quota"
	"github.com/martinmana808/braintube/internal/server"
	"github.com/martinmana808/braintube/internal/service"
	"github.com/martinmana808/braintube/internal/store"
	"github.com/martinmana808/braintube/internal/transcript"
	"github.com/martinmana808/braintube/internal/youtube"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use env DATABASE_URL")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Run migrations.
	absMigrations, err := filepath.Abs("migrations")
	if err != nil {
		absMigrations = "migrations"
	}
	if _, err := os.Stat(absMigrations); err != nil {
		if exe, e := os.Executable(); e == nil {
			absMigrations = filepath.Join(filepath.Dir(exe), "migrations")
		}
	}
	// Fail fast on an unreachable database before the migration runner.
	if err := store.Ping(cfg.DatabaseURL); err != nil {
		fmt.Fprintf(os.Stderr, "db preflight: %v\n", err)
		os.Exit(1)
	}

	migrationsPath := "file://" + absMigrations
	if err := store.RunMigrations(cfg.DatabaseURL, migrationsPath); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	// Connect to Redis if REDIS_URL is configured.
	var rds *cache.Redis
	var appStore store.Store = pg
	if cfg.RedisURL != "" {
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer rds.Close()

		if err := rds.Ping(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "redis ping: %v\n", err)
			os.Exit(1)
		}

		appStore = store.NewCachedStore(pg, rds)
		fmt.Fprintln(os.Stderr, "redis connected (caching enabled)")
	} else {
		fmt.Fprintln(os.Stderr, "redis disabled (REDIS_URL not set)")
	}

	// Seed the quota tracker from the persisted counters so a restart does
	// not forget the day's consumption.
	var trackerOpts []quota.Option
	if rds != nil {
		if p, ok := cache.LoadQuota(ctx, rds); ok {
			trackerOpts = append(trackerOpts, quota.WithInitial(quota.Snapshot{
				Date:    p.Date,
				YouTube: p.YouTube,
				Groq:    p.Groq,
			}))
		}
	}
	tracker := quota.New(trackerOpts...)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persist quota counters as they change.
	if rds != nil {
		snaps := make(chan quota.Snapshot, 16)
		tracker.Subscribe(snaps)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case s := <-snaps:
					if err := cache.SaveQuota(ctx, rds, cache.QuotaPayload{
						Date:    s.Date,
						YouTube: s.YouTube,
						Groq:    s.Groq,
					}); err != nil {
						log.Printf("quota persist: %v", err)
					}
				}
			}
		}()
	}

	// Hydrate the in-memory feed state: the Redis mirror first for the fast
	// path, then the durable channel caches and annotations, which win.
	state := feed.NewState()
	if rds != nil {
		if videos, ok := cache.LoadFeed(ctx, rds); ok {
			state.HydrateAccumulator(videos)
		}
	}
	if channels, err := appStore.ListChannels(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "load channels: %v\n", err)
		os.Exit(1)
	} else {
		state.HydrateChannels(channels)
	}
	if states, err := appStore.ListVideoStates(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "load video states: %v\n", err)
		os.Exit(1)
	} else {
		state.HydrateStates(states)
	}

	// Create the Groq summarizer if GROQ_API_KEY is configured.
	var summarizer service.Summarizer
	if cfg.GroqAPIKey != "" {
		summarizer = ai.NewClient(cfg.GroqAPIKey, tracker)
		fmt.Fprintln(os.Stderr, "summaries enabled (Groq)")
	} else {
		fmt.Fprintln(os.Stderr, "summaries disabled (GROQ_API_KEY not set)")
	}

	svc := service.New(service.Config{
		Store:       appStore,
		Source:      youtube.NewClient(cfg.YouTubeAPIKey, tracker),
		State:       state,
		Redis:       rds,
		Summarizer:  summarizer,
		Transcripts: transcript.NewFetcher(),
	})

	sweeper := service.NewSweeper(svc, cfg.SyncInterval)
	go sweeper.Run(ctx)

	// Background summary worker when both Redis and Groq are available.
	if rds != nil && summarizer != nil {
		go svc.RunSummaryWorker(ctx)
	}

	srv := server.New(svc, sweeper, tracker, cfg)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}
