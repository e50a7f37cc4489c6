package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"studytube/internal/models"
	"studytube/search"
	"studytube/search/youtube"
	"studytube/shared/cache"
	"studytube/shared/config"
	"studytube/shared/embedding"
	"studytube/shared/scheduler"
)

func main() {
	searchQuery := flag.String("search", "", "run a single search and print the results")
	educational := flag.Bool("educational", false, "treat -search as an educational query")
	maxResults := flag.Int("max-results", models.DefaultMaxResults, "number of results for -search")
	videoID := flag.String("video", "", "print details for a video id or URL")
	once := flag.Bool("once", false, "run one maintenance pass and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := cache.NewStore(&cfg.Redis, &cfg.Cache)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer store.Close()

	embedder, err := embedding.NewGeminiEmbedder(cfg)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}
	index := embedding.NewIndex(embedder, store, cfg.AI.SimilarityThreshold)

	client, err := youtube.NewClient(&cfg.YouTube)
	if err != nil {
		log.Fatalf("Failed to create YouTube client: %v", err)
	}

	svc := search.NewService(store, index, client)

	switch {
	case *searchQuery != "":
		runSearch(ctx, svc, *searchQuery, *maxResults, *educational)
	case *videoID != "":
		runVideoInfo(ctx, svc, *videoID)
	default:
		agent := search.NewMaintenanceAgent(store)
		s := scheduler.New(cfg, agent, func() string {
			stats, err := store.Stats(context.Background())
			if err != nil {
				return fmt.Sprintf("cache stats unavailable: %v", err)
			}
			return fmt.Sprintf("cache: %d searches (%d regular, %d educational)",
				stats.TotalCachedSearches, stats.RegularSearches, stats.EducationalSearches)
		})

		if *once {
			fmt.Println("Running once...")
			if err := agent.Initialize(); err != nil {
				log.Fatalf("Failed to initialize agent: %v", err)
			}
			if err := s.RunOnce(ctx); err != nil {
				log.Fatalf("Failed to run: %v", err)
			}
			return
		}

		fmt.Println("Starting scheduler...")
		if err := s.Start(ctx); err != nil {
			log.Fatalf("Scheduler failed: %v", err)
		}
	}
}

func runSearch(ctx context.Context, svc *search.Service, query string, maxResults int, educational bool) {
	resp, err := svc.Search(ctx, models.SearchRequest{
		Query:       query,
		MaxResults:  maxResults,
		Educational: educational,
	})
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	fmt.Printf("%d results (of %d total):\n", len(resp.Videos), resp.TotalResults)
	for _, v := range resp.Videos {
		line := fmt.Sprintf("  %s  %s", v.ID, v.Title)
		if v.Duration != "" {
			line += fmt.Sprintf(" [%s]", v.Duration)
		}
		if v.ViewCount != "" {
			line += fmt.Sprintf(" (%s views)", v.ViewCount)
		}
		fmt.Println(line)
	}
	if resp.NextPageToken != "" {
		fmt.Printf("next page token: %s\n", resp.NextPageToken)
	}
}

func runVideoInfo(ctx context.Context, svc *search.Service, idOrURL string) {
	info, err := svc.GetVideoInfo(ctx, idOrURL)
	if err != nil {
		log.Fatalf("Failed to get video info: %v", err)
	}
	if info == nil {
		fmt.Println("video not found")
		return
	}

	fmt.Printf("%s\n", info.Title)
	fmt.Printf("  channel:   %s\n", info.ChannelTitle)
	fmt.Printf("  published: %s\n", info.PublishedAt)
	if info.Duration != "" {
		fmt.Printf("  duration:  %s\n", info.Duration)
	}
	fmt.Printf("  views: %s  likes: %s  comments: %s\n", info.ViewCount, info.LikeCount, info.CommentCount)
}
