package search

import (
	"context"
	"fmt"
	"log"
	"time"

	"studytube/internal/models"
	"studytube/shared/scheduler"
)

// CacheMaintainer is the slice of the cache store the maintenance agent
// needs. Satisfied by cache.Store.
type CacheMaintainer interface {
	Stats(ctx context.Context) (*models.CacheStats, error)
	SweepOrphanedEmbeddings(ctx context.Context) (int, error)
}

// MaintenanceAgent implements the scheduler.Agent interface. Each run
// removes query embeddings whose cache entry has expired and logs cache
// statistics.
type MaintenanceAgent struct {
	store CacheMaintainer
}

func NewMaintenanceAgent(store CacheMaintainer) *MaintenanceAgent {
	return &MaintenanceAgent{store: store}
}

func (a *MaintenanceAgent) Name() string {
	return "Cache Maintenance"
}

func (a *MaintenanceAgent) Initialize() error {
	log.Printf("Initializing %s...", a.Name())
	return nil
}

func (a *MaintenanceAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()

	removed, err := a.store.SweepOrphanedEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep orphaned embeddings: %w", err)
	}
	if removed > 0 {
		log.Printf("Removed %d orphaned query embeddings", removed)
	}

	metrics := &maintenanceMetrics{orphansRemoved: removed}

	stats, err := a.store.Stats(ctx)
	if err != nil {
		// Stats are informational, the sweep already succeeded
		if events != nil && events.OnPartialFailure != nil {
			events.OnPartialFailure(fmt.Errorf("failed to collect cache stats: %w", err), time.Since(startTime))
		}
	} else {
		metrics.stats = stats
		log.Printf("Cache holds %d searches (%d regular, %d educational)",
			stats.TotalCachedSearches, stats.RegularSearches, stats.EducationalSearches)
	}

	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, time.Since(startTime))
	}
	return nil
}

type maintenanceMetrics struct {
	orphansRemoved int
	stats          *models.CacheStats
}

func (m *maintenanceMetrics) GetSummary() string {
	if m.stats == nil {
		return fmt.Sprintf("removed %d orphaned embeddings", m.orphansRemoved)
	}
	return fmt.Sprintf("removed %d orphaned embeddings, %d searches cached (%d educational)",
		m.orphansRemoved, m.stats.TotalCachedSearches, m.stats.EducationalSearches)
}
