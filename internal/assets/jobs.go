package assets

import (
	"context"
	"sync"
	"time"

	"lumacheckin/internal/shared/constants"
	"lumacheckin/pkg/logger"
)

// JobProcessor keeps the decoder script warm in the background
type JobProcessor struct {
	provider *ScriptProvider
	config   *JobConfig
	log      *logger.Logger
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// JobConfig contains configuration for background jobs
type JobConfig struct {
	RefreshInterval time.Duration
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		RefreshInterval: constants.TTL_STATIC_MEDIUM,
	}
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(provider *ScriptProvider, config *JobConfig, log *logger.Logger) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}
	if log == nil {
		log = logger.GetDefault()
	}

	return &JobProcessor{
		provider: provider,
		config:   config,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start prewarms the script and schedules refreshes
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.wg.Add(1)
	go jp.startRefresher(ctx)
	jp.log.WithFields(map[string]interface{}{
		"refresh_interval": jp.config.RefreshInterval.String(),
		"sources":          len(jp.provider.config.Sources),
	}).Info("Decoder script jobs started")
}

// Stop stops all background jobs and waits for them to exit
func (jp *JobProcessor) Stop() {
	jp.stopOnce.Do(func() { close(jp.done) })
	jp.wg.Wait()
	jp.log.Info("Decoder script jobs stopped")
}

func (jp *JobProcessor) startRefresher(ctx context.Context) {
	defer jp.wg.Done()

	// prewarm is best-effort; the page retries on demand
	if err := jp.provider.EnsureLoaded(ctx); err != nil {
		jp.log.WithError(err).WarnContext(ctx, "Decoder script prewarm failed")
	}

	if jp.config.RefreshInterval <= 0 {
		return
	}

	ticker := time.NewTicker(jp.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.refresh(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) refresh(ctx context.Context) {
	if err := jp.provider.Refresh(ctx); err != nil {
		jp.log.WithError(err).WarnContext(ctx, "Decoder script refresh failed, keeping previous copy")
	}
}

// Provider returns the provider the jobs keep warm
func (jp *JobProcessor) Provider() *ScriptProvider {
	return jp.provider
}

// GetJobStatus returns the status of background jobs
func (jp *JobProcessor) GetJobStatus(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"script_cached":    jp.provider.Cached(ctx),
		"refresh_interval": jp.config.RefreshInterval.String(),
		"script_loaded":    jp.provider.Loaded(),
		"script_source":    jp.provider.Source(),
		"script_loaded_at": jp.provider.LoadedAt(),
	}
}
