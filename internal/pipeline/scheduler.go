package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/titleplant/internal/config"
	"github.com/local/titleplant/internal/index"
	"github.com/local/titleplant/internal/metrics"
)

const (
	minWorkers = 1
	maxWorkers = 20
	// batchFactor sizes each queue fetch relative to the worker count so
	// the pool never starves between fetches.
	batchFactor = 10
)

// SchedulerStore is the slice of the index store the scheduler itself
// uses; workers get their own narrower Queue view.
type SchedulerStore interface {
	FetchNextBatch(ctx context.Context, stage index.Stage, limit int, afterID int64) ([]index.Document, error)
	ResetStale(ctx context.Context, threshold time.Duration) (int64, error)
	RequeueFailed(ctx context.Context) (int64, error)
}

// Scheduler drives one stage run: it feeds queue batches to a worker pool,
// sweeps stale claims, enforces the stage cap and checkpoints progress so
// an interrupted run resumes where it stopped.
type Scheduler struct {
	store  SchedulerStore
	worker *Worker
	stats  *Stats
	cfg    config.WorkerConfig
	runID  string
}

func NewScheduler(store SchedulerStore, worker *Worker, stats *Stats, cfg config.WorkerConfig) *Scheduler {
	return &Scheduler{
		store:  store,
		worker: worker,
		stats:  stats,
		cfg:    cfg,
		runID:  uuid.NewString(),
	}
}

// Run executes the stage until the queue drains, the stage cap is reached
// or ctx is cancelled. On cancellation in-flight documents finish and a
// final checkpoint is written before returning ctx.Err().
func (s *Scheduler) Run(ctx context.Context, stage index.Stage) error {
	workers := clamp(s.cfg.Concurrency, minWorkers, maxWorkers)

	if stage.RetryFailed {
		n, err := s.store.RequeueFailed(ctx)
		if err != nil {
			return err
		}
		log.Info().Int64("count", n).Msg("requeued failed documents")
	}

	n, err := s.store.ResetStale(ctx, s.cfg.StaleThreshold)
	if err != nil {
		return err
	}
	metrics.AddStaleResets(n)

	var cursor atomic.Int64
	cursor.Store(s.resumeCursor(stage))

	log.Info().
		Str("stage", stage.Name).
		Str("run_id", s.runID).
		Int("workers", workers).
		Int64("cursor", cursor.Load()).
		Msg("download run starting")

	jobs := make(chan index.Document)
	var wg sync.WaitGroup
	done := make(chan struct{}, workers*batchFactor)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				doc := doc
				s.worker.Process(ctx, &doc)
				done <- struct{}{}
			}
		}()
	}

	// Checkpoint cadence and the periodic stale sweep run beside the
	// producer loop.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go s.sweepStale(sweepCtx)

	go func() {
		var sinceCheckpoint int
		for range done {
			sinceCheckpoint++
			if sinceCheckpoint >= s.cfg.CheckpointEvery {
				sinceCheckpoint = 0
				s.checkpoint(stage, cursor.Load())
			}
		}
	}()

	err = s.produce(ctx, stage, workers, jobs, &cursor)

	close(jobs)
	wg.Wait()
	close(done)
	stopSweep()

	s.checkpoint(stage, cursor.Load())
	snap := s.stats.Snapshot()
	log.Info().
		Str("stage", stage.Name).
		Str("run_id", s.runID).
		Interface("statistics", snap).
		Msg("download run finished")
	return err
}

// produce feeds queue batches into jobs until the stage is exhausted,
// capped out or cancelled.
func (s *Scheduler) produce(ctx context.Context, stage index.Stage, workers int, jobs chan<- index.Document, cursor *atomic.Int64) error {
	rewound := false
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		batchSize := workers * batchFactor
		if stage.Limit > 0 {
			remaining := stage.Limit - int(s.stats.Processed())
			if remaining <= 0 {
				log.Info().Str("stage", stage.Name).Int("limit", stage.Limit).Msg("stage cap reached")
				return nil
			}
			if remaining < batchSize {
				batchSize = remaining
			}
		}

		batch, err := s.store.FetchNextBatch(ctx, stage, batchSize, cursor.Load())
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			// Retried documents re-enter pending below the cursor; one
			// rewind picks them up before declaring the stage drained.
			if cursor.Load() > 0 && !rewound {
				rewound = true
				cursor.Store(0)
				continue
			}
			return nil
		}
		rewound = false

		for _, doc := range batch {
			select {
			case jobs <- doc:
			case <-ctx.Done():
				return ctx.Err()
			}
			if doc.ID > cursor.Load() {
				cursor.Store(doc.ID)
			}
		}
	}
}

func (s *Scheduler) sweepStale(ctx context.Context) {
	interval := s.cfg.StaleSweepInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.store.ResetStale(ctx, s.cfg.StaleThreshold); err != nil {
				log.Error().Err(err).Msg("stale sweep failed")
			} else {
				metrics.AddStaleResets(n)
			}
		}
	}
}

func (s *Scheduler) resumeCursor(stage index.Stage) int64 {
	if !s.cfg.Resume {
		return 0
	}
	cp, ok, err := LoadLatestCheckpoint(s.cfg.CheckpointDir, stage.Name)
	if err != nil {
		log.Warn().Err(err).Msg("checkpoint load failed, starting from scratch")
		return 0
	}
	if !ok {
		return 0
	}
	log.Info().
		Str("stage", stage.Name).
		Time("checkpoint_time", cp.Timestamp).
		Int64("last_fetched_id", cp.QueueState.LastFetchedID).
		Msg("resuming from checkpoint")
	return cp.QueueState.LastFetchedID
}

func (s *Scheduler) checkpoint(stage index.Stage, cursor int64) {
	cp := Checkpoint{
		Stage:      stage.Name,
		RunID:      s.runID,
		Timestamp:  time.Now(),
		QueueState: QueueState{LastFetchedID: cursor},
		Statistics: s.stats.Snapshot(),
	}
	if err := SaveCheckpoint(s.cfg.CheckpointDir, cp); err != nil {
		log.Error().Err(err).Msg("checkpoint save failed")
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
