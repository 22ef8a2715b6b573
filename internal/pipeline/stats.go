package pipeline

import (
	"sync"
	"time"
)

// Stats accumulates per-run counters across workers. All methods are safe
// for concurrent use.
type Stats struct {
	mu sync.Mutex

	started    time.Time
	completed  int64
	failed     int64
	skipped    int64
	retried    int64
	mismatches int64
	bytesDown  int64
	bytesUp    int64
	byClass    map[Class]int64
}

func NewStats() *Stats {
	return &Stats{started: time.Now(), byClass: map[Class]int64{}}
}

func (s *Stats) Completed(downloaded, uploaded int64, mismatch bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed++
	s.bytesDown += downloaded
	s.bytesUp += uploaded
	if mismatch {
		s.mismatches++
	}
}

func (s *Stats) Failed(c Class, willRetry bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byClass[c]++
	if willRetry {
		s.retried++
	} else {
		s.failed++
	}
}

func (s *Stats) Skipped(c Class) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byClass[c]++
	s.skipped++
}

// Processed is the number of documents that reached a terminal outcome
// this run; the stage cap counts these.
func (s *Stats) Processed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed + s.failed + s.skipped
}

// Snapshot flattens the counters for checkpointing and final reporting.
func (s *Stats) Snapshot() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int64{
		"completed":        s.completed,
		"failed":           s.failed,
		"skipped":          s.skipped,
		"retried":          s.retried,
		"mismatches":       s.mismatches,
		"bytes_downloaded": s.bytesDown,
		"bytes_uploaded":   s.bytesUp,
		"elapsed_seconds":  int64(time.Since(s.started).Seconds()),
	}
	for c, n := range s.byClass {
		out["errors_"+string(c)] = n
	}
	return out
}
