package pipeline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsSnapshot(t *testing.T) {
	s := NewStats()
	s.Completed(1000, 800, false)
	s.Completed(500, 500, true)
	s.Failed(ClassTimeout, true)
	s.Failed(ClassNotFound, false)
	s.Skipped(ClassExcludedPortal)

	snap := s.Snapshot()
	assert.Equal(t, int64(2), snap["completed"])
	assert.Equal(t, int64(1), snap["failed"])
	assert.Equal(t, int64(1), snap["skipped"])
	assert.Equal(t, int64(1), snap["retried"])
	assert.Equal(t, int64(1), snap["mismatches"])
	assert.Equal(t, int64(1500), snap["bytes_downloaded"])
	assert.Equal(t, int64(1300), snap["bytes_uploaded"])
	assert.Equal(t, int64(1), snap["errors_timeout"])
	assert.Equal(t, int64(1), snap["errors_not_found"])
	assert.Equal(t, int64(1), snap["errors_excluded_portal"])

	// Retried documents are not terminal.
	assert.Equal(t, int64(4), s.Processed())
}

func TestStatsConcurrent(t *testing.T) {
	s := NewStats()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Completed(10, 8, false)
			s.Failed(ClassNetwork, true)
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, int64(50), snap["completed"])
	assert.Equal(t, int64(50), snap["retried"])
	assert.Equal(t, int64(50), snap["errors_network"])
}
