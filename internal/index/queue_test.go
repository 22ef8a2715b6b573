package index

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchQueryRetryStageTargetsPriorFailures(t *testing.T) {
	// The retry stage re-queues failed rows before fetching, so its
	// predicate must demand evidence of a prior attempt or the run would
	// drain the entire untouched pending backlog.
	q, _ := batchQuery(Stages["retry-failed"], 10, 0)
	assert.Contains(t, q, "download_attempts > 0")
	assert.Contains(t, q, "download_error IS NOT NULL")

	q, _ = batchQuery(Stages["medium"], 10, 0)
	assert.NotContains(t, q, "download_attempts > 0")
	assert.NotContains(t, q, "download_error")
}

func TestBatchQueryStagePredicates(t *testing.T) {
	q, args := batchQuery(Stages["small"], 25, 0)
	assert.Contains(t, q, "download_priority IN ($1,$2)")
	assert.Contains(t, q, "book >= $3 AND book < $4")
	assert.Equal(t, []any{1, 2, 1, 50, 238, 300, 25}, args)

	q, args = batchQuery(Stages["historical-all"], 50, 900)
	assert.Contains(t, q, "id > $3")
	require.Len(t, args, 4)
	assert.Equal(t, int64(900), args[2])
}

func TestDuplicateSurvivorIsEarliestRecord(t *testing.T) {
	// Within each (book, page, source) group rank 1 must be the earliest
	// file_date, undated rows last; a descending sort would skip the
	// original record and keep the re-import.
	assert.Contains(t, dupRankedSQL, "ORDER BY file_date NULLS LAST, import_date")
	assert.False(t, strings.Contains(dupRankedSQL, "DESC"))
}
