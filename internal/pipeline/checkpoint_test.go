package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cp := Checkpoint{
		Stage:      "historical-all",
		RunID:      "run-1",
		Timestamp:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		QueueState: QueueState{LastFetchedID: 4242},
		Statistics: map[string]int64{"completed": 100, "failed": 3},
	}
	require.NoError(t, SaveCheckpoint(dir, cp))

	got, ok, err := LoadLatestCheckpoint(dir, "historical-all")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(4242), got.QueueState.LastFetchedID)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, int64(100), got.Statistics["completed"])
}

func TestLoadLatestPicksNewest(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []int64{10, 20, 30} {
		require.NoError(t, SaveCheckpoint(dir, Checkpoint{
			Stage:      "large",
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			QueueState: QueueState{LastFetchedID: id},
		}))
	}

	got, ok, err := LoadLatestCheckpoint(dir, "large")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(30), got.QueueState.LastFetchedID)
}

func TestLoadLatestIgnoresOtherStages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveCheckpoint(dir, Checkpoint{
		Stage:      "small",
		Timestamp:  time.Now(),
		QueueState: QueueState{LastFetchedID: 7},
	}))

	_, ok, err := LoadLatestCheckpoint(dir, "large")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadLatestMissingDir(t *testing.T) {
	_, ok, err := LoadLatestCheckpoint(t.TempDir()+"/nope", "test")
	require.NoError(t, err)
	assert.False(t, ok)
}
