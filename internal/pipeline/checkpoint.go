package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Checkpoint captures enough run state to resume an interrupted stage:
// the queue cursor plus the statistics accumulated so far.
type Checkpoint struct {
	Stage      string           `json:"stage"`
	RunID      string           `json:"run_id"`
	Timestamp  time.Time        `json:"timestamp"`
	QueueState QueueState       `json:"queue_state"`
	Statistics map[string]int64 `json:"statistics"`
}

// QueueState is the resume cursor into the download queue.
type QueueState struct {
	LastFetchedID int64 `json:"last_fetched_id"`
}

func checkpointName(stage string, ts time.Time) string {
	return fmt.Sprintf("checkpoint_%s_%s.json", stage, ts.UTC().Format("20060102T150405Z"))
}

// SaveCheckpoint writes cp to dir atomically (temp file plus rename). Each
// save is a new timestamped file; old checkpoints stay for post-mortems.
func SaveCheckpoint(dir string, cp Checkpoint) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	path := filepath.Join(dir, checkpointName(cp.Stage, cp.Timestamp))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize checkpoint: %w", err)
	}
	return nil
}

// LoadLatestCheckpoint returns the newest checkpoint for a stage, or false
// when none exists. File names sort chronologically, so the lexically last
// match is the latest.
func LoadLatestCheckpoint(dir, stage string) (Checkpoint, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("read checkpoint dir: %w", err)
	}

	prefix := "checkpoint_" + stage + "_"
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return Checkpoint{}, false, nil
	}
	sort.Strings(names)

	data, err := os.ReadFile(filepath.Join(dir, names[len(names)-1]))
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint %s: %w", names[len(names)-1], err)
	}
	return cp, true, nil
}
