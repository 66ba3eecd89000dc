package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	trackerFile = "tracker.json"
	completed   = "completed"
)

// Tracker records finished stages in <output dir>/tracker.json so that a rerun
// resumes where the previous one stopped. Updates hold an flock on tracker.json.lock.
type Tracker struct {
	path     string
	lockPath string
}

func NewTracker(dir string) *Tracker {
	path := filepath.Join(dir, trackerFile)
	return &Tracker{path: path, lockPath: path + ".lock"}
}

// Statuses returns the stage map. A missing file is an empty map.
func (t *Tracker) Statuses() (map[string]string, error) {
	data, err := os.ReadFile(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tracker: %w", err)
	}
	statuses := map[string]string{}
	if len(data) == 0 {
		return statuses, nil
	}
	if err := json.Unmarshal(data, &statuses); err != nil {
		return nil, fmt.Errorf("parse tracker %s: %w", t.path, err)
	}
	return statuses, nil
}

func (t *Tracker) Completed(stage string) (bool, error) {
	statuses, err := t.Statuses()
	if err != nil {
		return false, err
	}
	return statuses[stage] == completed, nil
}

// MarkCompleted sets stage to "completed" under the file lock. Each call opens
// its own lock handle, so concurrent callers in one process also serialise.
func (t *Tracker) MarkCompleted(stage string) error {
	lock := flock.New(t.lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock tracker: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	statuses, err := t.Statuses()
	if err != nil {
		return err
	}
	statuses[stage] = completed
	data, err := json.Marshal(statuses)
	if err != nil {
		return err
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tracker: %w", err)
	}
	return os.Rename(tmp, t.path)
}
