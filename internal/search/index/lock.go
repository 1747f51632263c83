package index

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
)

const snapshotLockTimeout = 5 * time.Second

// LockSnapshot takes an exclusive lock on path+".lock", retrying until
// timeout. The returned func releases it.
func LockSnapshot(path string, timeout time.Duration) (func(), error) {
	l := flock.New(path + ".lock")
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return func() {}, fmt.Errorf("cannot acquire snapshot lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return func() {}, fmt.Errorf("%w (lock: %s.lock)", ErrLocked, path)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// ModifySnapshot runs fn on the snapshot at path while holding the snapshot
// lock and writes the result back when fn reports a change. A missing file
// starts as an empty snapshot.
func ModifySnapshot(path string, fn func(*Snapshot) (bool, error)) error {
	unlock, err := LockSnapshot(path, snapshotLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	snap, err := LoadSnapshot(path)
	if errors.Is(err, os.ErrNotExist) {
		snap, err = &Snapshot{Manifest: Manifest{SnapshotVersion: 1}}, nil
	}
	if err != nil {
		return err
	}
	changed, err := fn(snap)
	if err != nil || !changed {
		return err
	}
	return WriteSnapshot(path, *snap)
}

// UpdateSnapshotTags rewrites the custom tags of one stock in the snapshot
// file at path.
func UpdateSnapshotTags(path, code, raw string, now time.Time) error {
	return ModifySnapshot(path, func(snap *Snapshot) (bool, error) {
		found := false
		for i := range snap.Stocks {
			if snap.Stocks[i].StockCode == code {
				snap.Stocks[i].CustomTags = raw
				snap.Stocks[i].UpdatedAt = now.UTC().Format(time.RFC3339)
				found = true
			}
		}
		if !found {
			return false, fmt.Errorf("update tags for %s: %w", code, ErrNotFound)
		}
		snap.Manifest.CreatedAt = now.UTC().Format(time.RFC3339)
		return true, nil
	})
}
