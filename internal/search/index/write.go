package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// WriteSnapshot writes snap to path atomically: the document goes to a
// temporary file in the same directory which then replaces path.
func WriteSnapshot(path string, snap Snapshot) error {
	if snap.Manifest.SnapshotVersion == 0 {
		snap.Manifest.SnapshotVersion = 1
	}
	if snap.Manifest.CreatedAt == "" {
		snap.Manifest.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if snap.Stocks == nil {
		snap.Stocks = []StockRecord{}
	}

	var (
		b   []byte
		err error
	)
	if isYAML(path) {
		b, err = yaml.Marshal(snap)
	} else {
		b, err = json.MarshalIndent(snap, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("cannot encode snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create snapshot dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("cannot create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return AtomicReplace(tmpPath, path)
}

// AtomicReplace replaces dest with src by renaming, keeping dest.bak until
// the rename succeeds.
func AtomicReplace(src, dest string) error {
	backup := dest + ".bak"
	_ = os.RemoveAll(backup)
	if _, err := os.Stat(dest); err == nil {
		if err := os.Rename(dest, backup); err != nil {
			return err
		}
	}
	if err := os.Rename(src, dest); err != nil {
		// rollback best-effort
		if _, stErr := os.Stat(backup); stErr == nil {
			_ = os.Rename(backup, dest)
		}
		return err
	}
	_ = os.RemoveAll(backup)
	return nil
}
