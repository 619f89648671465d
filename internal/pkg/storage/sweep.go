package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// SweepTemp walks the temp directory and deletes every file older than the
// configured retention, then removes directories left empty. Scheduling is
// the caller's concern; this runs on demand as a maintenance operation.
// Temp files are disposable by construction, so a race with an in-flight
// store is accepted.
func (s *Store) SweepTemp() error {
	if _, err := os.Stat(s.temp); os.IsNotExist(err) {
		return nil
	}

	cutoff := time.Now().Add(-s.retention)
	var dirs []string
	deleted := 0

	err := filepath.WalkDir(s.temp, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.temp {
				dirs = append(dirs, path)
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				log.Errorf("[Storage] Failed to delete temp file %s: %v", path, err)
				return nil
			}
			deleted++
			log.Debugf("[Storage] Deleted temp file %s", path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Deepest directories first so emptied parents get removed too.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
			if err := os.Remove(dir); err == nil {
				log.Debugf("[Storage] Deleted empty temp directory %s", dir)
			}
		}
	}

	log.Infof("[Storage] Temp cleanup completed, %d files deleted", deleted)
	return nil
}

// TempPath exposes the canonical temp directory for callers that stage
// transient files before storing them.
func (s *Store) TempPath() string {
	return s.temp
}
