package jobs

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Janitor reclaims artifact files by age alone. It knows nothing about
// the registry: reclaiming on modification time means orphans from
// crashed jobs are swept up just the same as finished downloads.
type Janitor struct {
	dir       string
	retention time.Duration
	interval  time.Duration
}

func NewJanitor(dir string, retention, interval time.Duration) *Janitor {
	return &Janitor{dir: dir, retention: retention, interval: interval}
}

// Run sweeps on a fixed period until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

// sweep deletes every regular file older than the retention window.
// Individual failures (a delete racing a concurrent remove or an open
// handle) are logged and skipped; the cycle always finishes.
func (j *Janitor) sweep() {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		log.Printf("Janitor: cannot list %s: %v", j.dir, err)
		return
	}

	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= j.retention {
			continue
		}
		path := filepath.Join(j.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("Janitor: could not remove %s: %v", entry.Name(), err)
			continue
		}
		log.Printf("Janitor: cleaned up %s", entry.Name())
	}
}
