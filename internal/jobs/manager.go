package jobs

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/naijabuzzed-bit/Achek-Downloader/internal/catalog"
	"github.com/naijabuzzed-bit/Achek-Downloader/internal/config"
	"github.com/naijabuzzed-bit/Achek-Downloader/internal/fetch"
	"github.com/naijabuzzed-bit/Achek-Downloader/internal/models"
)

// Manager orchestrates download jobs: it allocates tokens, launches
// fetches in the background, relays their progress into the registry and
// schedules record expiry once a job reaches a terminal status.
type Manager struct {
	cfg      *config.Config
	registry *Registry
	fetcher  fetch.Fetcher
	mirror   *Mirror
}

func NewManager(cfg *config.Config, registry *Registry, fetcher fetch.Fetcher, mirror *Mirror) *Manager {
	return &Manager{
		cfg:      cfg,
		registry: registry,
		fetcher:  fetcher,
		mirror:   mirror,
	}
}

// Catalog synchronously enumerates the renditions available at url. A
// fetcher failure comes back classified; the raw cause is only logged.
func (m *Manager) Catalog(ctx context.Context, url string) (*catalog.Response, error) {
	info, err := m.fetcher.Catalog(ctx, url)
	if err != nil {
		classified := fetch.Classify(url, err)
		log.Printf("Catalog lookup failed for %s: %v", url, classified)
		return nil, classified
	}
	return catalog.Normalize(info, m.cfg.MaxVideoFormats, m.cfg.MaxAudioFormats), nil
}

// StartDownload creates a job record and launches the fetch. It returns
// the polling token immediately; the job outlives the request that
// started it and runs until terminal. There is no cancellation: a client
// that stops polling simply leaves the job to finish on its own.
func (m *Manager) StartDownload(url, selector string, kind models.MediaKind) string {
	token := m.registry.Create(kind)
	go m.run(token, url, selector, kind)
	return token
}

// Progress returns the current snapshot for token.
func (m *Manager) Progress(token string) models.JobRecord {
	return m.registry.Get(token)
}

// ActiveJobs reports how many records the registry is tracking.
func (m *Manager) ActiveJobs() int {
	return m.registry.Len()
}

func (m *Manager) run(token, url, selector string, kind models.MediaKind) {
	// Kind, timestamp and a token prefix keep concurrent same-second
	// jobs from colliding on a filename.
	baseName := fmt.Sprintf("%s_%d_%s", kind, time.Now().Unix(), token[:8])

	lastPct := 0
	relay := func(p fetch.Progress) {
		rec := models.JobRecord{
			Status:          models.StatusDownloading,
			DownloadedBytes: p.DownloadedBytes,
			TotalBytes:      p.TotalBytes,
			Speed:           p.BytesPerSecond,
			ETASeconds:      p.ETASeconds,
			Message:         "Downloading",
		}
		if p.Status == fetch.ProgressProcessing {
			rec.Status = models.StatusProcessing
			rec.Message = "Processing media"
		}
		rec.Percentage = percentage(p, &lastPct)
		m.registry.Update(token, rec)
	}

	path, err := m.fetcher.Download(context.Background(), fetch.DownloadRequest{
		URL:      url,
		Selector: selector,
		Audio:    kind == models.KindAudio,
		Dir:      m.cfg.ArtifactsDir,
		BaseName: baseName,
		Progress: relay,
	})

	var final models.JobRecord
	if err != nil {
		classified := fetch.Classify(url, err)
		log.Printf("Job %s failed: %v", token, classified)
		final = models.JobRecord{
			Status:     models.StatusError,
			Percentage: lastPct,
			Message:    classified.Message,
		}
	} else {
		filename := filepath.Base(path)
		final = models.JobRecord{
			Status:      models.StatusComplete,
			Percentage:  100,
			Message:     "Download complete",
			Filename:    filename,
			DownloadURL: "/artifacts/" + filename,
		}
		log.Printf("Job %s complete: %s", token, filename)
	}

	m.registry.Update(token, final)
	m.mirror.Save(context.Background(), token, final)
	m.registry.ExpireAfter(token, m.cfg.GracePeriod)
}

// percentage derives a 0-99 progress figure, clamped so pollers never see
// it decrease mid-job even when a stream retry rolls bytes back. 100 is
// reserved for the terminal complete record.
func percentage(p fetch.Progress, lastPct *int) int {
	pct := *lastPct
	if p.TotalBytes > 0 {
		if v := int(p.DownloadedBytes * 100 / p.TotalBytes); v > pct {
			pct = v
		}
	}
	if pct > 99 {
		pct = 99
	}
	*lastPct = pct
	return pct
}
