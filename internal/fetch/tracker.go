package fetch

import (
	"sync"
	"time"
)

// tracker aggregates byte counts from one or more concurrent streams of a
// single download and emits throttled Progress events. Speed and ETA are
// instantaneous estimates over the whole transfer so far.
type tracker struct {
	mu       sync.Mutex
	total    int64
	written  int64
	start    time.Time
	lastEmit time.Time
	emit     func(Progress)
}

const emitInterval = 200 * time.Millisecond

func newTracker(total int64, emit func(Progress)) *tracker {
	return &tracker{total: total, start: time.Now(), emit: emit}
}

func (t *tracker) add(n int64) {
	if t.emit == nil {
		return
	}
	t.mu.Lock()
	t.written += n
	now := time.Now()
	if now.Sub(t.lastEmit) < emitInterval {
		t.mu.Unlock()
		return
	}
	t.lastEmit = now
	p := t.snapshot(now)
	t.mu.Unlock()

	t.emit(p)
}

// rollback undoes the byte count of a failed stream attempt so a retry
// does not inflate the transfer past its total.
func (t *tracker) rollback(n int64) {
	t.mu.Lock()
	t.written -= n
	if t.written < 0 {
		t.written = 0
	}
	t.mu.Unlock()
}

// processing signals that byte transfer is done and post-processing
// (muxing, audio extraction) has begun.
func (t *tracker) processing() {
	if t.emit == nil {
		return
	}
	t.mu.Lock()
	p := t.snapshot(time.Now())
	t.mu.Unlock()
	p.Status = ProgressProcessing
	t.emit(p)
}

// snapshot must be called with mu held.
func (t *tracker) snapshot(now time.Time) Progress {
	p := Progress{
		Status:          ProgressDownloading,
		DownloadedBytes: t.written,
		TotalBytes:      t.total,
	}
	if elapsed := now.Sub(t.start).Seconds(); elapsed > 0 {
		p.BytesPerSecond = int64(float64(t.written) / elapsed)
	}
	if p.BytesPerSecond > 0 && t.total > t.written {
		p.ETASeconds = (t.total - t.written) / p.BytesPerSecond
	}
	return p
}
