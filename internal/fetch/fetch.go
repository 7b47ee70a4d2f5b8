package fetch

import (
	"context"
	"time"
)

// Rendition is one encoded variant of a media item as reported by the
// extraction library. A codec of "none" means the stream is absent.
type Rendition struct {
	ID          string
	VideoCodec  string
	AudioCodec  string
	Height      int
	Bitrate     int // kbps
	Ext         string
	Size        int64 // bytes, 0 when the source does not report it
	QualityNote string
}

// HasVideo reports whether the rendition carries a video stream.
func (r Rendition) HasVideo() bool {
	return r.VideoCodec != "" && r.VideoCodec != "none"
}

// HasAudio reports whether the rendition carries an audio stream.
func (r Rendition) HasAudio() bool {
	return r.AudioCodec != "" && r.AudioCodec != "none"
}

// MediaInfo is the enumeration result for a source URL.
type MediaInfo struct {
	Title      string
	Thumbnail  string
	Uploader   string
	Duration   time.Duration
	Renditions []Rendition
}

// ProgressStatus mirrors the phases the download reports.
type ProgressStatus string

const (
	ProgressDownloading ProgressStatus = "downloading"
	ProgressProcessing  ProgressStatus = "processing"
)

// Progress is one event emitted while a download is in flight. Events for
// a single download arrive in order.
type Progress struct {
	Status          ProgressStatus
	DownloadedBytes int64
	TotalBytes      int64 // 0 when the source does not report content length
	BytesPerSecond  int64
	ETASeconds      int64
}

// DownloadRequest describes one rendition download. BaseName is the output
// filename without extension; the fetcher appends the extension it actually
// produced and returns the exact path written.
type DownloadRequest struct {
	URL      string
	Selector string // rendition ID, "best", or "bestaudio"
	Audio    bool   // extract audio track to mp3
	Dir      string
	BaseName string
	Progress func(Progress)
}

// Fetcher is the boundary to the external extraction library. How any
// given site is parsed or transcoded is the library's business, not ours.
type Fetcher interface {
	Catalog(ctx context.Context, url string) (*MediaInfo, error)
	Download(ctx context.Context, req DownloadRequest) (string, error)
}
