// Package catalog normalizes the raw rendition list reported by the
// extraction library into the bounded, sorted shape the API returns.
package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"time"

	"github.com/naijabuzzed-bit/Achek-Downloader/internal/fetch"
)

// SizeMB renders a byte count as whole megabytes with two decimals, or
// the string "Unknown" when the source did not report a size. A size is
// never fabricated.
type SizeMB struct {
	Bytes int64
}

func (s SizeMB) MarshalJSON() ([]byte, error) {
	if s.Bytes <= 0 {
		return json.Marshal("Unknown")
	}
	mb := math.Round(float64(s.Bytes)/(1024*1024)*100) / 100
	return json.Marshal(mb)
}

// Format is one user-selectable rendition.
type Format struct {
	FormatID string `json:"format_id"`
	Quality  string `json:"quality"`
	Ext      string `json:"ext"`
	Filesize SizeMB `json:"filesize"`
}

// Response is the catalog returned for a source URL.
type Response struct {
	Title        string   `json:"title"`
	Thumbnail    string   `json:"thumbnail"`
	Uploader     string   `json:"uploader"`
	Duration     string   `json:"duration"`
	VideoFormats []Format `json:"video_formats"`
	AudioFormats []Format `json:"audio_formats"`
}

// Normalize partitions renditions into video and audio-only lists,
// deduplicates by rendition ID, labels and sorts each partition by
// quality descending, and truncates to the configured bounds.
func Normalize(info *fetch.MediaInfo, maxVideo, maxAudio int) *Response {
	resp := &Response{
		Title:     info.Title,
		Thumbnail: info.Thumbnail,
		Uploader:  info.Uploader,
		Duration:  formatDuration(info.Duration),
	}

	seen := make(map[string]bool)
	for _, r := range info.Renditions {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true

		switch {
		case r.HasVideo():
			resp.VideoFormats = append(resp.VideoFormats, Format{
				FormatID: r.ID,
				Quality:  videoLabel(r),
				Ext:      r.Ext,
				Filesize: SizeMB{Bytes: r.Size},
			})
		case r.HasAudio():
			resp.AudioFormats = append(resp.AudioFormats, Format{
				FormatID: r.ID,
				Quality:  audioLabel(r),
				Ext:      r.Ext,
				Filesize: SizeMB{Bytes: r.Size},
			})
		}
	}

	sortByQuality(resp.VideoFormats)
	sortByQuality(resp.AudioFormats)

	if len(resp.VideoFormats) > maxVideo {
		resp.VideoFormats = resp.VideoFormats[:maxVideo]
	}
	if len(resp.AudioFormats) > maxAudio {
		resp.AudioFormats = resp.AudioFormats[:maxAudio]
	}
	return resp
}

func videoLabel(r fetch.Rendition) string {
	if r.Height > 0 {
		return fmt.Sprintf("%dp", r.Height)
	}
	if r.QualityNote != "" {
		return r.QualityNote
	}
	return "Unknown"
}

func audioLabel(r fetch.Rendition) string {
	if r.Bitrate > 0 {
		return fmt.Sprintf("%dkbps", r.Bitrate)
	}
	return "Audio"
}

var numericPart = regexp.MustCompile(`\d+`)

// qualityRank is the numeric component of a quality label; labels with
// no digits rank 0 and therefore sort last.
func qualityRank(quality string) int {
	m := numericPart.FindString(quality)
	if m == "" {
		return 0
	}
	var n int
	fmt.Sscanf(m, "%d", &n)
	return n
}

func sortByQuality(formats []Format) {
	sort.SliceStable(formats, func(i, j int) bool {
		return qualityRank(formats[i].Quality) > qualityRank(formats[j].Quality)
	})
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "Unknown"
	}
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
