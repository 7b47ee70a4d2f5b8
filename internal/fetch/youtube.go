package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kkdai/youtube/v2"
)

// YouTube implements Fetcher on top of the kkdai extraction library.
type YouTube struct {
	client      youtube.Client
	timeout     time.Duration
	maxAttempts int
}

func NewYouTube(timeout time.Duration, maxAttempts int) *YouTube {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &YouTube{
		client:      youtube.Client{},
		timeout:     timeout,
		maxAttempts: maxAttempts,
	}
}

var supportedHosts = []string{"youtube.com", "youtu.be", "youtube-nocookie.com"}

func supportedURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, h := range supportedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (f *YouTube) Catalog(ctx context.Context, rawURL string) (*MediaInfo, error) {
	if !supportedURL(rawURL) {
		return nil, NewError(KindUnsupportedURL, nil)
	}

	mctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	video, err := f.client.GetVideoContext(mctx, rawURL)
	if err != nil {
		return nil, Classify(rawURL, err)
	}

	info := &MediaInfo{
		Title:    video.Title,
		Uploader: video.Author,
		Duration: video.Duration,
	}
	if n := len(video.Thumbnails); n > 0 {
		info.Thumbnail = video.Thumbnails[n-1].URL
	}

	for i := range video.Formats {
		info.Renditions = append(info.Renditions, toRendition(&video.Formats[i]))
	}
	if len(info.Renditions) == 0 {
		return nil, NewError(KindNoMediaFound, nil)
	}
	return info, nil
}

func toRendition(f *youtube.Format) Rendition {
	mediaType, vcodec, acodec := parseCodecs(f.MimeType)
	return Rendition{
		ID:          strconv.Itoa(f.ItagNo),
		VideoCodec:  vcodec,
		AudioCodec:  acodec,
		Height:      parseHeight(f.QualityLabel),
		Bitrate:     f.Bitrate / 1000,
		Ext:         extFor(mediaType),
		Size:        f.ContentLength,
		QualityNote: f.QualityLabel,
	}
}

// parseCodecs splits a MimeType like
//
//	video/mp4; codecs="avc1.64001F, mp4a.40.2"
//
// into the media type and per-stream codec names, using "none" for a
// stream the rendition does not carry.
func parseCodecs(mimeType string) (mediaType, vcodec, acodec string) {
	vcodec, acodec = "none", "none"
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return mimeType, vcodec, acodec
	}

	var codecs []string
	for _, c := range strings.Split(params["codecs"], ",") {
		if c = strings.TrimSpace(c); c != "" {
			codecs = append(codecs, c)
		}
	}

	switch {
	case strings.HasPrefix(mediaType, "audio/"):
		if len(codecs) > 0 {
			acodec = codecs[0]
		}
	case strings.HasPrefix(mediaType, "video/"):
		if len(codecs) > 0 {
			vcodec = codecs[0]
		}
		if len(codecs) > 1 {
			acodec = codecs[1]
		}
	}
	return mediaType, vcodec, acodec
}

func parseHeight(qualityLabel string) int {
	digits := ""
	for _, c := range qualityLabel {
		if c >= '0' && c <= '9' {
			digits += string(c)
		} else if digits != "" {
			break
		}
	}
	h, _ := strconv.Atoi(digits)
	return h
}

func extFor(mediaType string) string {
	switch mediaType {
	case "video/mp4":
		return "mp4"
	case "video/webm", "audio/webm":
		return "webm"
	case "audio/mp4":
		return "m4a"
	default:
		return "bin"
	}
}

func (f *YouTube) Download(ctx context.Context, req DownloadRequest) (string, error) {
	if !supportedURL(req.URL) {
		return "", NewError(KindUnsupportedURL, nil)
	}

	mctx, cancel := context.WithTimeout(ctx, f.timeout)
	video, err := f.client.GetVideoContext(mctx, req.URL)
	cancel()
	if err != nil {
		return "", Classify(req.URL, err)
	}

	if req.Audio || req.Selector == "bestaudio" {
		return f.downloadAudio(ctx, video, req)
	}
	return f.downloadVideo(ctx, video, req)
}

func (f *YouTube) downloadAudio(ctx context.Context, video *youtube.Video, req DownloadRequest) (string, error) {
	format := formatByItag(video.Formats, req.Selector)
	if format == nil || !strings.HasPrefix(format.MimeType, "audio/") {
		format = bestAudioFormat(video.Formats)
	}
	if format == nil {
		return "", NewError(KindNoMediaFound, errors.New("no audio formats"))
	}

	tr := newTracker(format.ContentLength, req.Progress)
	mediaType, _, _ := parseCodecs(format.MimeType)
	tempPath := filepath.Join(req.Dir, req.BaseName+".tmp."+extFor(mediaType))
	defer os.Remove(tempPath)

	if err := f.downloadStream(ctx, video, format, tempPath, tr); err != nil {
		return "", Classify(req.URL, err)
	}
	tr.processing()

	outPath := filepath.Join(req.Dir, req.BaseName+".mp3")
	if err := runFFmpeg(ctx, "-i", tempPath, "-vn", "-codec:a", "libmp3lame", "-b:a", "320k", outPath); err != nil {
		return "", NewError(KindUnknown, err)
	}
	if err := checkOutput(outPath); err != nil {
		return "", NewError(KindUnknown, err)
	}
	return outPath, nil
}

func (f *YouTube) downloadVideo(ctx context.Context, video *youtube.Video, req DownloadRequest) (string, error) {
	videoFormat := formatByItag(video.Formats, req.Selector)
	if videoFormat == nil || !strings.HasPrefix(videoFormat.MimeType, "video/") {
		videoFormat = bestVideoFormat(video.Formats)
	}
	if videoFormat == nil {
		return "", NewError(KindNoMediaFound, errors.New("no video formats"))
	}

	mediaType, _, acodec := parseCodecs(videoFormat.MimeType)
	outPath := filepath.Join(req.Dir, req.BaseName+"."+extFor(mediaType))

	// Progressive rendition carries its own audio: a single stream.
	if acodec != "none" {
		tr := newTracker(videoFormat.ContentLength, req.Progress)
		if err := f.downloadStream(ctx, video, videoFormat, outPath, tr); err != nil {
			os.Remove(outPath)
			return "", Classify(req.URL, err)
		}
		if err := checkOutput(outPath); err != nil {
			return "", NewError(KindUnknown, err)
		}
		return outPath, nil
	}

	// Adaptive rendition: pull video and audio streams concurrently,
	// then mux with ffmpeg.
	audioFormat := bestAudioFormat(video.Formats)
	if audioFormat == nil {
		return "", NewError(KindNoMediaFound, errors.New("no audio formats to mux"))
	}

	tr := newTracker(videoFormat.ContentLength+audioFormat.ContentLength, req.Progress)
	videoTemp := filepath.Join(req.Dir, req.BaseName+".tmp.video")
	audioTemp := filepath.Join(req.Dir, req.BaseName+".tmp.audio")
	defer os.Remove(videoTemp)
	defer os.Remove(audioTemp)

	var wg sync.WaitGroup
	var errV, errA error
	wg.Add(2)
	go func() {
		defer wg.Done()
		errV = f.downloadStream(ctx, video, videoFormat, videoTemp, tr)
	}()
	go func() {
		defer wg.Done()
		errA = f.downloadStream(ctx, video, audioFormat, audioTemp, tr)
	}()
	wg.Wait()

	if errV != nil {
		return "", Classify(req.URL, errV)
	}
	if errA != nil {
		return "", Classify(req.URL, errA)
	}

	tr.processing()
	if err := runFFmpeg(ctx, "-i", videoTemp, "-i", audioTemp, "-c", "copy", outPath); err != nil {
		return "", NewError(KindUnknown, err)
	}
	if err := checkOutput(outPath); err != nil {
		return "", NewError(KindUnknown, err)
	}
	return outPath, nil
}

// downloadStream copies one stream to path, retrying transient failures
// from scratch up to maxAttempts times.
func (f *YouTube) downloadStream(ctx context.Context, video *youtube.Video, format *youtube.Format, path string, tr *tracker) error {
	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		written, err := f.tryStream(ctx, video, format, path, tr)
		if err == nil {
			return nil
		}
		tr.rollback(written)
		lastErr = err
		if !transient(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return fmt.Errorf("stream failed after %d attempts: %w", f.maxAttempts, lastErr)
}

func (f *YouTube) tryStream(ctx context.Context, video *youtube.Video, format *youtube.Format, path string, tr *tracker) (int64, error) {
	stream, _, err := f.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var written int64
	buf := make([]byte, 32*1024)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			tr.add(int64(n))
		}
		if err != nil {
			if err == io.EOF {
				return written, nil
			}
			return written, err
		}
	}
}

func transient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return contains(msg, "connection reset", "broken pipe", "unexpected eof", "timeout", "temporarily")
}

func formatByItag(formats youtube.FormatList, selector string) *youtube.Format {
	itag, err := strconv.Atoi(selector)
	if err != nil {
		return nil
	}
	for i := range formats {
		if formats[i].ItagNo == itag {
			return &formats[i]
		}
	}
	return nil
}

func bestAudioFormat(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	return best
}

func bestVideoFormat(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "video/") {
			continue
		}
		if best == nil || parseHeight(f.QualityLabel) > parseHeight(best.QualityLabel) {
			best = f
		}
	}
	return best
}

func runFFmpeg(ctx context.Context, args ...string) error {
	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	cmd := exec.CommandContext(ctx, "ffmpeg", full...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg: %v: %s", err, string(out))
	}
	return nil
}

func checkOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return errors.New("generated file is empty")
	}
	return nil
}
