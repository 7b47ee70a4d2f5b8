package models

import (
	"time"
)

// JobStatus is the lifecycle state of a download job.
type JobStatus string

const (
	StatusStarting    JobStatus = "starting"
	StatusDownloading JobStatus = "downloading"
	StatusProcessing  JobStatus = "processing"
	StatusComplete    JobStatus = "complete"
	StatusError       JobStatus = "error"
	StatusNotFound    JobStatus = "not_found"
)

// Terminal reports whether no further progress updates will follow.
func (s JobStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// MediaKind selects the artifact type a job produces.
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

func (k MediaKind) Valid() bool {
	return k == KindVideo || k == KindAudio
}

// JobRecord is the pollable snapshot of one download job. Records move
// through the registry by value, so a poller never observes a
// half-written update.
type JobRecord struct {
	Status          JobStatus `json:"status"`
	Percentage      int       `json:"percentage"`
	DownloadedBytes int64     `json:"downloaded_bytes"`
	TotalBytes      int64     `json:"total_bytes,omitempty"`
	Speed           int64     `json:"speed_bytes_per_second,omitempty"`
	ETASeconds      int64     `json:"eta_seconds,omitempty"`
	Message         string    `json:"message,omitempty"`
	Filename        string    `json:"filename,omitempty"`
	DownloadURL     string    `json:"download_url,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitzero"`
}

// NotFoundRecord is the sentinel returned for any token the registry is
// not tracking. Unknown tokens are a normal condition, not an error.
func NotFoundRecord() JobRecord {
	return JobRecord{Status: StatusNotFound, Percentage: 0}
}

type CreateJobRequest struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id"`
	Type     string `json:"type"`
}

type CreateJobResponse struct {
	Token string `json:"token"`
}

type CatalogRequest struct {
	URL string `json:"url"`
}
