package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/naijabuzzed-bit/Achek-Downloader/internal/config"
	"github.com/naijabuzzed-bit/Achek-Downloader/internal/fetch"
	"github.com/naijabuzzed-bit/Achek-Downloader/internal/jobs"
	"github.com/naijabuzzed-bit/Achek-Downloader/internal/models"
)

type Handler struct {
	Manager      *jobs.Manager
	ArtifactsDir string
	startedAt    time.Time
}

func NewHandler(m *jobs.Manager, cfg *config.Config) *Handler {
	return &Handler{
		Manager:      m,
		ArtifactsDir: cfg.ArtifactsDir,
		startedAt:    time.Now(),
	}
}

// Catalog handles POST /api/catalog. The lookup is synchronous and
// failures come back as a classified message, never the raw fetcher error.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.CatalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", "")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required", "")
		return
	}

	resp, err := h.Manager.Catalog(r.Context(), req.URL)
	if err != nil {
		var fe *fetch.Error
		if errors.As(err, &fe) {
			writeError(w, http.StatusBadRequest, fe.Message, string(fe.Kind))
			return
		}
		writeError(w, http.StatusBadRequest, "Unable to fetch media info", "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateJob handles POST /api/jobs. It only fails on malformed input;
// everything after launch is reported through polling.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", "")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required", "")
		return
	}

	kind := models.MediaKind(req.Type)
	if req.Type == "" {
		kind = models.KindVideo
	}
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "type must be \"video\" or \"audio\"", "")
		return
	}

	selector := req.FormatID
	if selector == "" {
		if kind == models.KindAudio {
			selector = "bestaudio"
		} else {
			selector = "best"
		}
	}

	token := h.Manager.StartDownload(req.URL, selector, kind)
	writeJSON(w, http.StatusOK, models.CreateJobResponse{Token: token})
}

// Progress handles GET /api/jobs/{token}. Always 200: an unknown or
// expired token answers with the not_found sentinel, not an HTTP error.
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	token := pathParam(r.URL.Path, 3)
	if token == "" {
		writeJSON(w, http.StatusOK, models.NotFoundRecord())
		return
	}
	writeJSON(w, http.StatusOK, h.Manager.Progress(token))
}

// Events handles GET /api/events/{token}: a server-sent stream of job
// records until the job is terminal or unknown.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	token := pathParam(r.URL.Path, 3)
	if token == "" {
		http.Error(w, "Missing token", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	rc := http.NewResponseController(w)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			rec := h.Manager.Progress(token)
			data, _ := json.Marshal(rec)
			fmt.Fprintf(w, "data: %s\n\n", data)
			rc.Flush()

			if rec.Status.Terminal() || rec.Status == models.StatusNotFound {
				return
			}
		}
	}
}

// Artifact handles GET /artifacts/{filename}, streaming the file as an
// attachment. The filename is sanitized so a request can never reach
// outside the artifact directory.
func (h *Handler) Artifact(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r.URL.Path, 2)
	if !safeFilename(name) {
		http.Error(w, "Invalid filename", http.StatusBadRequest)
		return
	}

	path := filepath.Join(h.ArtifactsDir, name)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
		"active_jobs": h.Manager.ActiveJobs(),
	})
}

// pathParam returns path segment idx of a slash-separated URL path, or ""
// when the path is too short.
func pathParam(path string, idx int) string {
	parts := strings.Split(path, "/")
	if len(parts) <= idx {
		return ""
	}
	return parts[idx]
}

// safeFilename rejects anything that is not a bare filename.
func safeFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	return name == filepath.Base(name)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	body := map[string]string{"error": msg}
	if code != "" {
		body["code"] = code
	}
	writeJSON(w, status, body)
}
