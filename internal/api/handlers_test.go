package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/naijabuzzed-bit/Achek-Downloader/internal/config"
	"github.com/naijabuzzed-bit/Achek-Downloader/internal/fetch"
	"github.com/naijabuzzed-bit/Achek-Downloader/internal/jobs"
	"github.com/naijabuzzed-bit/Achek-Downloader/internal/models"
)

type stubFetcher struct {
	catalogInfo *fetch.MediaInfo
	catalogErr  error
}

func (f *stubFetcher) Catalog(ctx context.Context, url string) (*fetch.MediaInfo, error) {
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.catalogInfo, nil
}

func (f *stubFetcher) Download(ctx context.Context, req fetch.DownloadRequest) (string, error) {
	path := filepath.Join(req.Dir, req.BaseName+".mp4")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func newTestRouter(t *testing.T, f fetch.Fetcher) (http.Handler, *config.Config) {
	t.Helper()
	cfg := &config.Config{
		ArtifactsDir:    t.TempDir(),
		GracePeriod:     time.Second,
		MaxVideoFormats: 15,
		MaxAudioFormats: 8,
		RequestsPerSec:  1000,
		BurstSize:       1000,
	}
	registry := jobs.NewRegistry()
	t.Cleanup(registry.Close)
	manager := jobs.NewManager(cfg, registry, f, jobs.NewMirror("", 0))
	return NewRouter(NewHandler(manager, cfg), cfg), cfg
}

func TestProgressUnknownTokenIsOK(t *testing.T) {
	router, _ := newTestRouter(t, &stubFetcher{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/jobs/no-such-token", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var rec models.JobRecord
	if err := json.NewDecoder(rr.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.Status != models.StatusNotFound {
		t.Errorf("status = %s, want not_found", rec.Status)
	}
}

func TestCreateJobReturnsToken(t *testing.T) {
	router, _ := newTestRouter(t, &stubFetcher{})

	body := `{"url": "https://youtube.com/watch?v=x", "format_id": "22", "type": "video"}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body)
	}
	var resp models.CreateJobResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Token == "" {
		t.Error("empty token in response")
	}
}

func TestCreateJobValidation(t *testing.T) {
	router, _ := newTestRouter(t, &stubFetcher{})

	tests := []struct {
		name string
		body string
	}{
		{"missing url", `{"format_id": "22"}`},
		{"bad type", `{"url": "https://youtube.com/watch?v=x", "type": "playlist"}`},
		{"malformed json", `{`},
	}

	for _, test := range tests {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(test.body)))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", test.name, rr.Code)
		}
	}
}

func TestCatalogClassifiedError(t *testing.T) {
	router, _ := newTestRouter(t, &stubFetcher{catalogErr: errors.New("this video is private")})

	body := `{"url": "https://youtube.com/watch?v=x"}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/catalog", strings.NewReader(body)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["code"] != string(fetch.KindPrivate) {
		t.Errorf("code = %q, want %s", resp["code"], fetch.KindPrivate)
	}
	if resp["error"] == "" || strings.Contains(resp["error"], "this video is private") {
		t.Errorf("error message missing or leaks raw text: %q", resp["error"])
	}
}

func TestCatalogSuccess(t *testing.T) {
	router, _ := newTestRouter(t, &stubFetcher{
		catalogInfo: &fetch.MediaInfo{
			Title: "Clip",
			Renditions: []fetch.Rendition{
				{ID: "22", VideoCodec: "avc1", AudioCodec: "mp4a", Height: 720, Ext: "mp4"},
			},
		},
	})

	body := `{"url": "https://youtube.com/watch?v=x"}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/catalog", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body)
	}
	var resp struct {
		Title        string `json:"title"`
		VideoFormats []struct {
			Quality string `json:"quality"`
		} `json:"video_formats"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Title != "Clip" || len(resp.VideoFormats) != 1 || resp.VideoFormats[0].Quality != "720p" {
		t.Errorf("unexpected catalog response: %+v", resp)
	}
}

func TestArtifactRejectsTraversal(t *testing.T) {
	router, cfg := newTestRouter(t, &stubFetcher{})
	secret := filepath.Join(filepath.Dir(cfg.ArtifactsDir), "secret.txt")
	os.WriteFile(secret, []byte("s"), 0644)

	req := httptest.NewRequest(http.MethodGet, "/artifacts/x", nil)
	req.URL.Path = "/artifacts/../secret.txt"

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code == http.StatusOK {
		t.Fatal("path traversal served a file outside the artifact dir")
	}
}

func TestArtifactServesAttachment(t *testing.T) {
	router, cfg := newTestRouter(t, &stubFetcher{})
	name := "video_1700000000_abcd1234.mp4"
	if err := os.WriteFile(filepath.Join(cfg.ArtifactsDir, name), []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/artifacts/"+name, nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q, want attachment", cd)
	}
	if rr.Body.String() != "content" {
		t.Errorf("unexpected body %q", rr.Body.String())
	}
}

func TestArtifactMissingIs404(t *testing.T) {
	router, _ := newTestRouter(t, &stubFetcher{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/artifacts/video_0_none.mp4", nil))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, &stubFetcher{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %v, want ok", resp["status"])
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(0), 0)
	wrapped := RateLimitMiddleware(limiter, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rr.Code)
	}
}
