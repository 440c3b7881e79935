package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/emendo/emendo-agent/internal/db"
	"github.com/emendo/emendo-agent/internal/export"
	"github.com/emendo/emendo-agent/internal/jobs"
	"github.com/emendo/emendo-agent/internal/media"
	"github.com/emendo/emendo-agent/internal/preview"
	"github.com/emendo/emendo-agent/internal/session"
)

const testToken = "test-token"

func setupTestRouter(t *testing.T) (http.Handler, jobs.Repository, *session.Session) {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	repo := jobs.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), "auth_token", testToken); err != nil {
		t.Fatal(err)
	}

	logger := slog.Default()
	tools := media.NewToolset([]string{}, "/nonexistent/ffmpeg", "/nonexistent/ffprobe", logger)
	sess := session.New(session.Options{
		Tools:               tools,
		Pipeline:            export.NewPipeline(tools, t.TempDir(), logger),
		Repo:                repo,
		Logger:              logger,
		ProbeTimeout:        time.Second,
		EncoderCheckTimeout: time.Second,
	})
	t.Cleanup(sess.Close)

	router := NewRouter(ServerConfig{
		Port:       0,
		Session:    sess,
		Repository: repo,
		Preview:    preview.NewServer(sess.SourcePath, logger),
		Logger:     logger,
		StartTime:  time.Now(),
		DeviceID:   "test-device",
		Version:    "0.1.0",
	})
	return router, repo, sess
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	return resp
}

func TestHealth_NoAuthRequired(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/health", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.DeviceID != "test-device" {
		t.Errorf("health = %+v", resp)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestAuth(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong token", "Bearer wrong", http.StatusUnauthorized},
		{"valid token", "Bearer " + testToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/status", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.State != session.StateIdle {
		t.Errorf("State = %s, want idle", resp.State)
	}
	if resp.Version != "0.1.0" {
		t.Errorf("Version = %s", resp.Version)
	}
}

func TestProfiles(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/profiles", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp ProfilesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Codecs) != 5 || len(resp.Audio) != 9 || len(resp.Containers) != 3 {
		t.Errorf("profile counts = %d/%d/%d", len(resp.Codecs), len(resp.Audio), len(resp.Containers))
	}
	// Opus is MKV-only.
	if got := resp.Audio[5].Containers; len(got) != 1 || got[0] != 1 {
		t.Errorf("opus containers = %v, want [1]", got)
	}
}

func TestLoadVideo_Validation(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/video", LoadVideoRequest{}, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty path status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/video", LoadVideoRequest{Path: "/nonexistent/clip.mp4"}, true)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("missing file status = %d", rec.Code)
	}
}

func TestExport_ErrorCodes(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	tests := []struct {
		name     string
		req      ExportRequest
		wantCode string
		want     int
	}{
		{"bad time text", ExportRequest{Start: "garbage", End: "10", Codec: 1}, "INVALID_TIME_FORMAT", http.StatusBadRequest},
		{"no video", ExportRequest{Start: "0", End: "10", Codec: 1}, "NO_VIDEO", http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/export", tt.req, true)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if resp := decodeError(t, rec); resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestCancel_NoActiveJob(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/export/cancel", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp CancelResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Cancelled {
		t.Error("cancelled without a job")
	}
}

func TestJobs(t *testing.T) {
	router, repo, _ := setupTestRouter(t)

	now := time.Now().UTC()
	rec := &jobs.ExportRecord{
		ID: "job-1", SourcePath: "/v.mp4", OutputPath: "/out.mp4",
		Start: 0, End: 10, Codec: "H.264 Balanced", Audio: "AAC (192k)", Container: "MP4",
		Status: jobs.StatusCompleted, Progress: 1, CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.CreateExport(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	res := doRequest(t, router, http.MethodGet, "/jobs", nil, true)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	var list JobsResponse
	if err := json.NewDecoder(res.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].ID != "job-1" {
		t.Errorf("jobs = %+v", list.Jobs)
	}

	res = doRequest(t, router, http.MethodGet, "/jobs/job-1", nil, true)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}

	res = doRequest(t, router, http.MethodGet, "/jobs/missing", nil, true)
	if res.Code != http.StatusNotFound {
		t.Errorf("missing job status = %d", res.Code)
	}
	if resp := decodeError(t, res); resp.Code != "NOT_FOUND" {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestCropRoundTrip(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/crop/enabled", CropEnabledRequest{Enabled: true}, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("enable status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/crop", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var resp struct {
		Enabled bool `json:"enabled"`
		Rect    struct {
			X float64 `json:"x"`
			W float64 `json:"w"`
		} `json:"rect"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Enabled {
		t.Error("crop not enabled")
	}
	if resp.Rect.X != 0.1 || resp.Rect.W != 0.8 {
		t.Errorf("rect = %+v, want default", resp.Rect)
	}
}

func TestPreview_NoVideo(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/preview", nil, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
