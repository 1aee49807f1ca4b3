package webapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"plantdoc-server-go/internal/domain/capability"
	"plantdoc-server-go/internal/domain/catalog"
	"plantdoc-server-go/internal/platform/storage"
	platformtesting "plantdoc-server-go/internal/platform/testing"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func newTestHandler(t *testing.T, opts Options) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if opts.Config == nil {
		opts.Config = platformtesting.SetupTestConfig(t)
	}
	if opts.Logger == nil {
		opts.Logger = platformtesting.SetupTestLogger(t)
	}
	if opts.Tier == "" {
		opts.Tier = capability.TierFull
	}

	svc, err := NewService(opts)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	engine := gin.New()
	svc.Register(context.Background(), engine.Group("/api"))
	return engine
}

func getJSON(t *testing.T, handler http.Handler, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	var env envelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope for %s: %v", path, err)
	}
	return recorder, env
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestHandler(t, Options{})

	recorder, env := getJSON(t, handler, "/api/health")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if !env.Success {
		t.Fatal("expected success envelope")
	}

	var data struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode health data: %v", err)
	}
	if data.Status != "healthy" {
		t.Errorf("expected status healthy, got %q", data.Status)
	}
	if data.Timestamp == "" {
		t.Error("expected a timestamp")
	}
}

func TestInfoEndpoint(t *testing.T) {
	handler := newTestHandler(t, Options{Tier: capability.TierImageOnly})

	recorder, env := getJSON(t, handler, "/api/info")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var data struct {
		Name    string   `json:"name"`
		Tier    string   `json:"tier"`
		Classes int      `json:"classes"`
		Formats []string `json:"allowed_formats"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode info data: %v", err)
	}
	if data.Name != serviceName {
		t.Errorf("expected name %q, got %q", serviceName, data.Name)
	}
	if data.Tier != string(capability.TierImageOnly) {
		t.Errorf("expected tier %q, got %q", capability.TierImageOnly, data.Tier)
	}
	if data.Classes != catalog.Len() {
		t.Errorf("expected %d classes, got %d", catalog.Len(), data.Classes)
	}
	if len(data.Formats) == 0 {
		t.Error("expected allowed formats to be listed")
	}
}

func TestSystemEndpoint(t *testing.T) {
	handler := newTestHandler(t, Options{})

	recorder, env := getJSON(t, handler, "/api/system")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var data struct {
		GoVersion  string `json:"go_version"`
		Goroutines int    `json:"goroutines"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode system data: %v", err)
	}
	if data.GoVersion == "" {
		t.Error("expected go version")
	}
	if data.Goroutines <= 0 {
		t.Error("expected positive goroutine count")
	}
}

func TestHistoryEndpointWithoutStorage(t *testing.T) {
	handler := newTestHandler(t, Options{})

	recorder, env := getJSON(t, handler, "/api/history")
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", recorder.Code)
	}
	if env.Success {
		t.Error("expected failure envelope")
	}
}

func TestHistoryEndpointReturnsRecords(t *testing.T) {
	cfg := platformtesting.SetupTestConfig(t)
	db, err := storage.Open(cfg.Storage.Dir, cfg.Storage.File)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	repo := storage.NewHistoryRepository(db)

	record := &storage.AnalysisRecord{
		Filename:   "leaf.png",
		StoredName: "plant_20240601_101500_ab12cd34.png",
		Label:      "Apple — Healthy",
		Confidence: 76,
		Tier:       capability.TierFull,
		Healthy:    true,
	}
	if err := repo.Save(record, nil); err != nil {
		t.Fatalf("failed to seed history: %v", err)
	}

	handler := newTestHandler(t, Options{Config: cfg, History: repo})

	recorder, env := getJSON(t, handler, "/api/history")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var data struct {
		Records []storage.AnalysisRecord `json:"records"`
		Total   int64                    `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode history data: %v", err)
	}
	if data.Total != 1 || len(data.Records) != 1 {
		t.Fatalf("expected one record, got total=%d len=%d", data.Total, len(data.Records))
	}
	if data.Records[0].Label != record.Label {
		t.Errorf("unexpected record label %q", data.Records[0].Label)
	}
}
