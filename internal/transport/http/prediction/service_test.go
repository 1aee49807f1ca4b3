package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"plantdoc-server-go/internal/domain/capability"
	"plantdoc-server-go/internal/domain/predict"
	"plantdoc-server-go/internal/domain/results"
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
	if opts.Engine == nil {
		opts.Engine = predict.NewEngine(capability.TierFull, nil, opts.Logger)
	}

	svc, err := NewService(opts)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	engine := gin.New()
	svc.Register(context.Background(), engine.Group("/api"))
	return engine
}

func encodePNG(t *testing.T, fill color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return buf.Bytes()
}

func postImage(t *testing.T, handler http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("img", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/predict", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodePayload(t *testing.T, recorder *httptest.ResponseRecorder) predictionPayload {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if !env.Success {
		t.Fatalf("expected success envelope, got message %q", env.Message)
	}
	var payload predictionPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	return payload
}

func TestPredictMissingFileField(t *testing.T) {
	handler := newTestHandler(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/predict", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	var env envelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if env.Success {
		t.Error("expected failure envelope")
	}
}

func TestPredictRejectsUnsupportedExtension(t *testing.T) {
	handler := newTestHandler(t, Options{})

	recorder := postImage(t, handler, "notes.txt", []byte("not an image"))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestPredictRejectsOversizedUpload(t *testing.T) {
	cfg := platformtesting.SetupTestConfig(t)
	cfg.Upload.MaxFileSize = 64
	handler := newTestHandler(t, Options{Config: cfg})

	recorder := postImage(t, handler, "leaf.png", bytes.Repeat([]byte{0xAB}, 128))
	if recorder.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", recorder.Code)
	}
}

func TestPredictReturnsResult(t *testing.T) {
	handler := newTestHandler(t, Options{})

	recorder := postImage(t, handler, "leaf.png", encodePNG(t, color.RGBA{40, 200, 60, 255}))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	payload := decodePayload(t, recorder)
	if payload.Filename != "leaf.png" {
		t.Errorf("expected original filename echoed, got %q", payload.Filename)
	}
	if payload.StoredName == "" || payload.ImageURL == "" {
		t.Errorf("expected stored name and image URL, got %q / %q", payload.StoredName, payload.ImageURL)
	}
	if payload.Result.Label == "" || payload.Result.Species == "" {
		t.Errorf("expected a formatted label, got %+v", payload.Result)
	}
	if payload.Result.Confidence < 0 || payload.Result.Confidence > 100 {
		t.Errorf("confidence out of range: %d", payload.Result.Confidence)
	}
	if payload.Cached {
		t.Error("first request must not be a cache hit")
	}
}

func TestPredictCorruptContentStillSucceeds(t *testing.T) {
	handler := newTestHandler(t, Options{})

	recorder := postImage(t, handler, "leaf.png", []byte("definitely not a png"))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for undecodable content, got %d", recorder.Code)
	}

	payload := decodePayload(t, recorder)
	if payload.Result.Tier != capability.TierNone {
		t.Errorf("expected tier downgrade to %q, got %q", capability.TierNone, payload.Result.Tier)
	}
}

func TestPredictCacheHitIsDeterministic(t *testing.T) {
	cache, err := results.New(results.Config{
		Driver: results.DriverMemory,
		TTL:    time.Minute,
		Memory: &results.MemoryConfig{GCInterval: time.Minute},
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Close(context.Background())
	})

	handler := newTestHandler(t, Options{Cache: cache})
	content := encodePNG(t, color.RGBA{40, 200, 60, 255})

	first := decodePayload(t, postImage(t, handler, "leaf.png", content))
	second := decodePayload(t, postImage(t, handler, "leaf.png", content))

	if !second.Cached {
		t.Error("expected second identical upload to hit the cache")
	}
	if first.Result != second.Result {
		t.Errorf("results diverged: %+v vs %+v", first.Result, second.Result)
	}
}

func TestPredictRecordsHistory(t *testing.T) {
	cfg := platformtesting.SetupTestConfig(t)
	db, err := storage.Open(cfg.Storage.Dir, cfg.Storage.File)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	repo := storage.NewHistoryRepository(db)

	handler := newTestHandler(t, Options{Config: cfg, History: repo})

	recorder := postImage(t, handler, "leaf.png", encodePNG(t, color.RGBA{40, 200, 60, 255}))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("failed to count history: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 history record, got %d", count)
	}
}
