package handlers_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"menulens-server/internal/config"
	"menulens-server/internal/domain/dish"
	"menulens-server/internal/domain/scan"
	"menulens-server/internal/domain/visibility"
	"menulens-server/internal/interfaces/httpserver/handlers"
	"menulens-server/internal/interfaces/httpserver/responses"
	"menulens-server/internal/utils/platformerrors"
)

var pngImage = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

type stubParser struct {
	records []dish.RawDishRecord
	err     error
}

func (p *stubParser) Parse(ctx context.Context, image []byte) ([]dish.RawDishRecord, error) {
	return p.records, p.err
}

type stubGenerator struct {
	mu    sync.Mutex
	calls int
	ref   dish.ImageRef
	err   error
}

func (g *stubGenerator) Generate(ctx context.Context, subjectName, description string) (dish.ImageRef, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return g.ref, g.err
}

type testEnv struct {
	engine    *gin.Engine
	service   *scan.Service
	store     *dish.Store
	scheduler *dish.Scheduler
	generator *stubGenerator
}

func newTestEnv(t *testing.T, parser scan.MenuParser) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		MenuMaxImageBytes: 10 * 1024 * 1024,
		ProximityMargin:   200,
		VisibleFraction:   0.5,
	}
	log := zerolog.Nop()
	gen := &stubGenerator{ref: dish.ImageRef{URL: "https://img.example/dish.png"}}
	store := dish.NewStore(log)
	scheduler := dish.NewScheduler(store, gen, nil, log)
	trigger := visibility.New(visibility.Config{
		ProximityMargin: cfg.ProximityMargin,
		VisibleFraction: cfg.VisibleFraction,
	}, log)
	service := scan.NewService(cfg, parser, store, trigger, scheduler, log)

	provider := handlers.NewProvider(cfg, service, log)
	engine := gin.New()
	group := engine.Group("/v1")
	group.POST("/scans", provider.Scan.Analyze)
	group.GET("/scans/current", provider.Scan.Current)
	group.POST("/viewport", provider.Scan.Viewport)
	group.POST("/reset", provider.Scan.Reset)
	group.GET("/dishes/:id", provider.Dish.Get)
	group.POST("/dishes/:id/visible", provider.Dish.Visible)
	group.POST("/dishes/:id/retry", provider.Dish.Retry)
	group.GET("/dishes/:id/image", provider.Dish.Image)

	return &testEnv{engine: engine, service: service, store: store, scheduler: scheduler, generator: gen}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func menuParser() *stubParser {
	return &stubParser{records: []dish.RawDishRecord{
		{OriginalName: "牛肉面", EnglishTranslation: "Beef Noodle Soup", IngredientsOrDescription: "wheat noodles, braised beef", Price: "¥28"},
	}}
}

func analyzeBody() []byte {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngImage)
	body, _ := json.Marshal(map[string]any{
		"image": map[string]string{"type": "data_url", "data_url": dataURL},
	})
	return body
}

func TestAnalyzeEndpointJSON(t *testing.T) {
	env := newTestEnv(t, menuParser())

	rec := env.do(t, http.MethodPost, "/v1/scans", analyzeBody(), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp responses.ScanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Dishes) != 1 {
		t.Fatalf("dishes = %d, want 1", len(resp.Dishes))
	}
	if resp.Dishes[0].GenerationState != string(dish.StateNotRequested) {
		t.Errorf("state = %s, want %s", resp.Dishes[0].GenerationState, dish.StateNotRequested)
	}
	if resp.Dishes[0].ImageURL != "" {
		t.Errorf("ImageURL = %q before any generation, want empty", resp.Dishes[0].ImageURL)
	}
}

func TestAnalyzeEndpointMultipart(t *testing.T) {
	env := newTestEnv(t, menuParser())

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "menu.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(pngImage)
	writer.Close()

	rec := env.do(t, http.MethodPost, "/v1/scans", buf.Bytes(), writer.FormDataContentType())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeEndpointRejectsBadBody(t *testing.T) {
	env := newTestEnv(t, menuParser())

	rec := env.do(t, http.MethodPost, "/v1/scans", []byte(`{"image":{"type":"ftp"}}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeEndpointParserFailure(t *testing.T) {
	// The real parser always surfaces analysis-typed errors.
	parseErr := platformerrors.NewError(context.Background(), platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeAnalysis, "menu analysis request failed", nil)
	env := newTestEnv(t, &stubParser{err: parseErr})

	rec := env.do(t, http.MethodPost, "/v1/scans", analyzeBody(), "application/json")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestViewportDrivesGeneration(t *testing.T) {
	env := newTestEnv(t, menuParser())
	env.do(t, http.MethodPost, "/v1/scans", analyzeBody(), "application/json")

	dishes := env.store.List()
	report, _ := json.Marshal(map[string]any{
		"viewport": map[string]float64{"left": 0, "top": 0, "width": 400, "height": 800},
		"cards": []map[string]any{
			{"id": dishes[0].ID, "bounds": map[string]float64{"left": 0, "top": 0, "width": 400, "height": 200}},
		},
	})

	rec := env.do(t, http.MethodPost, "/v1/viewport", report, "application/json")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	env.scheduler.Wait()

	d, _ := env.store.Get(dishes[0].ID)
	if d.GenerationState != dish.StateSucceeded {
		t.Errorf("state = %s, want %s", d.GenerationState, dish.StateSucceeded)
	}
}

func TestCurrentEndpoint(t *testing.T) {
	env := newTestEnv(t, menuParser())
	env.do(t, http.MethodPost, "/v1/scans", analyzeBody(), "application/json")

	rec := env.do(t, http.MethodGet, "/v1/scans/current", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp responses.ScanResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.ScanID == "" || len(resp.Dishes) != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestResetEndpoint(t *testing.T) {
	env := newTestEnv(t, menuParser())
	env.do(t, http.MethodPost, "/v1/scans", analyzeBody(), "application/json")

	rec := env.do(t, http.MethodPost, "/v1/reset", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.store.Len() != 0 {
		t.Errorf("store not cleared, len = %d", env.store.Len())
	}
}
