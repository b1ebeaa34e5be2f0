package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"shelfsight/server/internal/config"
	"shelfsight/server/internal/database"
	"shelfsight/server/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const jobBody = `{
	"video_name": "entrance.mp4",
	"frame_width": 500,
	"frame_height": 400,
	"tracks": {"7": [{"frame": 0, "bbox": [10, 10, 30, 30]}, {"frame": 3, "bbox": [480, 380, 520, 420]}]},
	"shelf_boxes": {"0": [["S1", [0, 0, 100, 100]]]},
	"action_shelf_mapping": [[7, 0, "S1", "Reach To Shelf"], [7, 1, "S1", "Inspect Shelf"], [7, 2, "S1", "Hand In Shelf"]]
}`

func setupRouter(t *testing.T, mutate func(*config.Config)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conf := config.Default()
	conf.Database.Driver = "sqlite"
	conf.Database.SQLitePath = filepath.Join(t.TempDir(), "api.db")
	if mutate != nil {
		mutate(conf)
	}

	db, err := database.Open(conf.Database, zap.NewNop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	database.DB = db
	t.Cleanup(func() {
		database.DB = nil
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	svc := services.NewAnalysisService(zap.NewNop(), conf.Analysis, nil)
	return Setup(zap.NewNop(), svc, conf)
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := setupRouter(t, nil)
	w := do(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("expected security headers, got %v", w.Header())
	}
}

func TestAnalyzeShelves(t *testing.T) {
	r := setupRouter(t, nil)
	w := do(r, http.MethodPost, "/v1/shelves", jobBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		ShelfInteractions     map[string]int `json:"shelf_interactions"`
		LayoutRecommendations []struct {
			ShelfID   string `json:"shelf_id"`
			Interaksi int    `json:"interaksi"`
		} `json:"layout_recommendations"`
		TotalInteractions int `json:"total_interactions"`
		TotalShelves      int `json:"total_shelves"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Second detection has its midpoint at the frame corner and clamps to the last cell.
	if resp.ShelfInteractions["S1"] != 1 || resp.ShelfInteractions["shelf_4_3"] != 1 {
		t.Fatalf("unexpected interactions %v", resp.ShelfInteractions)
	}
	if resp.TotalInteractions != 2 || resp.TotalShelves != 2 || len(resp.LayoutRecommendations) != 2 {
		t.Fatalf("unexpected totals %+v", resp)
	}
}

func TestAnalyzeShelvesValidation(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(r, http.MethodPost, "/v1/shelves", `{"frame_width": 0, "frame_height": 10}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero width, got %d", w.Code)
	}
	w = do(r, http.MethodPost, "/v1/shelves", `{not json`)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), `"error"`) {
		t.Fatalf("expected JSON 400 for broken body, got %d %s", w.Code, w.Body.String())
	}
}

func TestAnalyzeJourney(t *testing.T) {
	r := setupRouter(t, nil)
	w := do(r, http.MethodPost, "/v1/journey", `{"action_shelf_mapping": [[1, 0, "A", "Reach"], [1, 1, "A", "Reach"], [1, 2, "A", "Inspect"]]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	want := `{"action_shelf_mapping":[[1,0,"A","Reach"],[1,2,"A","Inspect"]],"journey_analysis":{}}`
	if w.Body.String() != want {
		t.Fatalf("unexpected body\nwant %s\ngot  %s", want, w.Body.String())
	}
}

func TestVolumeCaps(t *testing.T) {
	r := setupRouter(t, func(c *config.Config) {
		c.Analysis.MaxEvents = 2
		c.Analysis.MaxDetections = 1
	})
	w := do(r, http.MethodPost, "/v1/journey", `{"action_shelf_mapping": [["a"], ["b"], ["c"]]}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for events, got %d", w.Code)
	}
	w = do(r, http.MethodPost, "/v1/shelves", jobBody)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for detections, got %d", w.Code)
	}
}

func TestAnalysisLifecycle(t *testing.T) {
	r := setupRouter(t, nil)

	w := do(r, http.MethodPost, "/v1/analyses", jobBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID              string `json:"id"`
		JourneyAnalysis struct {
			OutcomeDistribution map[string]int `json:"outcome_distribution"`
		} `json:"journey_analysis"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.JourneyAnalysis.OutcomeDistribution["keraguan_pembatalan"] != 1 {
		t.Fatalf("unexpected created analysis %s", w.Body.String())
	}

	w = do(r, http.MethodGet, "/v1/analyses/"+created.ID, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"video_name":"entrance.mp4"`) {
		t.Fatalf("unexpected stored analysis %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/v1/analyses/"+created.ID+"/charts", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"funnel"`) {
		t.Fatalf("unexpected charts %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/v1/analyses?limit=5", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), created.ID) {
		t.Fatalf("unexpected listing %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/v1/analyses?limit=-1", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative limit, got %d", w.Code)
	}
}

func TestUnknownAnalysis(t *testing.T) {
	r := setupRouter(t, nil)
	for _, path := range []string{"/v1/analyses/missing", "/v1/analyses/missing/charts"} {
		w := do(r, http.MethodGet, path, "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, w.Code)
		}
	}
}

func TestRateLimit(t *testing.T) {
	r := setupRouter(t, func(c *config.Config) { c.Server.RateLimit = 1 })
	body := `{"action_shelf_mapping": []}`
	if w := do(r, http.MethodPost, "/v1/journey", body); w.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/v1/journey", body); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Fatalf("GET routes are not limited, got %d", w.Code)
	}
}
