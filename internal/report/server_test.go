package report

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lukejeff/swapbench/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServer(t *testing.T, db *gorm.DB) *httptest.Server {
	t.Helper()
	store := seedStore(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	tmpl, err := parseTemplates()
	if err != nil {
		t.Fatal(err)
	}
	router.SetHTMLTemplate(tmpl)
	registerRoutes(router, store, db)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return resp.StatusCode, string(body)
}

func TestServeRequiresStore(t *testing.T) {
	err := Serve(context.Background(), ServeOpts{})
	if err == nil || !strings.Contains(err.Error(), "store is required") {
		t.Errorf("err = %v, want store-required error", err)
	}
}

func TestServerPages(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := get(t, srv.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("GET / = %d, want 200", status)
	}
	if !strings.Contains(body, "Face Swap Results") {
		t.Errorf("index page missing heading:\n%s", body)
	}
	// Server pages point at the mounted results dir, not relative files.
	if !strings.Contains(body, `href="/compare"`) {
		t.Errorf("index page should link /compare:\n%s", body)
	}

	status, body = get(t, srv.URL+"/compare")
	if status != http.StatusOK {
		t.Fatalf("GET /compare = %d, want 200", status)
	}
	if !strings.Contains(body, `src="/results/alice_to_card_v2_result.jpg"`) {
		t.Errorf("comparison page should reference /results/ images:\n%s", body)
	}

	status, _ = get(t, srv.URL+"/review")
	if status != http.StatusOK {
		t.Errorf("GET /review = %d, want 200", status)
	}
}

func TestServerServesResultImages(t *testing.T) {
	srv := newTestServer(t, nil)
	status, body := get(t, srv.URL+"/results/alice_to_card_v2_result.jpg")
	if status != http.StatusOK {
		t.Fatalf("GET result image = %d, want 200", status)
	}
	if body != "img" {
		t.Errorf("image body = %q, want raw bytes", body)
	}
}

func TestServerSessionEndpoints(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&models.RunSession{}, &models.SwapRequest{}); err != nil {
		t.Fatal(err)
	}
	session := &models.RunSession{ID: "sess-1", Mode: "batch", APIVariant: "v2", StartedAt: time.Now()}
	if err := db.Create(session).Error; err != nil {
		t.Fatal(err)
	}
	row := &models.SwapRequest{RequestID: "v2_1", SessionID: "sess-1", BatchNum: 1, Success: true}
	if err := db.Create(row).Error; err != nil {
		t.Fatal(err)
	}

	srv := newTestServer(t, db)

	status, body := get(t, srv.URL+"/api/sessions")
	if status != http.StatusOK {
		t.Fatalf("GET /api/sessions = %d, want 200", status)
	}
	var sessions []models.RunSession
	if err := json.Unmarshal([]byte(body), &sessions); err != nil {
		t.Fatalf("sessions not JSON: %v\n%s", err, body)
	}
	if len(sessions) != 1 || sessions[0].ID != "sess-1" {
		t.Errorf("sessions = %+v, want sess-1", sessions)
	}

	status, body = get(t, srv.URL+"/api/sessions/sess-1/requests")
	if status != http.StatusOK {
		t.Fatalf("GET session requests = %d, want 200", status)
	}
	var requests []models.SwapRequest
	if err := json.Unmarshal([]byte(body), &requests); err != nil {
		t.Fatalf("requests not JSON: %v\n%s", err, body)
	}
	if len(requests) != 1 || requests[0].RequestID != "v2_1" {
		t.Errorf("requests = %+v, want v2_1", requests)
	}
}

func TestServerNoDBSkipsAPIRoutes(t *testing.T) {
	srv := newTestServer(t, nil)
	status, _ := get(t, srv.URL+"/api/sessions")
	if status != http.StatusNotFound {
		t.Errorf("GET /api/sessions without db = %d, want 404", status)
	}
}
