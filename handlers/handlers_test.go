package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jknair0/beforeeach"

	"fieldops-service/config"
	"fieldops-service/database"
	"fieldops-service/middleware"
	"fieldops-service/models"
	"fieldops-service/twilio"
	ws "fieldops-service/websocket"
)

var (
	db   *sql.DB
	mock sqlmock.Sqlmock
)

func setUp() {
	gin.SetMode(gin.TestMode)
	db, mock, _ = sqlmock.New()
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

var jobCols = []string{
	"id", "worker_phone", "site_name", "sector", "status",
	"circle", "company", "sectors_json", "mac_id", "rsn", "azimuth_deg", "created_at",
}

func newTestHandlers() *Handlers {
	cfg := &config.Config{
		AdminUser:       "admin",
		AdminPassword:   "s3cret",
		RequiredSectors: []string{"Sec1"},
	}
	hub := ws.NewHub()
	go hub.Run()
	return NewHandlers(
		cfg,
		database.NewJobsService(db),
		database.NewPhotosService(db),
		hub,
		nil,
		twilio.NewClient("", "", ""),
		middleware.NewTokenIssuer("test-secret"),
	)
}

func performJSON(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestLogin(t *testing.T) {
	it(func() {
		h := newTestHandlers()
		router := gin.New()
		router.POST("/api/auth/login", h.Login)

		w := performJSON(router, "POST", "/api/auth/login", `{"username":"admin","password":"wrong"}`)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("wrong password: status = %d", w.Code)
		}

		w = performJSON(router, "POST", "/api/auth/login", `{"username":"admin","password":"s3cret"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("valid login: status = %d, body %s", w.Code, w.Body.String())
		}
		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("response not json: %v", err)
		}
		if resp["token"] == "" {
			t.Error("missing token in response")
		}
	})
}

func TestGetJobNotFound(t *testing.T) {
	it(func() {
		h := newTestHandlers()
		router := gin.New()
		router.GET("/api/jobs/:id", h.GetJob)

		mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id =").
			WithArgs("ffffffffffffffffffffffff").
			WillReturnError(sql.ErrNoRows)

		w := performJSON(router, "GET", "/api/jobs/ffffffffffffffffffffffff", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, body %s", w.Code, w.Body.String())
		}
	})
}

func TestReadySites(t *testing.T) {
	it(func() {
		h := newTestHandlers()
		router := gin.New()
		router.GET("/api/ready-sites", h.ReadySites)

		created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
		mock.ExpectQuery("SELECT (.+) FROM jobs ORDER BY id DESC").
			WillReturnRows(sqlmock.NewRows(jobCols).
				AddRow("68000000aaaaaaaaaaaaaaaa", "whatsapp:+15551234567", "MH-0001", "Sec1", "DONE",
					"Maharashtra", "Acme", `[{"sector":"Sec1","required_types":[],"current_index":0,"status":"DONE"}]`,
					nil, nil, nil, created).
				AddRow("68000000bbbbbbbbbbbbbbbb", "whatsapp:+15551234567", "MH-0002", "Sec1", "PENDING",
					"Maharashtra", "Acme", `[]`, nil, nil, nil, created))

		w := performJSON(router, "GET", "/api/ready-sites", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		var summaries []models.SiteExportSummary
		if err := json.Unmarshal(w.Body.Bytes(), &summaries); err != nil {
			t.Fatalf("response not json: %v", err)
		}
		if len(summaries) != 1 {
			t.Fatalf("summaries = %d, want 1", len(summaries))
		}
		if summaries[0].SiteName != "MH-0001" {
			t.Errorf("site = %q", summaries[0].SiteName)
		}
	})
}

func TestExportSiteZipNotReady(t *testing.T) {
	it(func() {
		h := newTestHandlers()
		router := gin.New()
		router.GET("/api/sites/:siteId/export.zip", h.ExportSiteZip)

		created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
		mock.ExpectQuery("SELECT (.+) FROM jobs WHERE site_name =").
			WithArgs("MH-0002").
			WillReturnRows(sqlmock.NewRows(jobCols).
				AddRow("68000000bbbbbbbbbbbbbbbb", "whatsapp:+15551234567", "MH-0002", "Sec1", "PENDING",
					"Maharashtra", "Acme", `[]`, nil, nil, nil, created))

		w := performJSON(router, "GET", "/api/sites/MH-0002/export.zip", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, body %s", w.Code, w.Body.String())
		}
	})
}

func TestWhatsAppError(t *testing.T) {
	it(func() {
		h := newTestHandlers()
		router := gin.New()
		router.POST("/api/whatsapp/error", h.WhatsAppError)

		form := url.Values{"ErrorCode": {"63016"}, "MessageSid": {"SM123"}}
		req := httptest.NewRequest("POST", "/api/whatsapp/error", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, body %s", w.Code, w.Body.String())
		}
	})
}

func TestSectorTemplate(t *testing.T) {
	it(func() {
		h := newTestHandlers()
		router := gin.New()
		router.GET("/api/templates/sector/:sector", h.SectorTemplate)

		w := performJSON(router, "GET", "/api/templates/sector/Sec1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var resp struct {
			RequiredTypes []string          `json:"required_types"`
			Labels        map[string]string `json:"labels"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("response not json: %v", err)
		}
		if len(resp.RequiredTypes) != 14 {
			t.Errorf("required types = %d, want 14", len(resp.RequiredTypes))
		}
		if resp.Labels["INSTALLATION"] == "" {
			t.Error("missing label for INSTALLATION")
		}
	})
}

func TestWhatsAppWebhookNoJobs(t *testing.T) {
	it(func() {
		h := newTestHandlers()
		router := gin.New()
		router.POST("/api/whatsapp/webhook", h.WhatsAppWebhook)

		mock.ExpectQuery("SELECT (.+) FROM jobs WHERE worker_phone =").
			WithArgs("whatsapp:+15551234567").
			WillReturnRows(sqlmock.NewRows(jobCols))

		form := url.Values{}
		form.Set("From", "whatsapp:+15551234567")
		form.Set("Body", "hi")

		req := httptest.NewRequest("POST", "/api/whatsapp/webhook", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
			t.Errorf("content type = %q", ct)
		}
		if !strings.Contains(w.Body.String(), "No active job assigned yet") {
			t.Errorf("unexpected reply: %s", w.Body.String())
		}
	})
}

func TestWhatsAppWebhookSectorSelection(t *testing.T) {
	it(func() {
		h := newTestHandlers()
		router := gin.New()
		router.POST("/api/whatsapp/webhook", h.WhatsAppWebhook)

		created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
		blocks := `[{"sector":"Sec1","required_types":["INSTALLATION"],"current_index":0,"status":"PENDING"}]`
		mock.ExpectQuery("SELECT (.+) FROM jobs WHERE worker_phone =").
			WithArgs("whatsapp:+15551234567").
			WillReturnRows(sqlmock.NewRows(jobCols).
				AddRow("68000000aaaaaaaaaaaaaaaa", "whatsapp:+15551234567", "MH-0001", "Sec1", "PENDING",
					"", "", blocks, nil, nil, nil, created).
				AddRow("68000000bbbbbbbbbbbbbbbb", "whatsapp:+15551234567", "MH-0001", "Sec2", "PENDING",
					"", "", blocks, nil, nil, nil, created))

		form := url.Values{}
		form.Set("From", "whatsapp:+15551234567")
		form.Set("Body", "hello")

		req := httptest.NewRequest("POST", "/api/whatsapp/webhook", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		reply := w.Body.String()
		if !strings.Contains(reply, "multiple active sectors") {
			t.Errorf("expected sector selection prompt: %s", reply)
		}
		if !strings.Contains(reply, "SEC1") || !strings.Contains(reply, "SEC2") {
			t.Errorf("sector ids missing from prompt: %s", reply)
		}
	})
}
