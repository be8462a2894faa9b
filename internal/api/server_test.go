package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/lucasmv/licita-radar/internal/cache"
	"github.com/lucasmv/licita-radar/internal/models"
)

func testServer() *Server {
	s := &Server{
		Echo:    echo.New(),
		Notices: cache.NewNoticeCache(),
	}
	s.routes()
	return s
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	rec := doJSON(t, testServer(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleClassify(t *testing.T) {
	rec := doJSON(t, testServer(), http.MethodPost, "/api/v1/classify",
		`{"text":"Contratação de empresa para desenvolvimento de sistema de gestão de frotas"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp classifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Area != "Tecnologia da Informação" {
		t.Errorf("wrong area: %s", resp.Area)
	}
	if len(resp.Keywords) == 0 {
		t.Error("keywords missing")
	}
}

func TestHandleMatch(t *testing.T) {
	body := `{
		"profile": {
			"name": "TechSolutions",
			"operating_areas": ["Tecnologia da Informação"],
			"capabilities": ["desenvolvimento de software"],
			"operating_states": ["SP"]
		},
		"opportunity": {
			"id": "x-1",
			"state": "SP",
			"object_description": "Contratação de empresa especializada em desenvolvimento de sistema de gestão"
		}
	}`

	rec := doJSON(t, testServer(), http.MethodPost, "/api/v1/match", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result models.MatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if result.Percentage < 60 {
		t.Errorf("strong profile should score well, got %d", result.Percentage)
	}
	if len(result.Highlights) < 2 {
		t.Errorf("expected at least 2 highlights, got %d", len(result.Highlights))
	}
}

func TestHandleMatch_MissingObject(t *testing.T) {
	rec := doJSON(t, testServer(), http.MethodPost, "/api/v1/match", `{"profile":{},"opportunity":{}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleDigest_UsesCachedNotices(t *testing.T) {
	s := testServer()
	s.Notices.StoreNotices("pncp_editais", []models.Opportunity{
		{ID: "a", State: "SP", ObjectDescription: "Desenvolvimento de sistema de informação para secretaria"},
		{ID: "b", State: "AM", ObjectDescription: "Aquisição de gêneros alimentícios para merenda"},
	})

	body := `{
		"profile": {
			"operating_areas": ["Tecnologia da Informação"],
			"capabilities": ["desenvolvimento de software"],
			"operating_states": ["SP"]
		},
		"threshold": 50
	}`

	rec := doJSON(t, s, http.MethodPost, "/api/v1/digest", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		TotalConsidered int                        `json:"total_considered"`
		Matches         []models.RankedOpportunity `json:"matches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.TotalConsidered != 2 {
		t.Errorf("expected 2 considered, got %d", resp.TotalConsidered)
	}
	for _, m := range resp.Matches {
		if m.Opportunity.ID == "b" {
			t.Error("food notice should not match an IT profile above threshold")
		}
	}
}

func TestAdminRoutesRequireSecret(t *testing.T) {
	rec := doJSON(t, testServer(), http.MethodPost, "/api/v1/admin/recategorize", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret, got %d", rec.Code)
	}
}

func TestHandleJobStatus_NotFound(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/job/deadbeef", nil)
	req.Header.Set("X-Admin-Secret", mustAdminSecret(t))
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", rec.Code)
	}
}

func mustAdminSecret(t *testing.T) string {
	t.Helper()
	secret, err := adminSecret()
	if err != nil {
		t.Fatalf("admin secret unavailable: %v", err)
	}
	return secret
}
