package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rivalmap/rivalmap/internal/checkpoint"
	"github.com/rivalmap/rivalmap/internal/llm"
	"github.com/rivalmap/rivalmap/internal/logging"
	"github.com/rivalmap/rivalmap/internal/memory"
	"github.com/rivalmap/rivalmap/internal/pipeline"
	"github.com/rivalmap/rivalmap/internal/planner"
	"github.com/rivalmap/rivalmap/internal/researcher"
	"github.com/rivalmap/rivalmap/internal/strategist"
	"github.com/rivalmap/rivalmap/internal/tools"
)

func testServer(t *testing.T) (*httptest.Server, *httptest.Server) {
	t.Helper()
	log := logging.New()
	log.SetLevel(logging.LevelError)

	mem := memory.New(memory.NewInMemoryStore())
	gen := llm.NewGenerator(nil)
	ctrl := pipeline.New(
		planner.New(gen, mem, log),
		researcher.New(tools.NewSearchClient("", ""), tools.NewScraper(5*time.Second, ""), mem, log, researcher.Options{}),
		strategist.New(gen, mem, log),
		checkpoint.NewInMemoryStore(),
		log,
	)

	page := `<html><head><title>Acme</title></head><body><p>` + strings.Repeat("payments platform ", 40) + `</p></body></html>`
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(page))
	}))
	t.Cleanup(site.Close)

	srv := httptest.NewServer(NewHandler(ctrl, log).Routes())
	t.Cleanup(srv.Close)
	return srv, site
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp, out
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp, out
}

func TestCreateSessionEndpoint(t *testing.T) {
	srv, site := testServer(t)

	resp, body := postJSON(t, srv.URL+"/sessions", map[string]interface{}{
		"company_url": site.URL,
		"query":       "analyze our competitors",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body = %+v", resp.StatusCode, body)
	}
	if body["session_id"] == "" || body["session_id"] == nil {
		t.Errorf("session_id missing: %+v", body)
	}
	if body["approval_status"] != "pending_plan_approval" {
		t.Errorf("approval_status = %v", body["approval_status"])
	}
	if msg, _ := body["message"].(string); msg == "" {
		t.Errorf("message missing: %+v", body)
	}
}

func TestCreateSessionRequiresCompanyURL(t *testing.T) {
	srv, _ := testServer(t)

	resp, body := postJSON(t, srv.URL+"/sessions", map[string]interface{}{"query": "hi"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, body = %+v", resp.StatusCode, body)
	}
}

func TestApprovalFlowOverHTTP(t *testing.T) {
	srv, site := testServer(t)

	_, created := postJSON(t, srv.URL+"/sessions", map[string]interface{}{"company_url": site.URL})
	id := created["session_id"].(string)

	resp, body := postJSON(t, srv.URL+"/sessions/"+id+"/message", map[string]interface{}{"action": "approve"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %+v", resp.StatusCode, body)
	}
	if body["approval_status"] != "pending_research_approval" {
		t.Errorf("approval_status = %v", body["approval_status"])
	}
	if body["stage"] != "research" {
		t.Errorf("stage = %v", body["stage"])
	}

	_, stateBody := getJSON(t, srv.URL+"/sessions/"+id+"/state")
	if stateBody["research_results_count"].(float64) < 1 {
		t.Errorf("state = %+v", stateBody)
	}
	if stateBody["has_strategic_insights"] != false {
		t.Errorf("insights flagged before strategy stage: %+v", stateBody)
	}
}

func TestSendMessageValidatesAction(t *testing.T) {
	srv, site := testServer(t)

	_, created := postJSON(t, srv.URL+"/sessions", map[string]interface{}{"company_url": site.URL})
	id := created["session_id"].(string)

	resp, _ := postJSON(t, srv.URL+"/sessions/"+id+"/message", map[string]interface{}{"action": "ship it"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestUnknownSessionReturns404(t *testing.T) {
	srv, _ := testServer(t)

	resp, body := postJSON(t, srv.URL+"/sessions/nope/message", map[string]interface{}{"action": "approve"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("message status = %d, body = %+v", resp.StatusCode, body)
	}

	resp, _ = getJSON(t, srv.URL+"/sessions/nope/state")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("state status = %d", resp.StatusCode)
	}
}

func TestListSessions(t *testing.T) {
	srv, site := testServer(t)

	_, created := postJSON(t, srv.URL+"/sessions", map[string]interface{}{"company_url": site.URL})
	id := created["session_id"].(string)

	_, body := getJSON(t, srv.URL+"/sessions")
	ids, _ := body["sessions"].([]interface{})
	if len(ids) != 1 || ids[0] != id {
		t.Errorf("sessions = %+v", body)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	resp, body := getJSON(t, srv.URL+"/health")
	if resp.StatusCode != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("health = %d %+v", resp.StatusCode, body)
	}
}
