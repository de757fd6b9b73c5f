package uclfantasy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/uclfantasy/squad-optimizer/internal/platform/logging"
	"github.com/uclfantasy/squad-optimizer/internal/platform/resilience"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:  baseURL,
		Email:    "manager@example.com",
		Password: "secret",
		Timeout:  2 * time.Second,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	}, logging.NewNop())
}

func TestClient_LoginCapturesSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case loginPath:
			if r.Method != http.MethodPost {
				t.Errorf("expected POST login, got %s", r.Method)
			}
			http.SetCookie(w, &http.Cookie{Name: "sessionId", Value: "abc123"})
			w.Write([]byte(`{"data":{"value":{"UCL_CLASSIC_RAW":{"guid":"user-guid-1"}}}}`))
		case playersPath:
			cookie, err := r.Cookie("sessionId")
			if err != nil || cookie.Value != "abc123" {
				t.Errorf("expected session cookie forwarded, got %v", err)
			}
			if r.URL.Query().Get("gamedayId") != "3" {
				t.Errorf("unexpected gamedayId %q", r.URL.Query().Get("gamedayId"))
			}
			w.Write([]byte(`{"data":{"value":{"playerList":[
				{"id":250101,"pDName":"Courtois","cCode":"RMA","skill":1,"value":"6.5",
				 "totPts":24,"avgPlayerPts":"8","lastGdPoints":10,"selPer":44.2,
				 "isActive":1,"trained":"In contention to start next game"}
			]}}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	ctx := context.Background()

	if err := c.Login(ctx); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if c.UserGUID() != "user-guid-1" {
		t.Fatalf("expected guid captured, got %q", c.UserGUID())
	}

	records, err := c.PlayersByMatchday(ctx, 3)
	if err != nil {
		t.Fatalf("fetch players failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	got := records[0]
	if got.ID != "250101" || got.Name != "Courtois" || got.Club != "RMA" {
		t.Fatalf("unexpected identity mapping: %+v", got)
	}
	if got.SkillCode != 1 || got.IsActive != 1 {
		t.Fatalf("unexpected flags: %+v", got)
	}
	if got.Price != "6.5" || got.AvgPoints != "8" || got.SelectionPercent != "44.2" {
		t.Fatalf("expected raw numeric strings preserved: %+v", got)
	}
}

func TestClient_PlayersFeedCached(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"data":{"value":{"playerList":[]}}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	ctx := context.Background()

	if _, err := c.PlayersByMatchday(ctx, 1); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if _, err := c.PlayersByMatchday(ctx, 1); err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected cached feed to hit upstream once, got %d", hits)
	}
}

func TestClient_CurrentSquad(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"value":{"playerid":[101,102],"teamBalance":4.5}}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	c.guid = "user-guid-1"

	current, found, err := c.CurrentSquad(context.Background(), 5)
	if err != nil {
		t.Fatalf("fetch current squad failed: %v", err)
	}
	if !found {
		t.Fatalf("expected team found")
	}
	if len(current.PlayerIDs) != 2 || current.PlayerIDs[0] != "101" {
		t.Fatalf("unexpected player ids: %v", current.PlayerIDs)
	}
	if current.TeamBalance != 4.5 {
		t.Fatalf("unexpected balance: %v", current.TeamBalance)
	}
}

func TestClient_CurrentSquadRequiresSession(t *testing.T) {
	c := newTestClient("http://localhost:0")
	if _, _, err := c.CurrentSquad(context.Background(), 1); err == nil {
		t.Fatalf("expected error without login")
	}
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.fetchPlayers(context.Background(), 1)
	if err == nil || !IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestClient_ClientErrorIsNotTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.fetchPlayers(context.Background(), 1)
	if err == nil || IsTransient(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestTruncateForLog_RuneBoundary(t *testing.T) {
	got := truncateForLog("abcdé", 5)
	if got != "abcd...(truncated)" {
		t.Fatalf("expected truncation before the split rune, got %q", got)
	}
	if truncateForLog("short", 10) != "short" {
		t.Fatalf("expected short values untouched")
	}
}

func TestClient_CircuitOpensAfterFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.fetchPlayers(ctx, i+1); err == nil {
			t.Fatalf("expected upstream failure")
		}
	}

	if _, err := c.fetchPlayers(ctx, 9); err == nil || IsTransient(err) {
		t.Fatalf("expected circuit rejection before dialing, got %v", err)
	}
}
