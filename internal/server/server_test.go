package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/config"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/game"
)

type wireResponse struct {
	ID     string          `json:"id"`
	Op     string          `json:"op"`
	Event  string          `json:"event"`
	Player string          `json:"player"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type wireResult struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Walk    struct {
		ID string `json:"id"`
	} `json:"walk"`
	XP int `json:"xp"`
}

type testServer struct {
	t      *testing.T
	srv    *Server
	http   *httptest.Server
	engine *game.Engine
	clock  *testClock
}

func newTestServer(t *testing.T, mutate func(cfg *config.ServerConfig)) *testServer {
	t.Helper()
	cfg := config.DefaultConfig().Server
	if mutate != nil {
		mutate(&cfg)
	}
	engine, clock := newTestEngine(t)
	srv := NewServer(&cfg, engine)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		hs.Close()
	})
	return &testServer{t: t, srv: srv, http: hs, engine: engine, clock: clock}
}

func (ts *testServer) dial(header http.Header) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws"
	return websocket.DefaultDialer.Dial(url, header)
}

func (ts *testServer) connect() *websocket.Conn {
	ts.t.Helper()
	conn, _, err := ts.dial(nil)
	if err != nil {
		ts.t.Fatalf("dial: %v", err)
	}
	ts.t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg string) wireResponse {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
	return readResponse(t, conn)
}

func readResponse(t *testing.T, conn *websocket.Conn) wireResponse {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resp wireResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	return resp
}

func decodeResult(t *testing.T, resp wireResponse) wireResult {
	t.Helper()
	var r wireResult
	if err := json.Unmarshal(resp.Result, &r); err != nil {
		t.Fatalf("result %s: %v", resp.Result, err)
	}
	return r
}

func TestWebSocketRequests(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := ts.connect()

	resp := roundTrip(t, conn, `{"id":"1","op":"create","player":"10","args":{"name":"Саня","country":"russia","class":"alcoholic"}}`)
	if resp.ID != "1" || resp.Op != "create" || resp.Error != "" {
		t.Fatalf("create response = %+v", resp)
	}
	if r := decodeResult(t, resp); !r.Success {
		t.Errorf("create failed: %+v", r)
	}

	resp = roundTrip(t, conn, `{"id":"2","op":"daily","player":"10"}`)
	if r := decodeResult(t, resp); !r.Success || r.Message == "" {
		t.Errorf("daily = %+v", r)
	}

	resp = roundTrip(t, conn, `{"id":"3","op":"daily","player":"10"}`)
	if r := decodeResult(t, resp); r.Success || r.Code != "INSUFFICIENT_RESOURCE" {
		t.Errorf("second daily = %+v", r)
	}

	// blank messages are skipped
	if err := conn.WriteMessage(websocket.TextMessage, []byte("   ")); err != nil {
		t.Fatal(err)
	}
	resp = roundTrip(t, conn, `{"id":"4","op":"bosses"}`)
	if resp.ID != "4" || resp.Error != "" {
		t.Errorf("bosses response = %+v", resp)
	}
}

func TestWebSocketLockout(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.ServerConfig) {
		cfg.RateLimit.MaxBadRequests = 2
	})
	conn := ts.connect()

	resp := roundTrip(t, conn, `{"op":"dance","player":"1"}`)
	if !strings.Contains(resp.Error, "unknown op") {
		t.Errorf("first bad request = %+v", resp)
	}
	resp = roundTrip(t, conn, `garbage`)
	if !strings.Contains(resp.Error, "locked out") {
		t.Errorf("second bad request = %+v", resp)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection should be closed after lockout")
	}

	_, httpResp, err := ts.dial(nil)
	if err == nil {
		t.Fatal("locked out client could reconnect")
	}
	if httpResp == nil || httpResp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("reconnect response = %v", httpResp)
	}
}

func TestWebSocketOriginRejected(t *testing.T) {
	ts := newTestServer(t, nil)

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, httpResp, err := ts.dial(header)
	if err == nil {
		t.Fatal("cross-origin connection accepted")
	}
	if httpResp == nil || httpResp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v", httpResp)
	}
	if open := ts.srv.slots.stats().Open; open != 0 {
		t.Errorf("rejected upgrade kept a connection slot: %d", open)
	}
}

func TestWebSocketConnectionLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.ServerConfig) {
		cfg.Connections.MaxPerIP = 1
	})
	ts.connect()

	_, httpResp, err := ts.dial(nil)
	if err == nil {
		t.Fatal("second connection from the same IP accepted")
	}
	if httpResp == nil || httpResp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("response = %v", httpResp)
	}
	if got := ts.srv.slots.stats(); got.Open != 1 || got.Refused[refusedPerIP] != 1 {
		t.Errorf("slots = %+v", got)
	}
}

func TestWalkFinishedIsPushed(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := ts.connect()

	roundTrip(t, conn, `{"op":"create","player":"10","args":{"name":"Саня","country":"russia","class":"alcoholic"}}`)
	resp := roundTrip(t, conn, `{"op":"walk","player":"10","args":{"tier":"short"}}`)
	started := decodeResult(t, resp)
	if !started.Success || started.Walk.ID == "" {
		t.Fatalf("walk = %s", resp.Result)
	}

	ts.clock.Advance(31 * time.Minute)
	if err := ts.engine.FinishWalk(context.Background(), started.Walk.ID); err != nil {
		t.Fatal(err)
	}

	event := readResponse(t, conn)
	if event.Event != game.EventWalkFinished || event.Player != "10" {
		t.Fatalf("event = %+v", event)
	}
	if r := decodeResult(t, event); !r.Success || r.XP != 10 {
		t.Errorf("walk payout = %s", event.Result)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.connect()

	resp, err := http.Get(ts.http.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Status      string         `json:"status"`
		Connections int            `json:"connections"`
		IPs         int            `json:"ips"`
		Peak        int            `json:"peak"`
		Refused     map[string]int `json:"refused"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Connections != 1 || body.IPs != 1 || body.Peak != 1 {
		t.Errorf("health = %+v", body)
	}
	if len(body.Refused) != 0 {
		t.Errorf("refused = %v, want none", body.Refused)
	}
}

func TestShutdownClosesSessions(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := ts.connect()
	roundTrip(t, conn, `{"op":"bosses"}`)

	if err := ts.srv.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection still open after shutdown")
	}
}

func TestWebSocketFloodThrottle(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.ServerConfig) {
		cfg.Flood = config.FloodConfig{Enabled: true, MaxRequests: 2, WindowSeconds: 60}
	})
	conn := ts.connect()

	for i := 0; i < 2; i++ {
		if resp := roundTrip(t, conn, `{"op":"bosses"}`); resp.Error != "" {
			t.Fatalf("request %d = %+v", i+1, resp)
		}
	}
	resp := roundTrip(t, conn, `{"id":"3","op":"bosses"}`)
	if resp.ID != "3" || !strings.Contains(resp.Error, "slow down") {
		t.Errorf("throttled response = %+v", resp)
	}
	if strikes := ts.srv.limiter.Strikes("127.0.0.1"); strikes != 0 {
		t.Errorf("throttled request counted as bad: %d", strikes)
	}
}
