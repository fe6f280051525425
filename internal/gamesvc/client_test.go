package gamesvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, WithTimeout(2*time.Second), WithRetry(3))
}

func TestCreateGame(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/games" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body createGameRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.PlayerID != 42 || body.PlayerName != "alice" {
			t.Errorf("body = %+v", body)
		}
		json.NewEncoder(w).Encode(GameResponse{Success: true, GameID: "G1", Status: "WAITING"})
	}))

	resp, err := c.CreateGame(context.Background(), 42, "alice")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if !resp.OK() || resp.GameID != "G1" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestGameStateRetriesOn503(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(GameResponse{Success: true, GameID: "G1", Status: "ACTIVE"})
	}))

	resp, err := c.GameState(context.Background(), "G1", 42)
	if err != nil {
		t.Fatalf("GameState: %v", err)
	}
	if !resp.OK() {
		t.Fatalf("resp = %+v", resp)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestMakeMoveDoesNotRetry(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if _, err := c.MakeMove(context.Background(), "G1", 42, "e2-e4"); err == nil {
		t.Fatalf("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("mutating call retried: calls = %d", got)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))

	if _, err := c.GameState(context.Background(), "NOPE", 42); err == nil {
		t.Fatalf("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("4xx retried: calls = %d", got)
	}
}

func TestLegalMovesFromAdditionalInfo(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(GameResponse{
			Success: true,
			GameID:  "G1",
			AdditionalInfo: map[string]json.RawMessage{
				"legalMoves": json.RawMessage(`["e2e4","g1f3"]`),
			},
		})
	}))

	moves, err := c.LegalMoves(context.Background(), "G1", 42)
	if err != nil {
		t.Fatalf("LegalMoves: %v", err)
	}
	if len(moves) != 2 || moves[0] != "e2e4" {
		t.Fatalf("moves = %v", moves)
	}
}

func TestLegalMovesMalformedPayload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(GameResponse{
			Success: true,
			AdditionalInfo: map[string]json.RawMessage{
				"legalMoves": json.RawMessage(`"not-a-list"`),
			},
		})
	}))

	moves, err := c.LegalMoves(context.Background(), "G1", 42)
	if err != nil {
		t.Fatalf("LegalMoves: %v", err)
	}
	if moves != nil {
		t.Fatalf("malformed payload should yield nil, got %v", moves)
	}
}

func TestPing(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/games/test" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte("Chess API is working!\n"))
	}))

	out, err := c.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if out != "Chess API is working!" {
		t.Fatalf("Ping = %q", out)
	}
}

func TestRespondDrawQuery(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/games/G1/draw/respond" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("playerId") != "42" || q.Get("accept") != "true" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode(GameResponse{Success: true, Status: "DRAW"})
	}))

	resp, err := c.RespondDraw(context.Background(), "G1", 42, true)
	if err != nil {
		t.Fatalf("RespondDraw: %v", err)
	}
	if resp.Status != "DRAW" {
		t.Fatalf("resp = %+v", resp)
	}
}
