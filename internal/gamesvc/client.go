package gamesvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Client talks to the remote chess game service over HTTP.
type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateGame opens a new game waiting for an opponent.
func (c *Client) CreateGame(ctx context.Context, playerID int64, playerName string) (*GameResponse, error) {
	var resp GameResponse
	req := createGameRequest{PlayerID: playerID, PlayerName: playerName}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/games", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WaitingGames lists games that still need a second player.
func (c *Client) WaitingGames(ctx context.Context) ([]GameInfo, error) {
	var games []GameInfo
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/games/waiting", nil, &games, true); err != nil {
		return nil, err
	}
	return games, nil
}

// JoinGame joins an existing waiting game as the second player.
func (c *Client) JoinGame(ctx context.Context, gameID string, playerID int64, playerName string) (*GameResponse, error) {
	var resp GameResponse
	req := joinGameRequest{PlayerID: playerID, PlayerName: playerName}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/games/"+gameID+"/join", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MakeMove submits a move in the given notation.
func (c *Client) MakeMove(ctx context.Context, gameID string, playerID int64, notation string) (*GameResponse, error) {
	var resp GameResponse
	req := moveRequest{PlayerID: playerID, Notation: notation}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/games/"+gameID+"/move", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GameState fetches the current state of a game for the given player.
func (c *Client) GameState(ctx context.Context, gameID string, playerID int64) (*GameResponse, error) {
	var resp GameResponse
	path := "/api/games/" + gameID + "?playerId=" + strconv.FormatInt(playerID, 10)
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LegalMoves fetches the legal moves for the player from the game state's
// additional-info payload. A state without the payload yields an empty list.
func (c *Client) LegalMoves(ctx context.Context, gameID string, playerID int64) ([]string, error) {
	resp, err := c.GameState(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	return resp.LegalMoves(), nil
}

// OfferDraw proposes a draw to the opponent.
func (c *Client) OfferDraw(ctx context.Context, gameID string, playerID int64) (*GameResponse, error) {
	var resp GameResponse
	path := "/api/games/" + gameID + "/draw/offer?playerId=" + strconv.FormatInt(playerID, 10)
	if err := c.doJSON(ctx, fasthttp.MethodPost, path, nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RespondDraw accepts or declines a pending draw offer.
func (c *Client) RespondDraw(ctx context.Context, gameID string, playerID int64, accept bool) (*GameResponse, error) {
	var resp GameResponse
	path := "/api/games/" + gameID + "/draw/respond?playerId=" + strconv.FormatInt(playerID, 10) +
		"&accept=" + strconv.FormatBool(accept)
	if err := c.doJSON(ctx, fasthttp.MethodPost, path, nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping probes the service and returns its free-text status line.
func (c *Client) Ping(ctx context.Context) (string, error) {
	body, err := c.doRaw(ctx, fasthttp.MethodGet, "/api/games/test")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			err := fmt.Errorf("game api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) doRaw(ctx context.Context, method, path string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("game api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
	}
	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	return out, nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
