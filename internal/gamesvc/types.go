package gamesvc

import "encoding/json"

// PlayerInfo describes one side of a game as reported by the service.
type PlayerInfo struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Rating *int   `json:"rating"`
}

// GameResponse is the common response shape of the game endpoints.
// A missing or false success flag means failure; Message may carry the
// service's explanation either way.
type GameResponse struct {
	Success        bool                       `json:"success"`
	GameID         string                     `json:"gameId"`
	Status         string                     `json:"status"`
	Message        string                     `json:"message"`
	Board          string                     `json:"board"`
	CurrentTurn    string                     `json:"currentTurn"`
	WhitePlayer    *PlayerInfo                `json:"whitePlayer"`
	BlackPlayer    *PlayerInfo                `json:"blackPlayer"`
	AdditionalInfo map[string]json.RawMessage `json:"additionalInfo"`
}

// OK reports whether the response exists and the service flagged success.
func (r *GameResponse) OK() bool {
	return r != nil && r.Success
}

// LegalMoves extracts the legal-move list from the free-form additional-info
// payload. A missing or wrong-shaped field yields nil, never an error.
func (r *GameResponse) LegalMoves() []string {
	if r == nil || r.AdditionalInfo == nil {
		return nil
	}
	raw, ok := r.AdditionalInfo["legalMoves"]
	if !ok {
		return nil
	}
	var moves []string
	if err := json.Unmarshal(raw, &moves); err != nil {
		return nil
	}
	return moves
}

// GameInfo is one entry of the waiting-games listing.
type GameInfo struct {
	GameID          string `json:"gameId"`
	WhitePlayerName string `json:"whitePlayerName"`
	CreatedAt       string `json:"createdAt"`
}

type createGameRequest struct {
	PlayerID   int64  `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type joinGameRequest struct {
	PlayerID   int64  `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type moveRequest struct {
	PlayerID int64  `json:"playerId"`
	Notation string `json:"notation"`
}
