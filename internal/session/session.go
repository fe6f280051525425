package session

import "time"

// Color is the side a chat plays in its current game.
type Color string

const (
	ColorWhite   Color = "WHITE"
	ColorBlack   Color = "BLACK"
	ColorUnknown Color = ""
)

// Status mirrors the game status reported by the remote service.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCheck     Status = "CHECK"
	StatusCheckmate Status = "CHECKMATE"
	StatusStalemate Status = "STALEMATE"
	StatusDraw      Status = "DRAW"
	StatusUnknown   Status = ""
)

// Session tracks the one game a chat is currently engaged in.
type Session struct {
	GameID       string
	ChatID       int64
	PlayerID     int64
	PlayerColor  Color
	OpponentName string
	GameStatus   Status
	LastActivity time.Time
}

// IsActive reports whether the game is still being played.
func (s *Session) IsActive() bool {
	if s == nil {
		return false
	}
	return s.GameStatus == StatusActive || s.GameStatus == StatusCheck
}
