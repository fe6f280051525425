package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/telegram-chess-bot/internal/obslog"
)

// Store holds one session per chat plus a gameID lookup index.
// Both maps are guarded by the same mutex so they can never be observed
// out of step: a chat entry always has a matching game entry and vice versa.
type Store struct {
	mu sync.RWMutex

	byChat     map[int64]*Session
	chatByGame map[string]int64

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		byChat:     make(map[int64]*Session),
		chatByGame: make(map[string]int64),
		now:        time.Now,
	}
}

// Create inserts a session for chatID keyed to gameID. An existing session
// for the chat is overwritten and its game index entry dropped; callers are
// expected to check HasActiveGame before creating.
func (s *Store) Create(gameID string, chatID, playerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byChat[chatID]; ok {
		delete(s.chatByGame, prev.GameID)
	}

	sess := &Session{
		GameID:       gameID,
		ChatID:       chatID,
		PlayerID:     playerID,
		GameStatus:   StatusActive,
		LastActivity: s.now(),
	}
	s.byChat[chatID] = sess
	s.chatByGame[gameID] = chatID

	obslog.L().Info("session_create",
		zap.String("game_id", gameID),
		zap.Int64("chat_id", chatID),
	)
}

// Get returns a copy of the chat's session, refreshing its activity clock.
// Any lookup counts as liveness for the expiry sweep.
func (s *Store) Get(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byChat[chatID]
	if !ok {
		return nil
	}
	sess.LastActivity = s.now()
	cp := *sess
	return &cp
}

// GetByGameID resolves the owning chat through the game index.
func (s *Store) GetByGameID(gameID string) *Session {
	s.mu.RLock()
	chatID, ok := s.chatByGame[gameID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return s.Get(chatID)
}

// Update mutates color and status for the chat's session. No-op if absent.
func (s *Store) Update(chatID int64, color Color, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byChat[chatID]
	if !ok {
		return
	}
	sess.PlayerColor = color
	sess.GameStatus = status
	sess.LastActivity = s.now()
}

// SetOpponentName records the opponent display name once it is known.
func (s *Store) SetOpponentName(chatID int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.byChat[chatID]; ok {
		sess.OpponentName = name
	}
}

// Remove deletes the session and its game index entry. No-op if absent.
func (s *Store) Remove(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byChat[chatID]
	if !ok {
		return
	}
	delete(s.chatByGame, sess.GameID)
	delete(s.byChat, chatID)

	obslog.L().Info("session_remove",
		zap.String("game_id", sess.GameID),
		zap.Int64("chat_id", chatID),
	)
}

// HasActiveGame reports whether the chat has an ongoing game.
func (s *Store) HasActiveGame(chatID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byChat[chatID].IsActive()
}

// ExpireOlderThan removes every session whose last activity precedes
// now minus ttl, from both indices. Returns the number removed.
func (s *Store) ExpireOlderThan(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for chatID, sess := range s.byChat {
		if sess.LastActivity.Before(cutoff) {
			delete(s.chatByGame, sess.GameID)
			delete(s.byChat, chatID)
			removed++
			obslog.L().Info("session_expire",
				zap.String("game_id", sess.GameID),
				zap.Int64("chat_id", chatID),
			)
		}
	}
	return removed
}

// Count returns the number of tracked sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byChat)
}
