package session

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore()
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	s.Create("g1", 100, 100)

	sess := s.Get(100)
	if sess == nil {
		t.Fatalf("Get: expected session")
	}
	if sess.GameID != "g1" || sess.ChatID != 100 || sess.PlayerID != 100 {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if sess.GameStatus != StatusActive {
		t.Fatalf("new session status = %q, want ACTIVE", sess.GameStatus)
	}

	byGame := s.GetByGameID("g1")
	if byGame == nil || byGame.ChatID != 100 {
		t.Fatalf("GetByGameID mismatch: %+v", byGame)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	s.Create("g1", 100, 100)

	cp := s.Get(100)
	cp.GameID = "mutated"

	if s.Get(100).GameID != "g1" {
		t.Fatalf("store session mutated through returned copy")
	}
}

func TestRemoveClearsBothIndices(t *testing.T) {
	s := newTestStore(t)
	s.Create("g1", 100, 100)
	s.Remove(100)

	if s.Get(100) != nil {
		t.Fatalf("chat index not cleared")
	}
	if s.GetByGameID("g1") != nil {
		t.Fatalf("game index not cleared")
	}
	if s.Count() != 0 {
		t.Fatalf("Count = %d, want 0", s.Count())
	}
}

func TestCreateOverwriteDropsOldGameIndex(t *testing.T) {
	s := newTestStore(t)
	s.Create("g1", 100, 100)
	s.Create("g2", 100, 100)

	if s.GetByGameID("g1") != nil {
		t.Fatalf("stale game index entry for g1")
	}
	if got := s.GetByGameID("g2"); got == nil || got.ChatID != 100 {
		t.Fatalf("g2 index missing: %+v", got)
	}
	if s.Count() != 1 {
		t.Fatalf("Count = %d, want 1", s.Count())
	}
}

func TestHasActiveGame(t *testing.T) {
	s := newTestStore(t)
	if s.HasActiveGame(100) {
		t.Fatalf("empty store reports active game")
	}

	s.Create("g1", 100, 100)
	if !s.HasActiveGame(100) {
		t.Fatalf("fresh session not active")
	}

	s.Update(100, ColorWhite, StatusCheck)
	if !s.HasActiveGame(100) {
		t.Fatalf("CHECK should still count as active")
	}

	s.Update(100, ColorWhite, StatusCheckmate)
	if s.HasActiveGame(100) {
		t.Fatalf("CHECKMATE should not count as active")
	}
}

func TestExpireOlderThan(t *testing.T) {
	s := newTestStore(t)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.Create("old", 1, 1)
	clock = clock.Add(2 * time.Hour)
	s.Create("fresh", 2, 2)

	removed := s.ExpireOlderThan(time.Hour)
	if removed != 1 {
		t.Fatalf("ExpireOlderThan = %d, want 1", removed)
	}
	if s.Get(1) != nil || s.GetByGameID("old") != nil {
		t.Fatalf("expired session still present")
	}
	if s.Get(2) == nil {
		t.Fatalf("fresh session removed")
	}
}

func TestGetRefreshesActivity(t *testing.T) {
	s := newTestStore(t)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.Create("g1", 1, 1)
	clock = clock.Add(50 * time.Minute)
	s.Get(1)
	clock = clock.Add(50 * time.Minute)

	if n := s.ExpireOlderThan(time.Hour); n != 0 {
		t.Fatalf("recently read session expired (removed %d)", n)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chat := int64(i)
			s.Create(fmt.Sprintf("g%d", i), chat, chat)
			s.Get(chat)
			s.Update(chat, ColorBlack, StatusCheck)
			s.GetByGameID(fmt.Sprintf("g%d", i))
			if i%2 == 0 {
				s.Remove(chat)
			}
		}(i)
	}
	wg.Wait()

	if s.Count() != 25 {
		t.Fatalf("Count = %d, want 25", s.Count())
	}
}

func TestIsActiveNilSafe(t *testing.T) {
	var sess *Session
	if sess.IsActive() {
		t.Fatalf("nil session reported active")
	}
}
