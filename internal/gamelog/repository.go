package gamelog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Repository archives finished games to Postgres. The bot only observes
// terminal statuses through service responses, so rows are summaries, not
// authoritative game records.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Result is one archived game outcome.
type Result struct {
	GameID      string
	ChatID      int64
	PlayerID    int64
	PlayerColor string
	Opponent    string
	Status      string
	Method      string
	EndedAt     time.Time
}

// SaveResult upserts a finished-game summary keyed by (game_id, chat_id).
func (r *Repository) SaveResult(ctx context.Context, res Result) error {
	if r == nil || r.db == nil {
		return nil
	}
	if res.EndedAt.IsZero() {
		res.EndedAt = time.Now()
	}

	q := `INSERT INTO finished_games (
	    game_id, chat_id, player_id, player_color, opponent, status, method, ended_at
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8
	  ) ON CONFLICT (game_id, chat_id) DO UPDATE SET
	    player_id=EXCLUDED.player_id,
	    player_color=EXCLUDED.player_color,
	    opponent=EXCLUDED.opponent,
	    status=EXCLUDED.status,
	    method=EXCLUDED.method,
	    ended_at=EXCLUDED.ended_at`

	_, err := r.db.ExecContext(ctx, q,
		res.GameID, res.ChatID, res.PlayerID,
		strings.TrimSpace(res.PlayerColor), strings.TrimSpace(res.Opponent),
		strings.TrimSpace(res.Status), strings.TrimSpace(res.Method),
		res.EndedAt,
	)
	return err
}
