package daily

import (
	"context"
	"database/sql"
)

// Result is one player's finished daily board.
type Result struct {
	UserID         string `json:"userId"`
	Date           string `json:"date"`
	Won            bool   `json:"won"`
	Stars          int    `json:"stars"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
	Moves          int    `json:"moves"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether userID has a recorded result for date.
func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=?",
		userID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records the first result per user and date; later ones are ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, won, stars, elapsed_seconds, moves)
VALUES(?,?,?,?,?,?)`, r.UserID, r.Date, r.Won, r.Stars, r.ElapsedSeconds, r.Moves,
	)
	return err
}

type LBRow struct {
	UserID         string `json:"userId"`
	Stars          int    `json:"stars"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
	Moves          int    `json:"moves"`
}

// Leaderboard ranks won boards for date: stars desc, then time, then moves.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, stars, elapsed_seconds, moves
FROM daily_results
WHERE date=? AND won=1
ORDER BY stars DESC, elapsed_seconds ASC, moves ASC, created_at ASC
LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Stars, &r.ElapsedSeconds, &r.Moves); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
