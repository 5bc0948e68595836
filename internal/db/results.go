// internal/db/results.go
//
// Finished-game history and per-user stats.
//
//   - RecordResult inserts one results row and, for signed-in players, bumps
//     games_played / wins / streak / best_stars in the same transaction.
//   - RecentResults lists a user's latest games for the profile page.
//
// In-progress sessions are never written here.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ResultRow is one finished game.
type ResultRow struct {
	GameID         string    `json:"gameId"`
	Dimension      int       `json:"dimension"`
	Won            bool      `json:"won"`
	Stars          int       `json:"stars"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	Moves          int       `json:"moves"`
	FinishedAt     time.Time `json:"finishedAt"`
}

// Owner identifies who played a game: a user ID or an anonymous cookie ID.
type Owner struct {
	ID     string
	IsUser bool
}

// Stats is the aggregate shown on /stats/me.
type Stats struct {
	GamesPlayed int `json:"gamesPlayed"`
	Wins        int `json:"wins"`
	Streak      int `json:"streak"`
	BestStars   int `json:"bestStars"`
}

// RecordResult stores a finished game for owner.
func RecordResult(ctx context.Context, db *sql.DB, owner Owner, r ResultRow) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var userID, anonID any
	if owner.IsUser {
		userID = owner.ID
	} else {
		anonID = owner.ID
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO results
            (game_id, user_id, anonymous_id, dimension, won, stars, elapsed_seconds, moves, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.GameID, userID, anonID, r.Dimension, r.Won, r.Stars, r.ElapsedSeconds, r.Moves,
		r.FinishedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	if owner.IsUser {
		if err := bumpStats(ctx, tx, owner.ID, r.Won, r.Stars); err != nil {
			return fmt.Errorf("bump stats: %w", err)
		}
	}
	return tx.Commit()
}

// bumpStats increments games played; updates wins, streak and best stars (within tx).
func bumpStats(ctx context.Context, tx *sql.Tx, userID string, won bool, stars int) error {
	var st Stats
	row := tx.QueryRowContext(ctx, `SELECT games_played, wins, streak, best_stars FROM users WHERE id=?`, userID)
	if err := row.Scan(&st.GamesPlayed, &st.Wins, &st.Streak, &st.BestStars); err != nil {
		return err
	}
	st.GamesPlayed++
	if won {
		st.Wins++
		st.Streak++
		if stars > st.BestStars {
			st.BestStars = stars
		}
	} else {
		st.Streak = 0
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET games_played=?, wins=?, streak=?, best_stars=? WHERE id=?`,
		st.GamesPlayed, st.Wins, st.Streak, st.BestStars, userID)
	return err
}

// UserStats returns the aggregate counters for a user.
func UserStats(ctx context.Context, db *sql.DB, userID string) (Stats, error) {
	var st Stats
	err := db.QueryRowContext(ctx,
		`SELECT games_played, wins, streak, best_stars FROM users WHERE id=?`, userID,
	).Scan(&st.GamesPlayed, &st.Wins, &st.Streak, &st.BestStars)
	return st, err
}

// RecentResults returns up to limit of a user's games, newest first.
// Default limit is 50 if not specified.
func RecentResults(ctx context.Context, db *sql.DB, userID string, limit int) ([]ResultRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
        SELECT game_id, dimension, won, stars, elapsed_seconds, moves, finished_at
        FROM results
        WHERE user_id=?
        ORDER BY finished_at DESC, id DESC
        LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ResultRow, 0, limit)
	for rows.Next() {
		var r ResultRow
		var finished string
		if err := rows.Scan(&r.GameID, &r.Dimension, &r.Won, &r.Stars, &r.ElapsedSeconds, &r.Moves, &finished); err != nil {
			return nil, err
		}
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClaimAnonymous transfers an anonymous player's history to a user account.
func ClaimAnonymous(ctx context.Context, db *sql.DB, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	_, err := db.ExecContext(ctx,
		`UPDATE results SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID)
	return err
}
