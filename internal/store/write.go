package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/toplist/internal/rank"
	"github.com/roach88/toplist/internal/session"
)

// Save persists a session with compare-and-swap on (session_id, version).
//
// Version 0 upserts over any existing row for the user. Any other version
// updates only a row holding the same session at Version-1; otherwise
// session.ErrVersionConflict is returned and nothing is written. A completed
// session replaces the user's top list in the same transaction.
func (s *Store) Save(ctx context.Context, sess *rank.Session) error {
	queue, err := marshalCandidates(sess.Queue)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	ranked, err := marshalCandidates(sess.Ranked)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	pending, err := marshalPending(sess.Pending)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save session: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if sess.Version == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sessions
			(user_id, session_id, status, version, queue, ranked, pending, comparisons, total, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				session_id  = excluded.session_id,
				status      = excluded.status,
				version     = excluded.version,
				queue       = excluded.queue,
				ranked      = excluded.ranked,
				pending     = excluded.pending,
				comparisons = excluded.comparisons,
				total       = excluded.total,
				created_at  = excluded.created_at,
				updated_at  = excluded.updated_at
		`,
			sess.UserID, sess.ID, string(sess.Status), sess.Version,
			queue, ranked, pending,
			sess.Comparisons, sess.Total,
			formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("save session: insert: %w", err)
		}
	} else {
		result, err := tx.ExecContext(ctx, `
			UPDATE sessions SET
				status = ?, version = ?, queue = ?, ranked = ?, pending = ?,
				comparisons = ?, total = ?, updated_at = ?
			WHERE user_id = ? AND session_id = ? AND version = ?
		`,
			string(sess.Status), sess.Version, queue, ranked, pending,
			sess.Comparisons, sess.Total, formatTime(sess.UpdatedAt),
			sess.UserID, sess.ID, sess.Version-1,
		)
		if err != nil {
			return fmt.Errorf("save session: update: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("save session: rows affected: %w", err)
		}
		if n == 0 {
			return session.ErrVersionConflict
		}
	}

	if sess.Status == rank.StatusCompleted {
		if err := writeTopList(ctx, tx, rank.TopListOf(sess)); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save session: commit: %w", err)
	}
	return nil
}

func writeTopList(ctx context.Context, tx *sql.Tx, tl rank.TopList) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM toplists WHERE user_id = ?`, tl.UserID); err != nil {
		return fmt.Errorf("clear top list: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO toplists (user_id, position, session_id, game_id, label, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare top list insert: %w", err)
	}
	defer stmt.Close()

	completedAt := formatTime(tl.CompletedAt)
	for _, p := range tl.Placements {
		if _, err := stmt.ExecContext(ctx,
			tl.UserID, p.Position, tl.SessionID, p.Candidate.ID, p.Candidate.Label, completedAt,
		); err != nil {
			return fmt.Errorf("insert top list position %d: %w", p.Position, err)
		}
	}
	return nil
}

// Delete removes the user's session row. The top list is kept.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Audit appends an audit record.
func (s *Store) Audit(ctx context.Context, rec rank.AuditRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit (session_id, user_id, event, version, ranked_count, total, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.SessionID, rec.UserID, string(rec.Event), rec.Version, rec.RankedCount, rec.Total, formatTime(rec.At),
	)
	if err != nil {
		return fmt.Errorf("write audit: %w", err)
	}
	return nil
}

// Game is one catalog entry.
type Game struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Year       int    `json:"year,omitempty" yaml:"year,omitempty"`
	UsersRated int    `json:"users_rated" yaml:"users_rated"`
}

// Candidate converts g to a ranking candidate labelled "name (year)" when
// the year is known.
func (g Game) Candidate() rank.Candidate {
	return rank.Candidate{ID: g.ID, Label: gameLabel(g.Name, g.Year)}
}

func gameLabel(name string, year int) string {
	if year > 0 {
		return fmt.Sprintf("%s (%d)", name, year)
	}
	return name
}

// UpsertGames inserts or updates catalog games in one transaction.
func (s *Store) UpsertGames(ctx context.Context, games []Game) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert games: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO games (id, name, year, users_rated) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			year = excluded.year,
			users_rated = excluded.users_rated
	`)
	if err != nil {
		return fmt.Errorf("upsert games: prepare: %w", err)
	}
	defer stmt.Close()

	for _, g := range games {
		if _, err := stmt.ExecContext(ctx, g.ID, g.Name, g.Year, g.UsersRated); err != nil {
			return fmt.Errorf("upsert game %q: %w", g.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert games: commit: %w", err)
	}
	return nil
}

// SetUserGames replaces the set of games a user owns. Every game must
// already exist in the catalog.
func (s *Store) SetUserGames(ctx context.Context, userID string, gameIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set user games: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_games WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("set user games: clear: %w", err)
	}
	for _, id := range gameIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_games (user_id, game_id) VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, userID, id); err != nil {
			return fmt.Errorf("set user games: insert %q: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set user games: commit: %w", err)
	}
	return nil
}
