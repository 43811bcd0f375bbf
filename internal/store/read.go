package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/toplist/internal/rank"
)

// Load returns the user's session, or (nil, nil) if there is none.
func (s *Store) Load(ctx context.Context, userID string) (*rank.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, session_id, status, version, queue, ranked, pending,
		       comparisons, total, created_at, updated_at
		FROM sessions
		WHERE user_id = ?
	`, userID)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// TopList returns the user's last completed ranking, or false if none.
func (s *Store) TopList(ctx context.Context, userID string) (rank.TopList, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, session_id, game_id, label, completed_at
		FROM toplists
		WHERE user_id = ?
		ORDER BY position ASC
	`, userID)
	if err != nil {
		return rank.TopList{}, false, fmt.Errorf("query top list: %w", err)
	}
	defer rows.Close()

	tl := rank.TopList{UserID: userID}
	for rows.Next() {
		var (
			p           rank.Placement
			completedAt string
		)
		if err := rows.Scan(&p.Position, &tl.SessionID, &p.Candidate.ID, &p.Candidate.Label, &completedAt); err != nil {
			return rank.TopList{}, false, fmt.Errorf("scan top list: %w", err)
		}
		if tl.CompletedAt, err = parseTime(completedAt); err != nil {
			return rank.TopList{}, false, err
		}
		tl.Placements = append(tl.Placements, p)
	}
	if err := rows.Err(); err != nil {
		return rank.TopList{}, false, fmt.Errorf("iterate top list: %w", err)
	}

	if len(tl.Placements) == 0 {
		return rank.TopList{}, false, nil
	}
	return tl, true, nil
}

// AuditRecords returns the user's audit trail, oldest first.
// Returns an empty slice (not nil) if there is none.
func (s *Store) AuditRecords(ctx context.Context, userID string) ([]rank.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, user_id, event, version, ranked_count, total, at
		FROM audit
		WHERE user_id = ?
		ORDER BY id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	recs := []rank.AuditRecord{}
	for rows.Next() {
		var (
			r     rank.AuditRecord
			event string
			at    string
		)
		if err := rows.Scan(&r.SessionID, &r.UserID, &event, &r.Version, &r.RankedCount, &r.Total, &at); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		r.Event = rank.AuditEvent(event)
		if r.At, err = parseTime(at); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit: %w", err)
	}
	return recs, nil
}

// UserCandidates returns the games a user owns, most rated first, ties
// broken by ID.
func (s *Store) UserCandidates(ctx context.Context, userID string) ([]rank.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.year
		FROM user_games ug
		JOIN games g ON g.id = ug.game_id
		WHERE ug.user_id = ?
		ORDER BY g.users_rated DESC, g.id COLLATE BINARY ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user candidates: %w", err)
	}
	defer rows.Close()

	cands := []rank.Candidate{}
	for rows.Next() {
		var (
			id, name string
			year     int
		)
		if err := rows.Scan(&id, &name, &year); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		cands = append(cands, rank.Candidate{ID: id, Label: gameLabel(name, year)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return cands, nil
}

// CountGames returns the number of catalog games.
func (s *Store) CountGames(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}

// DefaultSearchLimit caps SearchGames when GameQuery.Limit is unset.
const DefaultSearchLimit = 5

// GameQuery selects catalog games by name.
type GameQuery struct {
	// Name is matched case-insensitively, as a substring unless Exact.
	Name  string
	Exact bool

	// Limit <= 0 means DefaultSearchLimit.
	Limit int
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchGames returns catalog games whose name matches q, most rated first.
func (s *Store) SearchGames(ctx context.Context, q GameQuery) ([]Game, error) {
	name := strings.TrimSpace(q.Name)
	if name == "" {
		return nil, errors.New("search games: empty name")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	where := `name LIKE '%' || ? || '%' ESCAPE '\'`
	arg := likeEscaper.Replace(name)
	if q.Exact {
		where = `lower(name) = lower(?)`
		arg = name
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, year, users_rated
		FROM games
		WHERE `+where+`
		ORDER BY users_rated DESC, id COLLATE BINARY ASC
		LIMIT ?
	`, arg, limit)
	if err != nil {
		return nil, fmt.Errorf("search games: %w", err)
	}
	return scanGames(rows)
}

// UserGames returns the games a user owns in name order. A user with no
// games, known or not, gets an empty list.
func (s *Store) UserGames(ctx context.Context, userID string) ([]Game, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.year, g.users_rated
		FROM user_games ug
		JOIN games g ON g.id = ug.game_id
		WHERE ug.user_id = ?
		ORDER BY g.name COLLATE NOCASE ASC, g.id COLLATE BINARY ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user games: %w", err)
	}
	return scanGames(rows)
}

func scanGames(rows *sql.Rows) ([]Game, error) {
	defer rows.Close()

	games := []Game{}
	for rows.Next() {
		var g Game
		if err := rows.Scan(&g.ID, &g.Name, &g.Year, &g.UsersRated); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return games, nil
}
