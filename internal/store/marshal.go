package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/toplist/internal/rank"
)

// marshalJSON encodes v without HTML escaping so labels like "Ticket & Ride"
// are stored as written.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// marshalCandidates stores a nil slice as [] so the column is never NULL.
func marshalCandidates(cs []rank.Candidate) (string, error) {
	if cs == nil {
		cs = []rank.Candidate{}
	}
	data, err := marshalJSON(cs)
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}
	return data, nil
}

func unmarshalCandidates(data string) ([]rank.Candidate, error) {
	var cs []rank.Candidate
	if err := json.Unmarshal([]byte(data), &cs); err != nil {
		return nil, fmt.Errorf("unmarshal candidates: %w", err)
	}
	return cs, nil
}

func marshalPending(p *rank.Pending) (sql.NullString, error) {
	if p == nil {
		return sql.NullString{}, nil
	}
	data, err := marshalJSON(p)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal pending: %w", err)
	}
	return sql.NullString{String: data, Valid: true}, nil
}

func unmarshalPending(col sql.NullString) (*rank.Pending, error) {
	if !col.Valid {
		return nil, nil
	}
	var p rank.Pending
	if err := json.Unmarshal([]byte(col.String), &p); err != nil {
		return nil, fmt.Errorf("unmarshal pending: %w", err)
	}
	return &p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*rank.Session, error) {
	var (
		s                    rank.Session
		status               string
		queue, ranked        string
		pending              sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&s.UserID, &s.ID, &status, &s.Version,
		&queue, &ranked, &pending,
		&s.Comparisons, &s.Total,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	s.Status = rank.Status(status)

	var err error
	if s.Queue, err = unmarshalCandidates(queue); err != nil {
		return nil, err
	}
	if s.Ranked, err = unmarshalCandidates(ranked); err != nil {
		return nil, err
	}
	if s.Pending, err = unmarshalPending(pending); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
