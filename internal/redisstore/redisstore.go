// Package redisstore keeps ranking sessions in Redis.
//
// Keys (prefix defaults to "toplist"):
//
//	<prefix>:session:<user>  JSON rank.Session
//	<prefix>:toplist:<user>  JSON rank.TopList
//	<prefix>:audit:<user>    list of JSON rank.AuditRecord, oldest first
//
// Save uses WATCH on the session key so the version check and the write
// are one optimistic transaction.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/toplist/internal/rank"
	"github.com/roach88/toplist/internal/session"
)

// DefaultPrefix namespaces every key.
const DefaultPrefix = "toplist"

// Store implements session.Store, session.AuditLog, session.TopListReader
// and session.AuditReader over a Redis client.
type Store struct {
	client *redis.Client
	prefix string
}

// New wraps client. An empty prefix uses DefaultPrefix.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Open connects to url ("redis://host:port/db"). A value that does not
// parse as a URL is used as a bare address.
func Open(ctx context.Context, url string) (*Store, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return New(client, ""), nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping reports whether Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) sessionKey(userID string) string { return s.prefix + ":session:" + userID }
func (s *Store) toplistKey(userID string) string { return s.prefix + ":toplist:" + userID }
func (s *Store) auditKey(userID string) string   { return s.prefix + ":audit:" + userID }

// Load implements session.Store.
func (s *Store) Load(ctx context.Context, userID string) (*rank.Session, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess rank.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Save implements session.Store.
func (s *Store) Save(ctx context.Context, sess *rank.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	var toplist []byte
	if sess.Status == rank.StatusCompleted {
		if toplist, err = json.Marshal(rank.TopListOf(sess)); err != nil {
			return fmt.Errorf("encode top list: %w", err)
		}
	}

	key := s.sessionKey(sess.UserID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		if sess.Version != 0 {
			if err := checkPredecessor(ctx, tx, key, sess); err != nil {
				return err
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if toplist != nil {
				pipe.Set(ctx, s.toplistKey(sess.UserID), toplist, 0)
			}
			return nil
		})
		return err
	}, key)

	switch {
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, session.ErrVersionConflict):
		return session.ErrVersionConflict
	case err != nil:
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func checkPredecessor(ctx context.Context, tx *redis.Tx, key string, sess *rank.Session) error {
	raw, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.ErrVersionConflict
	}
	if err != nil {
		return err
	}
	var cur struct {
		ID      string `json:"id"`
		Version int64  `json:"version"`
	}
	if err := json.Unmarshal(raw, &cur); err != nil {
		return fmt.Errorf("decode stored session: %w", err)
	}
	if cur.ID != sess.ID || cur.Version != sess.Version-1 {
		return session.ErrVersionConflict
	}
	return nil
}

// Delete implements session.Store.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Audit implements session.AuditLog.
func (s *Store) Audit(ctx context.Context, rec rank.AuditRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode audit: %w", err)
	}
	if err := s.client.RPush(ctx, s.auditKey(rec.UserID), data).Err(); err != nil {
		return fmt.Errorf("write audit: %w", err)
	}
	return nil
}

// AuditRecords implements session.AuditReader.
func (s *Store) AuditRecords(ctx context.Context, userID string) ([]rank.AuditRecord, error) {
	vals, err := s.client.LRange(ctx, s.auditKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read audit: %w", err)
	}
	recs := make([]rank.AuditRecord, 0, len(vals))
	for _, v := range vals {
		var r rank.AuditRecord
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("decode audit: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// TopList implements session.TopListReader.
func (s *Store) TopList(ctx context.Context, userID string) (rank.TopList, bool, error) {
	raw, err := s.client.Get(ctx, s.toplistKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return rank.TopList{}, false, nil
	}
	if err != nil {
		return rank.TopList{}, false, fmt.Errorf("read top list: %w", err)
	}
	var tl rank.TopList
	if err := json.Unmarshal(raw, &tl); err != nil {
		return rank.TopList{}, false, fmt.Errorf("decode top list: %w", err)
	}
	return tl, true, nil
}
