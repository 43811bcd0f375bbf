// Package catalog loads game catalogs and serves ranking candidates.
//
// A catalog file lists games and which users own them:
//
//	games:
//	  - {id: azul, name: Azul, year: 2017, users_rated: 90000}
//	users:
//	  alice: [azul, brass]
//
// YAML (.yaml, .yml) and CUE (.cue) files share this shape. CUE files are
// unified with a schema before decoding.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/toplist/internal/rank"
	"github.com/roach88/toplist/internal/store"
)

// Catalog is a decoded catalog file.
type Catalog struct {
	Games []store.Game        `json:"games" yaml:"games"`
	Users map[string][]string `json:"users" yaml:"users"`
}

// Validate checks that game IDs are unique and non-blank, counts are not
// negative and every owned game exists.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Games))
	for i, g := range c.Games {
		if strings.TrimSpace(g.ID) == "" {
			return fmt.Errorf("games[%d]: blank id", i)
		}
		if seen[g.ID] {
			return fmt.Errorf("games[%d]: duplicate id %q", i, g.ID)
		}
		if g.UsersRated < 0 {
			return fmt.Errorf("games[%d]: negative users_rated", i)
		}
		seen[g.ID] = true
	}
	for _, user := range c.userIDs() {
		for _, id := range c.Users[user] {
			if !seen[id] {
				return fmt.Errorf("users.%s: unknown game %q", user, id)
			}
		}
	}
	return nil
}

// Candidates returns the games owned by userID in popularity order: most
// rated first, ties broken by ID.
func (c *Catalog) Candidates(userID string) []rank.Candidate {
	byID := make(map[string]store.Game, len(c.Games))
	for _, g := range c.Games {
		byID[g.ID] = g
	}

	var owned []store.Game
	for _, id := range c.Users[userID] {
		if g, ok := byID[id]; ok {
			owned = append(owned, g)
		}
	}
	slices.SortStableFunc(owned, func(a, b store.Game) int {
		if a.UsersRated != b.UsersRated {
			return b.UsersRated - a.UsersRated
		}
		return strings.Compare(a.ID, b.ID)
	})

	out := make([]rank.Candidate, 0, len(owned))
	for _, g := range owned {
		out = append(out, g.Candidate())
	}
	return out
}

// userIDs returns the user keys in sorted order.
func (c *Catalog) userIDs() []string {
	ids := make([]string, 0, len(c.Users))
	for id := range c.Users {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// LoadFile reads a catalog from path, choosing the decoder by extension.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c *Catalog
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		c, err = ParseYAML(data)
	case ".cue":
		c, err = ParseCUE(path, data)
	default:
		return nil, fmt.Errorf("catalog %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseYAML decodes and validates a YAML catalog. Unknown fields are
// rejected.
func ParseYAML(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Import writes c into s: every game is upserted and each listed user's
// library is replaced.
func Import(ctx context.Context, s *store.Store, c *Catalog) error {
	if err := s.UpsertGames(ctx, c.Games); err != nil {
		return err
	}
	for _, user := range c.userIDs() {
		if err := s.SetUserGames(ctx, user, c.Users[user]); err != nil {
			return err
		}
	}
	return nil
}
