package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/toplist/internal/rank"
)

func seedCatalog(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpsertGames(ctx, []Game{
		{ID: "azul", Name: "Azul", UsersRated: 900},
		{ID: "brass", Name: "Brass", Year: 2018, UsersRated: 500},
		{ID: "catan", Name: "Catan", UsersRated: 900},
		{ID: "dune", Name: "Dune", UsersRated: 100},
	}))
}

func TestUserCandidates_PopularityOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedCatalog(t, s)

	require.NoError(t, s.SetUserGames(ctx, "u1", []string{"dune", "catan", "brass", "azul"}))

	got, err := s.UserCandidates(ctx, "u1")
	require.NoError(t, err)
	// Ties on users_rated are broken by id.
	assert.Equal(t, []string{"azul", "catan", "brass", "dune"}, rank.IDs(got))
	assert.Equal(t, "Azul", got[0].Label)
	assert.Equal(t, "Brass (2018)", got[2].Label)
}

func TestUserCandidates_Empty(t *testing.T) {
	s := createTestStore(t)
	got, err := s.UserCandidates(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSetUserGames_Replaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedCatalog(t, s)

	require.NoError(t, s.SetUserGames(ctx, "u1", []string{"azul", "brass"}))
	require.NoError(t, s.SetUserGames(ctx, "u1", []string{"dune"}))

	got, err := s.UserCandidates(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"dune"}, rank.IDs(got))
}

func TestSetUserGames_UnknownGameFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedCatalog(t, s)

	err := s.SetUserGames(ctx, "u1", []string{"azul", "missing"})
	assert.Error(t, err)

	got, err := s.UserCandidates(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got, "transaction rolled back")
}

func TestUpsertGames_Updates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedCatalog(t, s)

	require.NoError(t, s.UpsertGames(ctx, []Game{{ID: "dune", Name: "Dune: Imperium", UsersRated: 5000}}))
	n, err := s.CountGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, s.SetUserGames(ctx, "u1", []string{"azul", "dune"}))
	got, err := NewCatalogSource(s).Fetch(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []rank.Candidate{{ID: "dune", Label: "Dune: Imperium"}, {ID: "azul", Label: "Azul"}}, got)
}

func TestGame_Candidate(t *testing.T) {
	assert.Equal(t, rank.Candidate{ID: "x", Label: "Xia (2009)"}, Game{ID: "x", Name: "Xia", Year: 2009}.Candidate())
	assert.Equal(t, rank.Candidate{ID: "y", Label: "Yokohama"}, Game{ID: "y", Name: "Yokohama"}.Candidate())
}

func TestSearchGames(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedCatalog(t, s)
	require.NoError(t, s.UpsertGames(ctx, []Game{
		{ID: "brass-b", Name: "Brass: Birmingham", Year: 2018, UsersRated: 700},
		{ID: "pct", Name: "100% Orange Juice", UsersRated: 10},
	}))

	tests := []struct {
		name  string
		query GameQuery
		want  []string
	}{
		{"substring, most rated first", GameQuery{Name: "brass"}, []string{"brass-b", "brass"}},
		{"case-insensitive", GameQuery{Name: "AZ"}, []string{"azul"}},
		{"exact", GameQuery{Name: "BRASS", Exact: true}, []string{"brass"}},
		{"limit", GameQuery{Name: "a", Limit: 2}, []string{"azul", "catan"}},
		{"wildcards are literal", GameQuery{Name: "%"}, []string{"pct"}},
		{"no match", GameQuery{Name: "zzz"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.SearchGames(ctx, tt.query)
			require.NoError(t, err)
			ids := make([]string, len(got))
			for i, g := range got {
				ids[i] = g.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSearchGames_DefaultLimit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	var games []Game
	for _, id := range []string{"g1", "g2", "g3", "g4", "g5", "g6", "g7"} {
		games = append(games, Game{ID: id, Name: "Game " + id})
	}
	require.NoError(t, s.UpsertGames(ctx, games))

	got, err := s.SearchGames(ctx, GameQuery{Name: "game"})
	require.NoError(t, err)
	assert.Len(t, got, DefaultSearchLimit)
}

func TestSearchGames_EmptyName(t *testing.T) {
	s := createTestStore(t)
	_, err := s.SearchGames(context.Background(), GameQuery{Name: "  "})
	assert.Error(t, err)
}

func TestUserGames_NameOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedCatalog(t, s)
	require.NoError(t, s.SetUserGames(ctx, "u1", []string{"dune", "brass", "azul"}))

	got, err := s.UserGames(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "azul", got[0].ID)
	assert.Equal(t, Game{ID: "brass", Name: "Brass", Year: 2018, UsersRated: 500}, got[1])
	assert.Equal(t, "dune", got[2].ID)

	none, err := s.UserGames(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
