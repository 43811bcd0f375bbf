package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/toplist/internal/rank"
	"github.com/roach88/toplist/internal/store"
)

// GamesResult lists catalog games.
type GamesResult struct {
	Games []store.Game `json:"games"`
}

// NewGamesCommand creates the games command and its search and list
// subcommands.
func NewGamesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Browse the imported game catalog",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(newGamesSearchCommand(rootOpts))
	cmd.AddCommand(newGamesListCommand(rootOpts))

	return cmd
}

func newGamesSearchCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		exact bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "search <name>",
		Short: "Find catalog games by name",
		Long: `Find catalog games whose name contains <name>, ignoring case.
With --exact the whole name must match. Most rated games come first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			name := strings.TrimSpace(args[0])
			if name == "" {
				return formatter.Fail("search games", rank.NewError(rank.KindInvalidInput, "empty game name"))
			}
			if limit < 0 {
				return formatter.Fail("search games", rank.NewError(rank.KindInvalidInput, "limit must not be negative"))
			}
			return runGames(rootOpts, cmd, formatter, func(db *store.Store) ([]store.Game, error) {
				return db.SearchGames(cmd.Context(), store.GameQuery{Name: name, Exact: exact, Limit: limit})
			})
		},
	}

	cmd.Flags().BoolVar(&exact, "exact", false, "match the whole name")
	cmd.Flags().IntVar(&limit, "limit", store.DefaultSearchLimit, "maximum number of games")

	return cmd
}

func newGamesListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list <user>",
		Short:         "List the games a user owns, by name",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return runGames(rootOpts, cmd, formatter, func(db *store.Store) ([]store.Game, error) {
				return db.UserGames(cmd.Context(), args[0])
			})
		},
	}

	return cmd
}

func runGames(opts *RootOptions, cmd *cobra.Command, formatter *OutputFormatter, read func(*store.Store) ([]store.Game, error)) error {
	db, err := store.Open(opts.config.DBPath)
	if err != nil {
		return formatter.Fail("open database", err)
	}
	defer db.Close()

	games, err := read(db)
	if err != nil {
		return formatter.Fail("read catalog", rank.WrapError(rank.KindStorage, "", "read catalog", err))
	}
	if formatter.Format == "json" {
		return formatter.Success(GamesResult{Games: games})
	}
	if len(games) == 0 {
		fmt.Fprintln(formatter.Writer, "No games found.")
		return nil
	}
	for _, g := range games {
		fmt.Fprintf(formatter.Writer, "  %-12s %s  (%d ratings)\n", g.ID, g.Candidate().Label, g.UsersRated)
	}
	return nil
}
