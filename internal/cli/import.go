package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/toplist/internal/catalog"
	"github.com/roach88/toplist/internal/store"
)

// ImportResult summarizes an import.
type ImportResult struct {
	File  string `json:"file"`
	Games int    `json:"games"`
	Users int    `json:"users"`
	Total int    `json:"total_games"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <catalog-file>",
		Short: "Import games and user libraries into the database",
		Long: `Import a YAML (.yaml, .yml) or CUE (.cue) catalog.

Games are upserted by id. Every user listed in the file has their
library replaced; users not listed are left alone.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, cmd, args[0])
		},
	}

	return cmd
}

func runImport(opts *RootOptions, cmd *cobra.Command, path string) error {
	formatter := newFormatter(opts, cmd)

	c, err := catalog.LoadFile(path)
	if err != nil {
		return formatter.Fail("load catalog", err)
	}
	formatter.VerboseLog("Parsed %d game(s) and %d user(s) from %s", len(c.Games), len(c.Users), path)

	db, err := store.Open(opts.config.DBPath)
	if err != nil {
		return formatter.Fail("open database", err)
	}
	defer db.Close()

	if err := catalog.Import(cmd.Context(), db, c); err != nil {
		return formatter.Fail("import catalog", err)
	}
	total, err := db.CountGames(cmd.Context())
	if err != nil {
		return formatter.Fail("count games", err)
	}

	res := ImportResult{File: path, Games: len(c.Games), Users: len(c.Users), Total: total}
	if formatter.Format == "json" {
		return formatter.Success(res)
	}
	return formatter.Success(fmt.Sprintf("✓ Imported %d game(s) and %d user(s) from %s (%d games in catalog)",
		res.Games, res.Users, res.File, res.Total))
}
