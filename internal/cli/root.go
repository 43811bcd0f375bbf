package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/toplist/internal/config"
	"github.com/roach88/toplist/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DBPath  string
	Store   string
	EnvFile string

	// config is resolved in PersistentPreRunE: environment first, then the
	// flags above when set.
	config *config.Config

	// ids and now override session IDs and timestamps. Nil means the
	// production defaults.
	ids engine.IDGenerator
	now func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the toplist CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toplist",
		Short: "toplist - rank your board games one question at a time",
		Long: `Build a personal top list of board games by answering
"which do you prefer?" questions.

Each command is a separate run: the question printed by one run is
answered by the next, and the session survives restarts in the store.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return resolveConfig(cmd, opts)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite database path (overrides TOPLIST_DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "session store: sqlite|redis|memory (overrides TOPLIST_STORE)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "optional dotenv file")

	cmd.AddCommand(NewStartCommand(opts))
	cmd.AddCommand(NewAnswerCommand(opts))
	cmd.AddCommand(NewResumeCommand(opts))
	cmd.AddCommand(NewCancelCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewTopCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewGamesCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// resolveConfig loads the environment configuration and applies the
// global flag overrides.
func resolveConfig(cmd *cobra.Command, opts *RootOptions) error {
	formatter := newFormatter(opts, cmd)
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return formatter.Fail("load config", err)
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = opts.DBPath
	}
	if flags.Changed("store") {
		cfg.Store = opts.Store
	}
	if err := cfg.Validate(); err != nil {
		return formatter.Fail("load config", err)
	}
	opts.config = cfg
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
