package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/toplist/internal/catalog"
	"github.com/roach88/toplist/internal/gateway"
	"github.com/roach88/toplist/internal/logging"
	"github.com/roach88/toplist/internal/rank"
	"github.com/roach88/toplist/internal/session"
)

// NewStartCommand creates the start command.
func NewStartCommand(rootOpts *RootOptions) *cobra.Command {
	var catalogFile string

	cmd := &cobra.Command{
		Use:   "start <user>",
		Short: "Start a new ranking session",
		Long: `Start ranking the user's games, most popular first.

Candidates come from the imported catalog, or from --catalog without
importing it. Any previous session of the user is discarded.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(rootOpts, cmd, args[0], catalogFile)
		},
	}

	cmd.Flags().StringVar(&catalogFile, "catalog", "", "read candidates from a YAML or CUE catalog file")

	return cmd
}

func runStart(opts *RootOptions, cmd *cobra.Command, userID, catalogFile string) error {
	formatter := newFormatter(opts, cmd)

	var src session.Source
	if catalogFile != "" {
		c, err := catalog.LoadFile(catalogFile)
		if err != nil {
			return formatter.Fail("load catalog", err)
		}
		formatter.VerboseLog("Loaded %d game(s) from %s", len(c.Games), catalogFile)
		src = catalog.NewStaticSource(c)
	}

	return withManager(opts, cmd, formatter, src, func(m *session.Manager) (session.Result, error) {
		return m.StartRanking(cmd.Context(), userID)
	})
}

// NewAnswerCommand creates the answer command.
func NewAnswerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "answer <user> <fingerprint> <left|right|abstain>",
		Short: "Answer the outstanding question",
		Long: `Answer the question identified by fingerprint.

An answer to a question that is no longer outstanding is ignored.
abstain skips nothing: the same question is asked again.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnswer(rootOpts, cmd, args[0], args[1], args[2])
		},
	}

	return cmd
}

func runAnswer(opts *RootOptions, cmd *cobra.Command, userID, fingerprint, choiceArg string) error {
	formatter := newFormatter(opts, cmd)

	choice, err := rank.ParseChoice(choiceArg)
	if err != nil {
		return formatter.Fail("parse choice", err)
	}

	return withManager(opts, cmd, formatter, nil, func(m *session.Manager) (session.Result, error) {
		return m.HandleAnswer(cmd.Context(), userID, fingerprint, choice)
	})
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "resume <user>",
		Short:         "Ask the outstanding question again",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return withManager(rootOpts, cmd, formatter, nil, func(m *session.Manager) (session.Result, error) {
				return m.Resume(cmd.Context(), args[0])
			})
		},
	}

	return cmd
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cancel <user>",
		Short:         "Cancel the user's ranking session",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return withManager(rootOpts, cmd, formatter, nil, func(m *session.Manager) (session.Result, error) {
				return m.Cancel(cmd.Context(), args[0])
			})
		},
	}

	return cmd
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status <user>",
		Short:         "Show progress of the user's session",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd, args[0])
		},
	}

	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command, userID string) error {
	formatter := newFormatter(opts, cmd)

	rt, err := openCommandRuntime(opts, cmd, formatter, nil)
	if err != nil {
		return formatter.Fail("open store", err)
	}
	defer rt.Close()

	p, err := rt.manager.Progress(cmd.Context(), userID)
	if err != nil {
		return formatter.Fail("status", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(p)
	}
	fmt.Fprintf(formatter.Writer, "Session %s for %s: %s\n", p.SessionID, p.UserID, p.Status)
	fmt.Fprintf(formatter.Writer, "  ranked %d of %d, %d remaining, %d comparison(s), version %d\n",
		p.Ranked, p.Total, p.Remaining, p.Comparisons, p.Version)
	return nil
}

// NewTopCommand creates the top command.
func NewTopCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "top <user>",
		Short:         "Show the user's last completed top list",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTop(rootOpts, cmd, args[0])
		},
	}

	return cmd
}

func runTop(opts *RootOptions, cmd *cobra.Command, userID string) error {
	formatter := newFormatter(opts, cmd)

	rt, err := openCommandRuntime(opts, cmd, formatter, nil)
	if err != nil {
		return formatter.Fail("open store", err)
	}
	defer rt.Close()

	tl, ok, err := rt.sessions.TopList(cmd.Context(), userID)
	if err != nil {
		return formatter.Fail("load top list", rank.WrapError(rank.KindStorage, userID, "load top list", err))
	}
	if !ok {
		return formatter.Fail("top", rank.WrapError(rank.KindNoActiveSession, userID, "no completed top list", nil))
	}
	if formatter.Format == "json" {
		return formatter.Success(tl)
	}
	fmt.Fprintf(formatter.Writer, "Top list for %s (completed %s):\n", tl.UserID, tl.CompletedAt.Format("2006-01-02 15:04"))
	for _, p := range tl.Placements {
		fmt.Fprintf(formatter.Writer, "  %2d. %s\n", p.Position, p.Candidate)
	}
	return nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// openCommandRuntime wires a runtime for one short-lived command. The
// console gateway prints prompts in text mode only; JSON output carries
// the comparison in the result instead.
func openCommandRuntime(opts *RootOptions, cmd *cobra.Command, formatter *OutputFormatter, src session.Source) (*runtime, error) {
	promptOut := formatter.Writer
	if formatter.Format == "json" {
		promptOut = io.Discard
	}

	logger, sync := commandLogger(opts, cmd)
	rt, err := openRuntime(cmd.Context(), opts, runtimeOptions{
		gateway: gateway.NewConsole(promptOut),
		logger:  logger,
		source:  src,
	})
	if err != nil {
		sync()
		return nil, err
	}
	rt.closers = append([]func() error{func() error { sync(); return nil }}, rt.closers...)
	return rt, nil
}

// commandLogger logs at debug to stderr with --verbose and discards
// otherwise.
func commandLogger(opts *RootOptions, cmd *cobra.Command) (*slog.Logger, func()) {
	if !opts.Verbose {
		return logging.Discard(), func() {}
	}
	lg, err := logging.New(logging.Options{Level: "debug", Console: cmd.ErrOrStderr()})
	if err != nil {
		return logging.Discard(), func() {}
	}
	return lg.Logger, func() { _ = lg.Sync() }
}

// withManager runs op against a fresh runtime and renders its result.
func withManager(opts *RootOptions, cmd *cobra.Command, formatter *OutputFormatter, src session.Source, op func(*session.Manager) (session.Result, error)) error {
	rt, err := openCommandRuntime(opts, cmd, formatter, src)
	if err != nil {
		return formatter.Fail("open store", err)
	}
	defer rt.Close()

	res, err := op(rt.manager)
	if err != nil {
		return formatter.Fail(cmd.Name(), err)
	}
	if formatter.Format == "json" {
		return formatter.Success(res)
	}
	renderResult(formatter.Writer, res)
	return nil
}

// renderResult prints res for humans. A presented comparison has already
// been printed by the console gateway.
func renderResult(w io.Writer, res session.Result) {
	switch res.Action {
	case session.ActionPresent:
		if res.Comparison != nil {
			fmt.Fprintf(w, "answer with: toplist answer %s %s left|right|abstain\n", res.UserID, res.Comparison.Fingerprint)
		}
		if p := res.Progress; p != nil {
			fmt.Fprintf(w, "progress: %d of %d ranked\n", p.Ranked, p.Total)
		}
	case session.ActionFinished:
		fmt.Fprintf(w, "Top list for %s:\n", res.UserID)
		for i, c := range res.Ordering {
			fmt.Fprintf(w, "  %2d. %s\n", i+1, c)
		}
	case session.ActionNoOp:
		fmt.Fprintf(w, "Answer ignored (%s): that question is no longer outstanding.\n", res.Reason)
		fmt.Fprintf(w, "Run `toplist resume %s` to see the current question.\n", res.UserID)
	case session.ActionCancelled:
		fmt.Fprintf(w, "Session %s cancelled.\n", res.SessionID)
	case session.ActionNothingToRank:
		fmt.Fprintf(w, "Nothing to rank for %s: no games in the library.\n", res.UserID)
	}
}
