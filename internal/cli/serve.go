package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/toplist/internal/gateway"
	"github.com/roach88/toplist/internal/httpapi"
	"github.com/roach88/toplist/internal/logging"
	"github.com/roach88/toplist/internal/metrics"
)

// shutdownTimeout bounds how long in-flight requests may run after a
// signal.
const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ranking HTTP API",
		Long: `Serve the ranking API, catalog reads, /metrics and /healthz.

Prompts are held in an in-process mailbox that clients poll; answers
posted to /api/ranking/answer are routed through it. Stops on SIGINT or
SIGTERM after draining in-flight requests.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides TOPLIST_HTTP_ADDR)")

	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command, addr string) error {
	formatter := newFormatter(opts, cmd)
	cfg := opts.config
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	lg, err := logging.New(logging.Options{
		Level:      level,
		File:       cfg.LogFile,
		Production: cfg.Production(),
		Console:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return formatter.Fail("build logger", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mailbox := gateway.NewMailbox()
	prom := metrics.New()
	rt, err := openRuntime(ctx, opts, runtimeOptions{
		gateway:  mailbox,
		logger:   lg.Logger,
		metrics:  prom,
		cacheTTL: cfg.CandidateCacheTTL,
	})
	if err != nil {
		return formatter.Fail("open store", err)
	}
	defer rt.Close()
	mailbox.OnAnswer(rt.manager)

	srv := httpapi.New(httpapi.Deps{
		Ranker:   rt.manager,
		Mailbox:  mailbox,
		TopLists: rt.sessions,
		Catalog:  rt.catalog,
		Metrics:  prom.Handler(),
		Health:   rt.Health,
		Logger:   lg.Logger,
	})

	lg.Info("starting server",
		"env", cfg.Env,
		"addr", addr,
		"store", cfg.Store,
		"db", cfg.DBPath,
		"events", cfg.NATSURL != "")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return formatter.Fail("serve", err)
	}
	return nil
}
