// Package app wires the catalog, resolver, converter and coordinator into one run.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"ytmp3/internal/catalog"
	"ytmp3/internal/config"
	"ytmp3/internal/console"
	"ytmp3/internal/consts"
	"ytmp3/internal/converter"
	"ytmp3/internal/coordinator"
	"ytmp3/internal/errs"
	httprouter "ytmp3/internal/infrastructure/delivery/http"
	"ytmp3/internal/observability"
	"ytmp3/internal/proxy"
	"ytmp3/internal/resolver"
	"ytmp3/internal/storage"
	"ytmp3/pkg/gen"
	httpserver "ytmp3/pkg/http/server"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitFailures   = 1
	ExitConfig     = 2
	ExitConnection = 3
	ExitRequest    = 4
)

// Deps holds the process streams and logger of a run.
type Deps struct {
	Log    *slog.Logger
	Stdin  io.Reader
	Stdout io.Writer
}

// ExitCode maps an error that ended the run to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errs.ErrConfiguration), errors.Is(err, errs.ErrWrongMode):
		return ExitConfig
	case errors.Is(err, errs.ErrConnection):
		return ExitConnection
	case errors.Is(err, errs.ErrRequest):
		return ExitRequest
	default:
		return ExitFailures
	}
}

// Run executes one session and returns the process exit status.
func Run(ctx context.Context, cfg *config.Config, deps Deps) int {
	runID := gen.RunID()
	log := deps.Log.With(slog.String("run_id", runID))
	presenter := console.NewPresenter(deps.Stdout, cfg.App.Quiet)
	metrics := observability.New()

	status := &runStatus{
		runID:   runID,
		queryID: gen.UUIDv5(cfg.Query.Mode, cfg.Query.Query),
		mode:    cfg.Query.Mode,
		phase:   phaseResolving,
		next:    presenter,
	}

	if cfg.Metrics.Addr != "" {
		srv := httpserver.New(httprouter.New(log, metrics.Handler(), status), httpserver.Options{Addr: cfg.Metrics.Addr})

		go func() {
			for err := range srv.Notify() {
				log.ErrorContext(ctx, "metrics listener failed", slog.Any("error", err))
			}
		}()

		defer func() {
			if err := srv.Shutdown(); err != nil {
				log.WarnContext(ctx, "metrics listener shutdown", slog.Any("error", err))
			}
		}()

		log.InfoContext(ctx, "metrics listener started", slog.String("addr", cfg.Metrics.Addr))
	}

	code, err := run(ctx, log, cfg, deps, presenter, status, metrics)
	status.setPhase(phaseDone, -1)

	if err != nil {
		log.ErrorContext(ctx, "run failed", slog.Any("error", err))
		presenter.Fatal(err)

		return ExitCode(err)
	}

	return code
}

func run(ctx context.Context,
	log *slog.Logger,
	cfg *config.Config,
	deps Deps,
	presenter *console.Presenter,
	status *runStatus,
	metrics *observability.Metrics,
) (int, error) {
	key, err := cfg.Dir.LoadAPIKey()
	if err != nil {
		return 0, err //nolint:wrapcheck
	}

	stg := storage.New(log, cfg.Dir.Out)

	err = stg.EnsureDir(ctx)
	if err != nil {
		return 0, err //nolint:wrapcheck
	}

	stg.CleanupPartials(ctx)

	proxies, err := proxy.New(log, cfg.Proxy, metrics)
	if err != nil {
		return 0, err //nolint:wrapcheck
	}

	if proxies.Count() > 0 {
		proxies.CheckAll(ctx)
	}

	status.setOutput(stg.Dir(), proxies)

	yt, err := catalog.NewYouTube(ctx, log, cfg, key, metrics)
	if err != nil {
		return 0, err //nolint:wrapcheck
	}

	res, err := resolver.New(log, yt, metrics).Resolve(ctx, cfg.Query.Mode, cfg.Query.Query, cfg.Query.MaxResults, cfg.Query.Skip)
	if err != nil {
		return 0, err //nolint:wrapcheck
	}

	for _, bad := range res.Malformed {
		presenter.Malformed(bad)
	}

	if len(res.Items) == 0 {
		presenter.Info(consts.MsgEmpty)

		return ExitOK, nil
	}

	status.setPhase(phaseConverting, len(res.Items))

	conv := converter.New(log, cfg.Convert, stg, proxies, metrics, converter.WithRetryHook(presenter.Retrying))
	decider := console.NewPromptDecider(deps.Stdin, presenter)
	coord := coordinator.New(log, cfg.App.Workers, conv, decider, status, metrics)

	report := coord.Run(ctx, res.Items)

	if report.Stopped != nil && ctx.Err() != nil {
		presenter.Warning(consts.MsgInterrupted)
	}

	presenter.Summary(len(report.Succeeded), len(report.Failures))

	if len(report.Failures) > 0 {
		return ExitFailures, nil
	}

	return ExitOK, nil
}
