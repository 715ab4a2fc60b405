// entry point of the application
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"ytmp3/internal/app"
	"ytmp3/internal/config"
	"ytmp3/internal/console"
	"ytmp3/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.New(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		return app.ExitOK
	}

	if err != nil {
		console.NewPresenter(os.Stdout, false).Fatal(err)
		fmt.Fprintln(os.Stderr, "See --help for help.")

		return app.ExitCode(err)
	}

	log, err := logger.New(&logger.Options{
		AddSource: cfg.App.LogLevel == "debug",
		Level:     cfg.App.LogLevel,
		JSON:      cfg.App.LogJSON,
	})
	if err != nil {
		slog.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	return app.Run(ctx, cfg, app.Deps{
		Log:    log,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	})
}
