// SPDX-License-Identifier: EPL-2.0

// Command previewd serves the mix preview pipeline over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/ik5/mixpreview/engine"
	"github.com/ik5/mixpreview/internal/config"
	"github.com/ik5/mixpreview/internal/server"
	"github.com/ik5/mixpreview/player"
	"github.com/ik5/mixpreview/preview"
	"github.com/ik5/mixpreview/swap"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml, toml or json)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "previewd:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	if cfg.Level() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	live := player.New(player.WithName("live"), player.WithLogger(logger))
	hidden := player.New(player.WithName("preload"), player.WithLogger(logger))
	go func() { _ = live.Drive(ctx, cfg.DriveInterval) }()

	sched := swap.New(live, hidden,
		swap.WithLogger(logger),
		swap.WithPreloadTimeout(cfg.PreloadTimeout),
	)
	defer sched.Close()

	eng := engine.New(engine.WithSampleRate(cfg.SampleRate), engine.WithLogger(logger))
	orch := preview.New(eng, sched, preview.WithLogger(logger))
	defer orch.Reset()

	srv := server.New(orch, sched, live,
		server.WithLogger(logger),
		server.WithCORSOrigins(cfg.CORSOrigins),
		server.WithMaxUpload(cfg.MaxUploadBytes()),
	)

	logger.Info("starting previewd", "addr", cfg.Addr, "sample_rate", cfg.SampleRate)
	return srv.Run(ctx, cfg.Addr)
}
