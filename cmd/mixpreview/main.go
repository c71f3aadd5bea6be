// SPDX-License-Identifier: EPL-2.0

// Command mixpreview is an interactive shell for previewing a mix of local
// audio files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ik5/mixpreview/engine"
	"github.com/ik5/mixpreview/internal/config"
	"github.com/ik5/mixpreview/player"
	"github.com/ik5/mixpreview/preview"
	"github.com/ik5/mixpreview/swap"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml, toml or json)")
	flag.Parse()

	if err := run(*configPath, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "mixpreview:", err)
		os.Exit(1)
	}
}

func run(configPath string, files []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// keep log lines from tearing the prompt apart
	level := max(cfg.Level(), slog.LevelWarn)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	live := player.New(player.WithName("live"), player.WithLogger(logger))
	hidden := player.New(player.WithName("preload"), player.WithLogger(logger))
	go func() { _ = live.Drive(ctx, cfg.DriveInterval) }()

	sched := swap.New(live, hidden,
		swap.WithLogger(logger),
		swap.WithPreloadTimeout(cfg.PreloadTimeout),
	)
	defer sched.Close()

	orch := preview.New(engine.New(engine.WithSampleRate(cfg.SampleRate), engine.WithLogger(logger)), sched,
		preview.WithLogger(logger))
	defer orch.Reset()

	historyFile := ".mixpreview_history"
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, historyFile)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "mix> ",
		HistoryFile:     historyFile,
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	sh := newShell(orch, sched, live, rl.Stdout())
	sh.help()

	if len(files) > 0 {
		if err := sh.load(ctx, files); err != nil {
			sh.printf("error: %v\n", err)
		}
	}

	for {
		line, err := rl.Readline()
		if err != nil {
			// ErrInterrupt, io.EOF
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !sh.handle(ctx, line) {
			return nil
		}
	}
}

func completer() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("load", readline.PcItemDynamic(listAudioFiles)),
		readline.PcItem("vol"),
		readline.PcItem("tracks"),
		readline.PcItem("play"),
		readline.PcItem("pause"),
		readline.PcItem("status"),
		readline.PcItem("export"),
		readline.PcItem("reset"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// listAudioFiles offers audio files in the current directory.
func listAudioFiles(string) []string {
	entries, err := os.ReadDir(".")
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".wav", ".mp3", ".ogg":
			names = append(names, e.Name())
		}
	}
	return names
}
