package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JaimeStill/rancoqc/internal/config"
)

const usage = `usage: station <command> [flags]

commands:
  analyze      upload an image for detection
  rtsp         capture and analyze a frame from a video stream
  manual       record operator-counted defects
  history      list stored analyses
  resync       resend a history record to the remote store
  sync         push pending cache entries to the remote store
  clear-cache  drop synced cache entries
  labels       list the labels of the active profile
  add-label    add a label to the active profile
  profile      show or select the active profile
  status       report remote store and cache state
  logout       end the session`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	cfg, err := config.LoadStation()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config load failed:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(cfg, logger, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "station init failed:", err)
		os.Exit(1)
	}

	if err := cmd(ctx, app, os.Args[2:]); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
