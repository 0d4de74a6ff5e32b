package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/lumen-templates/lumen/pkg/compiler"
	"github.com/lumen-templates/lumen/pkg/config"
)

func main() {
	configPath := flag.String("config", "lumen.yaml", "compile manifest to load")
	check := flag.Bool("check", false, "analyze templates without writing output")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("loading manifest", "error", err)
		os.Exit(1)
	}
	if err := compiler.Run(ctx, cfg, log, compiler.Options{CheckOnly: *check}); err != nil {
		log.Error("compile failed", "error", err)
		os.Exit(1)
	}
}
