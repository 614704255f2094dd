package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/markis/studio/internal/args"
	"github.com/markis/studio/internal/client"
	"github.com/markis/studio/internal/config"
	"github.com/markis/studio/internal/logger"
	"github.com/markis/studio/internal/render"
	"github.com/markis/studio/internal/stream"
)

// main loads the configuration, parses arguments and streams one generation.
func main() {
	if err := run(); err != nil {
		if errors.Is(err, args.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := args.ParseArgs(*cfg, args.Input{Args: os.Args[1:], Stdin: os.Stdin, Out: os.Stdout})
	if err != nil {
		return err
	}

	log := logger.New(logger.WithDebug(a.Debug), logger.WithPretty(!a.UsePlainText))

	c := client.New(*cfg, client.WithLogger(log))
	dec, err := c.GenerateStream(ctx, client.GenerateRequest{
		Prompt:          a.Prompt(),
		Count:           a.Count,
		Title:           a.Title,
		ContextImageIDs: a.ContextImageIDs,
	})
	if err != nil {
		return err
	}

	// Cancelling releases the stream if rendering stops early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	parser := stream.NewParser(ctx)
	go parser.Process(dec)

	state, err := render.NewTerminalRenderer(os.Stdout, a.UsePlainText).Render(parser.Chunks())
	if err != nil {
		return err
	}

	log.Debug("generation finished", "variations", len(state.Variations), "title", state.Title)
	return nil
}
