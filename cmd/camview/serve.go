package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/germanamz/camview/pkg/control"
)

// runServe runs the engine without a terminal UI. The render feed listens
// when an address is configured; MCP is served on stdin/stdout when control
// is enabled, and the process exits when the MCP client disconnects.
func runServe(common commonFlags, addr string, forceMCP bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng, cleanup, err := startEngine(ctx, common)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := eng.Config()
	if addr == "" {
		addr = cfg.Feed.Addr
	}

	wait := runBackground(ctx, eng, addr)

	var serveErr error
	if cfg.Control.Enabled || forceMCP {
		srv := control.New("camview", version, eng.Session(), eng.Logger())
		serveErr = srv.Serve(ctx, os.Stdin, os.Stdout)
		if errors.Is(serveErr, context.Canceled) {
			serveErr = nil
		}
		eng.Logger().InfoContext(ctx, "mcp client disconnected")
	} else {
		<-ctx.Done()
	}

	cancel()
	return errors.Join(serveErr, wait())
}
