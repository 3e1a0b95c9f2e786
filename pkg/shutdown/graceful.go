package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// WithSignals returns a context that is cancelled on the first SIGINT or
// SIGTERM. A second signal exits the process without waiting for cleanup.
func WithSignals(ctx context.Context, log *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-ch:
			log.Info("shutdown requested", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			signal.Stop(ch)
			return
		}
		sig := <-ch
		log.Warn("forced exit", "signal", sig.String())
		os.Exit(1)
	}()

	return ctx, cancel
}
