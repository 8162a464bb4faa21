package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// watchSignals carries what a running folder watcher needs from process
// signals: a context that ends on shutdown and a queue of rescan requests.
type watchSignals struct {
	ctx    context.Context
	rescan <-chan struct{}
	stop   func()
}

// notifyWatchSignals subscribes the watcher of dir to SIGINT, SIGTERM and
// SIGHUP. Call stop once the watcher has returned.
func notifyWatchSignals(parent context.Context, dir string, logger *slog.Logger) *watchSignals {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ws := routeWatchSignals(parent, sigCh, func() { os.Exit(1) }, logger.With(slog.String("dir", dir)))

	stopRouting := ws.stop
	ws.stop = func() {
		signal.Stop(sigCh)
		stopRouting()
	}

	return ws
}

// routeWatchSignals turns signals into watcher actions. SIGHUP queues one
// rescan and further requests coalesce until it is taken. The first SIGINT
// or SIGTERM cancels ctx so an upload in flight can finish; rescans are
// ignored from then on. Another shutdown signal calls forceExit.
func routeWatchSignals(parent context.Context, sigCh <-chan os.Signal, forceExit func(), logger *slog.Logger) *watchSignals {
	ctx, cancel := context.WithCancel(parent)
	rescan := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		stopping := false

		for {
			select {
			case <-done:
				return
			case <-parent.Done():
				return
			case sig := <-sigCh:
				switch {
				case sig == syscall.SIGHUP:
					if stopping {
						logger.Debug("rescan ignored while stopping")
						continue
					}

					logger.Info("rescan requested")

					select {
					case rescan <- struct{}{}:
					default:
					}
				case !stopping:
					stopping = true

					logger.Info("stopping watcher after in-flight uploads", slog.String("signal", sig.String()))
					cancel()
				default:
					logger.Warn("watcher did not stop, forcing exit", slog.String("signal", sig.String()))
					forceExit()

					return
				}
			}
		}
	}()

	var once sync.Once

	return &watchSignals{
		ctx:    ctx,
		rescan: rescan,
		stop: func() {
			once.Do(func() {
				close(done)
				cancel()
			})
		},
	}
}
