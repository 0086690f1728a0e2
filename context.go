package soyuz

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// InterruptibleContext returns a context which is canceled when the process
// receives SIGINT or SIGTERM. A second signal runs the RunAtExit hooks and
// exits immediately, for when a canceled operation (e.g. a publisher phase
// rollback) hangs.
func InterruptibleContext() (context.Context, context.CancelFunc) {
	ctx, canc := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		var s os.Signal
		select {
		case s = <-sig:
		case <-ctx.Done():
			signal.Stop(sig)
			return
		}
		log.Printf("received %v, canceling", s)
		canc()
		s = <-sig
		log.Printf("received %v again, exiting", s)
		if err := RunAtExit(); err != nil {
			log.Print(err)
		}
		if n, ok := s.(syscall.Signal); ok {
			os.Exit(128 + int(n))
		}
		os.Exit(1)
	}()
	return ctx, canc
}
