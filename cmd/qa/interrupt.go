package main

import (
	"os"
	"os/signal"
)

// stopOnInterrupt calls stop on every Ctrl-C until the returned func is
// called. The answer being written stops and the command exits normally.
func stopOnInterrupt(stop func()) func() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	done := make(chan struct{})
	go forwardStops(sig, done, stop)
	return func() {
		signal.Stop(sig)
		close(done)
	}
}

func forwardStops(sig <-chan os.Signal, done <-chan struct{}, stop func()) {
	for {
		select {
		case <-sig:
			stop()
		case <-done:
			return
		}
	}
}
