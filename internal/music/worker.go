// Package music supervises the delegated playback worker. Voice transport,
// stream extraction, and audio decoding all live in that external process;
// the bot only keeps it running.
package music

import (
	"context"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	restartBase = 2 * time.Second
	restartMax  = 2 * time.Minute
	stopGrace   = 5 * time.Second
)

// Worker runs the external playback process and restarts it with capped
// backoff when it exits.
type Worker struct {
	command []string
}

// NewWorker takes the worker command line, e.g. "python3 music_worker.py".
// An empty command disables the subsystem.
func NewWorker(command string) *Worker {
	fields := strings.Fields(command)
	return &Worker{command: fields}
}

func (w *Worker) Enabled() bool { return len(w.command) > 0 }

// Run blocks until ctx is canceled, keeping one worker process alive.
func (w *Worker) Run(ctx context.Context) {
	if !w.Enabled() {
		return
	}

	backoff := restartBase
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		start := time.Now()
		err := w.runOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		// A worker that stayed up a while earned a fresh backoff.
		if time.Since(start) > time.Minute {
			backoff = restartBase
		}
		log.Printf("music: worker exited (%v), restarting in %s", err, backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff *= 2
		if backoff > restartMax {
			backoff = restartMax
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) error {
	cmd := exec.Command(w.command[0], w.command[1:]...)
	cmd.Env = os.Environ()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return err
	}
	log.Printf("music: worker started (pid %d)", cmd.Process.Pid)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = cmd.Process.Signal(os.Interrupt)
		select {
		case <-done:
		case <-time.After(stopGrace):
			_ = cmd.Process.Kill()
			<-done
		}
		return ctx.Err()
	}
}
