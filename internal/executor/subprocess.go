package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/musterdev/muster/internal/debug"
)

// runCaptured runs a subprocess with stdout captured, enforcing the
// inactivity watchdog: if the process writes nothing (stdout or stderr) for
// the configured window it is killed and ErrInactivityTimeout returned.
// Cancelling the caller's context kills the process and surfaces ctx.Err().
func runCaptured(parent context.Context, ec ExecContext, bin string, args ...string) (*Result, error) {
	start := time.Now()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = ec.WorkspaceDir

	var stdout bytes.Buffer
	activity := &activityTracker{last: start}
	cmd.Stdout = activity.tee(&stdout)
	cmd.Stderr = activity.tee(os.Stderr)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", bin, err)
	}

	timedOut := make(chan struct{})
	if ec.InactivityTimeout > 0 {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			ticker := time.NewTicker(200 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					if activity.idleFor() > ec.InactivityTimeout {
						debug.Logf("executor: %s idle for over %s, killing\n", bin, ec.InactivityTimeout)
						close(timedOut)
						cancel()
						return
					}
				}
			}
		}()
	}

	err := cmd.Wait()
	res := &Result{
		Output:   stdout.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}
	if err != nil {
		select {
		case <-timedOut:
			return res, fmt.Errorf("%s: %w", bin, ErrInactivityTimeout)
		default:
		}
		if parent.Err() != nil {
			return res, parent.Err()
		}
		return res, fmt.Errorf("%s exited: %w", bin, err)
	}
	return res, nil
}

// runInteractive runs the subprocess attached to the caller's terminal.
// No output capture and no watchdog; the user is driving.
func runInteractive(ctx context.Context, ec ExecContext, bin string, args ...string) (*Result, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = ec.WorkspaceDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	res := &Result{Duration: time.Since(start)}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, fmt.Errorf("%s exited: %w", bin, err)
	}
	return res, nil
}

// activityTracker timestamps subprocess output for the inactivity watchdog.
type activityTracker struct {
	mu   sync.Mutex
	last time.Time
}

func (a *activityTracker) touch() {
	a.mu.Lock()
	a.last = time.Now()
	a.mu.Unlock()
}

func (a *activityTracker) idleFor() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return time.Since(a.last)
}

func (a *activityTracker) tee(dst io.Writer) io.Writer {
	return &activityWriter{tracker: a, dst: dst}
}

type activityWriter struct {
	tracker *activityTracker
	dst     io.Writer
}

func (w *activityWriter) Write(p []byte) (int, error) {
	w.tracker.touch()
	return w.dst.Write(p)
}
