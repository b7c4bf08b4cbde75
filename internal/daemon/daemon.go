// Package daemon implements the shared process-lifecycle discipline for the
// bluetooth daemons: detachment from the terminal, single-instance
// enforcement through a pid file, and the stop/restart termination protocol.
package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"
)

// ErrAlreadyRunning is returned by Start when the pid file names a live
// process. The caller must not touch that instance's pid file.
var ErrAlreadyRunning = errors.New("daemon: already running")

// defaultStopInterval is the delay between termination signals during Stop.
const defaultStopInterval = 100 * time.Millisecond

// Service ties one daemon's lifecycle to a pid file and a run function.
type Service struct {
	// Name is used in log records only.
	Name string
	// PidFile guards against duplicate instances.
	PidFile PidFile
	// LogPath receives the detached process's stdout/stderr. Ignored in
	// foreground mode.
	LogPath string
	// Detach performs the background transition. Foreground{} keeps the
	// process in the foreground (debug mode).
	Detach Detacher
	// Run performs radio bring-up, bus registration and the dispatch wait.
	// It returns when the dispatch loop ends.
	Run func() error
	// Log must be non-nil.
	Log *slog.Logger

	// StopInterval overrides the signal retry delay; zero means the default.
	StopInterval time.Duration
}

// Start enforces single-instance, detaches, records the pid and hands off to
// Run. In the foreground parent of a detach it returns nil immediately; the
// background copy carries the service. The pid file is removed on every
// return path out of Run.
func (s *Service) Start() error {
	if pid, err := s.PidFile.Read(); err == nil {
		if Alive(pid) {
			return fmt.Errorf("%w: pid %d", ErrAlreadyRunning, pid)
		}
		s.Log.Warn("removing stale pid file", "service", s.Name, "pid", pid)
		if err := s.PidFile.Remove(); err != nil {
			return err
		}
	}

	child, err := s.Detach.Detach(s.LogPath)
	if err != nil {
		return err
	}
	if !child {
		// Foreground parent; the detached copy takes over from here.
		return nil
	}

	if err := s.PidFile.Write(os.Getpid()); err != nil {
		return err
	}
	defer func() {
		if err := s.PidFile.Remove(); err != nil {
			s.Log.Error("pid file cleanup failed", "service", s.Name, "error", err)
		}
	}()

	s.Log.Info("service starting", "service", s.Name, "pid", os.Getpid())
	return s.Run()
}

// Stop terminates the recorded instance and removes the pid file. A missing
// or unreadable pid file means no instance is running, which is a success for
// idempotent stop/restart. Signal failures other than "process no longer
// exists" are fatal.
func (s *Service) Stop() error {
	pid, err := s.PidFile.Read()
	if err != nil {
		s.Log.Info("service not running", "service", s.Name)
		return nil
	}

	interval := s.StopInterval
	if interval == 0 {
		interval = defaultStopInterval
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return s.PidFile.Remove()
	}
	for Alive(pid) {
		if err := proc.Signal(syscall.SIGTERM); err != nil {
			if processGone(err) {
				break
			}
			return fmt.Errorf("daemon: terminating pid %d: %w", pid, err)
		}
		time.Sleep(interval)
	}
	s.Log.Info("service stopped", "service", s.Name, "pid", pid)
	return s.PidFile.Remove()
}

// Restart is Stop followed by Start. Each step provides its own guards;
// there is no additional overlap protection.
func (s *Service) Restart() error {
	if err := s.Stop(); err != nil {
		return err
	}
	return s.Start()
}
