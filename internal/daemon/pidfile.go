package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// PidFile records the process id of a running daemon instance. It is the only
// state shared across process boundaries; single-instance enforcement relies
// on probing the recorded pid before writing, not on file locking.
type PidFile string

// Write records pid, overwriting any previous content.
func (p PidFile) Write(pid int) error {
	data := []byte(strconv.Itoa(pid) + "\n")
	if err := os.WriteFile(string(p), data, 0644); err != nil {
		return fmt.Errorf("daemon: writing pid file %s: %w", p, err)
	}
	return nil
}

// Read returns the recorded pid. Absence or unparseable content is reported
// as an error; callers treat any Read error as "not running".
func (p PidFile) Read() (int, error) {
	data, err := os.ReadFile(string(p))
	if err != nil {
		return 0, fmt.Errorf("daemon: reading pid file %s: %w", p, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("daemon: parsing pid file %s: %w", p, err)
	}
	return pid, nil
}

// Remove deletes the pid file. A missing file is not an error.
func (p PidFile) Remove() error {
	if err := os.Remove(string(p)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("daemon: removing pid file %s: %w", p, err)
	}
	return nil
}

// Alive reports whether a process with the given pid currently exists.
// Signal 0 probes for existence without delivering a signal.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// processGone classifies a signal error as "the target no longer exists".
// This replaces matching on formatted error text with a typed check.
func processGone(err error) bool {
	return errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH)
}
