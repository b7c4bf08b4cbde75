package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// childEnv marks the re-executed background copy of the binary so Detach does
// not recurse.
const childEnv = "BT_DAEMON_DETACHED"

// Detacher turns the current foreground process into a detached background
// daemon. Detach returns child=true in the background copy, which should
// carry on running the service, and child=false in the foreground parent,
// which should exit successfully.
type Detacher interface {
	Detach(logPath string) (child bool, err error)
}

// Reexec is the production Detacher. A Go process cannot fork and continue in
// the child (the runtime is multi-threaded), so detachment re-executes the
// binary in a new session instead: the child gets its own session id and no
// controlling terminal, its working directory is the filesystem root, its
// umask is cleared, stdin comes from the null device, and stdout/stderr go to
// the daemon log file. All other descriptors are close-on-exec and do not
// cross the boundary.
type Reexec struct{}

func (Reexec) Detach(logPath string) (bool, error) {
	if os.Getenv(childEnv) != "" {
		// Background copy: exec already gave us a fresh session, rooted
		// cwd and redirected stdio. Only the umask carries over.
		unix.Umask(0)
		return true, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return false, fmt.Errorf("daemon: resolving executable: %w", err)
	}
	null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return false, fmt.Errorf("daemon: opening %s: %w", os.DevNull, err)
	}
	defer null.Close()

	out := null
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			// A detached daemon without its log file would fail invisibly;
			// refuse to start instead.
			return false, fmt.Errorf("daemon: opening log file: %w", err)
		}
		out = f
		defer f.Close()
	}

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), childEnv+"=1")
	cmd.Dir = "/"
	cmd.Stdin = null
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("daemon: spawning detached process: %w", err)
	}
	return false, nil
}

// Foreground is a no-op Detacher for debug mode and tests: the current
// process keeps running as the daemon.
type Foreground struct{}

func (Foreground) Detach(string) (bool, error) { return true, nil }
