// Package radio brings the local controller up and into legacy pairing mode
// by shelling out to hciconfig. The daemons only care whether bring-up
// succeeded; the Runner seam keeps the shell dependency out of tests.
package radio

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Result captures one command invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes a single command line.
type Runner interface {
	Run(line string) (Result, error)
}

// ExecRunner runs command lines with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(line string) (Result, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Result{}, fmt.Errorf("radio: empty command line")
	}
	cmd := exec.Command(fields[0], fields[1:]...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			// Non-zero exit is reported through ExitCode, not as an error.
			return res, nil
		}
		return res, fmt.Errorf("radio: running %q: %w", line, err)
	}
	return res, nil
}

// Radio configures one controller.
type Radio struct {
	adapter string
	run     Runner
	log     *slog.Logger
}

// New builds a Radio for the named controller, e.g. "hci0". A nil runner
// defaults to ExecRunner.
func New(adapter string, run Runner, log *slog.Logger) *Radio {
	if run == nil {
		run = ExecRunner{}
	}
	return &Radio{adapter: adapter, run: run, log: log}
}

// BringUp powers the controller, makes it connectable and discoverable, and
// disables Secure Simple Pairing. With SSP on, bluetoothd never asks the
// agent for a PIN.
func (r *Radio) BringUp() error {
	lines := []string{
		"hciconfig " + r.adapter + " up",
		"hciconfig " + r.adapter + " piscan",
		"hciconfig " + r.adapter + " sspmode 0",
	}
	for _, line := range lines {
		res, err := r.run.Run(line)
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("radio: %q exited %d: %s", line, res.ExitCode, strings.TrimSpace(res.Stderr))
		}
		r.log.Debug("radio command ok", "line", line)
	}
	r.log.Info("radio up", "adapter", r.adapter)
	return nil
}
