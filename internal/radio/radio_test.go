package radio

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRunner struct {
	lines []string
	fail  string // line that exits non-zero
	err   error  // returned for every line when set
}

func (f *fakeRunner) Run(line string) (Result, error) {
	f.lines = append(f.lines, line)
	if f.err != nil {
		return Result{}, f.err
	}
	if line == f.fail {
		return Result{ExitCode: 1, Stderr: "Operation not permitted"}, nil
	}
	return Result{}, nil
}

func TestBringUpCommandSequence(t *testing.T) {
	run := &fakeRunner{}
	require.NoError(t, New("hci0", run, testLogger()).BringUp())

	assert.Equal(t, []string{
		"hciconfig hci0 up",
		"hciconfig hci0 piscan",
		"hciconfig hci0 sspmode 0",
	}, run.lines)
}

func TestBringUpStopsOnNonZeroExit(t *testing.T) {
	run := &fakeRunner{fail: "hciconfig hci0 piscan"}
	err := New("hci0", run, testLogger()).BringUp()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "piscan")
	// The failing command is the last one attempted.
	assert.Len(t, run.lines, 2)
}

func TestBringUpPropagatesRunnerError(t *testing.T) {
	boom := errors.New("no such binary")
	run := &fakeRunner{err: boom}
	err := New("hci0", run, testLogger()).BringUp()
	assert.ErrorIs(t, err, boom)
}

func TestExecRunner(t *testing.T) {
	res, err := ExecRunner{}.Run("echo hello")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", res.Stdout)

	res, err = ExecRunner{}.Run("false")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)

	_, err = ExecRunner{}.Run("")
	assert.Error(t, err)
}
