// Package cli builds the shared command surface of the daemons: a single
// lifecycle action (start, stop, restart) plus the handful of flags the two
// binaries have in common.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bluetooth-serial/internal/config"
	"bluetooth-serial/internal/daemon"
)

// Exit codes of both binaries.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

var errNoAction = errors.New("cli: no action given")

// Options are the flag values passed through to the service factory.
type Options struct {
	// Debug skips detachment and keeps the daemon in the foreground.
	Debug bool
	// Single ends the dispatch loop after one successful authorization.
	// Only exposed by the pairing agent.
	Single bool
}

// App describes one daemon binary.
type App struct {
	Name  string
	Short string
	// SingleFlag exposes --single on this binary.
	SingleFlag bool
	// NewService builds the lifecycle service from the merged config.
	NewService func(cfg config.Config, opts Options) *daemon.Service
}

// Execute runs the CLI and returns the process exit code: 0 on success, 1 on
// a failed operation (including an already-running start), 2 on an
// unrecognized action.
func (a *App) Execute(args []string) int {
	var (
		cfgPath string
		opts    Options
	)
	root := &cobra.Command{
		Use:           a.Name + " [start|stop|restart]",
		Short:         a.Short,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errNoAction
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to TOML config file")
	root.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "run in the foreground without detaching")
	if a.SingleFlag {
		root.PersistentFlags().BoolVar(&opts.Single, "single", false, "exit after one successful authorization")
	}

	service := func() (*daemon.Service, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		return a.NewService(cfg, opts), nil
	}
	action := func(run func(*daemon.Service) error) func(*cobra.Command, []string) error {
		return func(*cobra.Command, []string) error {
			svc, err := service()
			if err != nil {
				return err
			}
			return run(svc)
		}
	}
	root.AddCommand(
		&cobra.Command{Use: "start", Short: "Start the daemon", Args: cobra.NoArgs,
			RunE: action((*daemon.Service).Start)},
		&cobra.Command{Use: "stop", Short: "Stop the daemon", Args: cobra.NoArgs,
			RunE: action((*daemon.Service).Stop)},
		&cobra.Command{Use: "restart", Short: "Restart the daemon", Args: cobra.NoArgs,
			RunE: action((*daemon.Service).Restart)},
	)

	// An unrecognized action is a usage error, distinct from a failed one.
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		if _, _, err := root.Find(args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return ExitUsage
		}
	}

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if errors.Is(err, errNoAction) {
			return ExitUsage
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", a.Name, err)
		return ExitError
	}
	return ExitOK
}
