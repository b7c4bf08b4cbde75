// bt-agent is the pairing-agent daemon: it registers a PIN-only agent with
// bluetoothd and answers authentication callbacks with one fixed code.
package main

import (
	"log/slog"
	"os"

	"bluetooth-serial/internal/agent"
	"bluetooth-serial/internal/bluez"
	"bluetooth-serial/internal/cli"
	"bluetooth-serial/internal/config"
	"bluetooth-serial/internal/daemon"
	"bluetooth-serial/internal/radio"
)

func main() {
	app := &cli.App{
		Name:       "bt-agent",
		Short:      "Bluetooth legacy-PIN pairing agent daemon",
		SingleFlag: true,
		NewService: newService,
	}
	os.Exit(app.Execute(os.Args[1:]))
}

func newService(cfg config.Config, opts cli.Options) *daemon.Service {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	var detach daemon.Detacher = daemon.Reexec{}
	if opts.Debug {
		detach = daemon.Foreground{}
	}
	return &daemon.Service{
		Name:    "bt-agent",
		PidFile: daemon.PidFile(cfg.AgentPidFile),
		LogPath: cfg.AgentLogFile,
		Detach:  detach,
		Log:     log,
		Run:     func() error { return run(cfg, opts, log) },
	}
}

func run(cfg config.Config, opts cli.Options, log *slog.Logger) error {
	bus, err := bluez.Connect(log)
	if err != nil {
		return err
	}
	defer bus.Close()

	if err := radio.New(cfg.Adapter, nil, log).BringUp(); err != nil {
		log.Warn("hciconfig bring-up failed, using adapter properties", "error", err)
		if err := bus.MakeDiscoverable(cfg.Adapter); err != nil {
			return err
		}
	}

	a, err := agent.New(cfg.Pin, bus.SetTrusted, log, opts.Single)
	if err != nil {
		return err
	}
	if err := bus.RegisterAgent(a, bluez.AgentPath, bluez.CapabilityKeyboardOnly); err != nil {
		return err
	}
	bus.Wait(a.Done())
	return nil
}
