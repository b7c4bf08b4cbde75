// bt-serial is the serial-profile daemon: it registers an SPP profile with
// bluetoothd and answers the text command protocol over the RFCOMM socket
// transferred for each connection.
package main

import (
	"log/slog"
	"os"

	"bluetooth-serial/internal/bluez"
	"bluetooth-serial/internal/cli"
	"bluetooth-serial/internal/config"
	"bluetooth-serial/internal/daemon"
	"bluetooth-serial/internal/radio"
	"bluetooth-serial/internal/serial"
)

func main() {
	app := &cli.App{
		Name:       "bt-serial",
		Short:      "Bluetooth serial port profile daemon",
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
		Name:    "bt-serial",
		PidFile: daemon.PidFile(cfg.SerialPidFile),
		LogPath: cfg.SerialLogFile,
		Detach:  detach,
		Log:     log,
		Run:     func() error { return run(cfg, log) },
	}
}

func run(cfg config.Config, log *slog.Logger) error {
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

	h := serial.NewHandler(serial.DefaultCommands(), log)
	defer h.Close()
	err = bus.RegisterProfile(h, bluez.ProfilePath, bluez.SerialPortUUID, bluez.ProfileOptions{
		Name:        cfg.ServiceName,
		Role:        "server",
		Channel:     cfg.Channel,
		AutoConnect: true,
	})
	if err != nil {
		return err
	}
	bus.Wait(nil)
	return nil
}
