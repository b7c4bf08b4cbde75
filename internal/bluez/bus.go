package bluez

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	dbus "github.com/godbus/dbus/v5"
)

// Bus wraps the system-bus connection to bluetoothd. Registrations push their
// undo onto a cleanup stack that Close runs in reverse order, the bus
// connection last.
type Bus struct {
	conn    *dbus.Conn
	log     *slog.Logger
	cleanup []func()
}

// Connect opens the system bus.
func Connect(log *slog.Logger) (*Bus, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("bluez: connect system bus: %w", err)
	}
	b := &Bus{conn: conn, log: log}
	b.cleanup = append(b.cleanup, func() { b.conn.Close() })
	return b, nil
}

// RegisterAgent exports agent at path under org.bluez.Agent1, registers it
// with the agent manager and makes it the default agent for all pairing
// requests.
func (b *Bus) RegisterAgent(agent interface{}, path dbus.ObjectPath, capability string) error {
	if err := b.conn.Export(agent, path, AgentIface); err != nil {
		return fmt.Errorf("bluez: export agent: %w", err)
	}
	mgr := b.conn.Object(BusName, managerPath)
	if call := mgr.Call(AgentManagerIface+".RegisterAgent", 0, path, capability); call.Err != nil {
		return fmt.Errorf("bluez: RegisterAgent: %w", call.Err)
	}
	b.cleanup = append(b.cleanup, func() {
		_ = mgr.Call(AgentManagerIface+".UnregisterAgent", 0, path).Err
		_ = b.conn.Export(nil, path, AgentIface)
	})
	if call := mgr.Call(AgentManagerIface+".RequestDefaultAgent", 0, path); call.Err != nil {
		return fmt.Errorf("bluez: RequestDefaultAgent: %w", call.Err)
	}
	b.log.Info("agent registered", "path", path, "capability", capability)
	return nil
}

// ProfileOptions are the RegisterProfile properties for the serial profile.
type ProfileOptions struct {
	Name        string
	Role        string
	Channel     uint16
	AutoConnect bool
}

func (o ProfileOptions) variantMap() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"Name":        dbus.MakeVariant(o.Name),
		"Role":        dbus.MakeVariant(o.Role),
		"Channel":     dbus.MakeVariant(o.Channel),
		"AutoConnect": dbus.MakeVariant(o.AutoConnect),
		"Service":     dbus.MakeVariant(SerialPortUUID),
	}
}

// RegisterProfile exports handler at path under org.bluez.Profile1 and
// registers it for the given service UUID. bluetoothd then delivers
// NewConnection and RequestDisconnection calls to the handler.
func (b *Bus) RegisterProfile(handler interface{}, path dbus.ObjectPath, uuid string, opts ProfileOptions) error {
	if err := b.conn.Export(handler, path, ProfileIface); err != nil {
		return fmt.Errorf("bluez: export profile: %w", err)
	}
	mgr := b.conn.Object(BusName, managerPath)
	if call := mgr.Call(ProfileManagerIface+".RegisterProfile", 0, path, uuid, opts.variantMap()); call.Err != nil {
		return fmt.Errorf("bluez: RegisterProfile: %w", call.Err)
	}
	b.cleanup = append(b.cleanup, func() {
		_ = mgr.Call(ProfileManagerIface+".UnregisterProfile", 0, path).Err
		_ = b.conn.Export(nil, path, ProfileIface)
	})
	b.log.Info("profile registered", "path", path, "name", opts.Name, "channel", opts.Channel)
	return nil
}

// SetTrusted sets the Device1 Trusted property. The flag is monotonic from
// the daemons' point of view: it is only ever set, never cleared.
func (b *Bus) SetTrusted(device dbus.ObjectPath) error {
	obj := b.conn.Object(BusName, device)
	call := obj.Call(propsIface+".Set", 0, DeviceIface, "Trusted", dbus.MakeVariant(true))
	if call.Err != nil {
		return fmt.Errorf("bluez: set %s trusted: %w", device, call.Err)
	}
	return nil
}

// MakeDiscoverable turns on the adapter's Powered, Discoverable and Pairable
// properties over the bus. Used as a fallback when the hciconfig bring-up is
// unavailable.
func (b *Bus) MakeDiscoverable(adapter string) error {
	obj := b.conn.Object(BusName, AdapterPath(adapter))
	for _, prop := range []string{"Powered", "Discoverable", "Pairable"} {
		call := obj.Call(propsIface+".Set", 0, AdapterIface, prop, dbus.MakeVariant(true))
		if call.Err != nil {
			return fmt.Errorf("bluez: set %s %s: %w", adapter, prop, call.Err)
		}
	}
	return nil
}

// Wait blocks until the process receives SIGINT/SIGTERM or done is closed.
// done may be nil. This is the daemon's dispatch wait: bluetoothd keeps
// invoking the exported callbacks while we sit here.
func (b *Bus) Wait(done <-chan struct{}) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	select {
	case s := <-sig:
		b.log.Info("dispatch loop ending", "signal", s.String())
	case <-done:
		b.log.Info("dispatch loop ending", "reason", "single-shot complete")
	}
}

// Close undoes registrations in reverse order and closes the bus connection.
// Safe to call more than once.
func (b *Bus) Close() {
	cleanup := b.cleanup
	b.cleanup = nil
	for i := len(cleanup) - 1; i >= 0; i-- {
		cleanup[i]()
	}
}
