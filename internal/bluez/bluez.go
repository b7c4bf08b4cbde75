// Package bluez adapts the org.bluez system-bus API for the daemons: agent
// and profile registration, the device trust flag, and the dispatch wait
// loop. Callback objects are exported on the bus and invoked by bluetoothd
// one call at a time.
package bluez

import (
	"strings"

	dbus "github.com/godbus/dbus/v5"
)

const (
	BusName = "org.bluez"

	AgentIface          = "org.bluez.Agent1"
	AgentManagerIface   = "org.bluez.AgentManager1"
	ProfileIface        = "org.bluez.Profile1"
	ProfileManagerIface = "org.bluez.ProfileManager1"
	DeviceIface         = "org.bluez.Device1"
	AdapterIface        = "org.bluez.Adapter1"
	propsIface          = "org.freedesktop.DBus.Properties"

	// SerialPortUUID is the Serial Port Profile service class.
	SerialPortUUID = "00001101-0000-1000-8000-00805f9b34fb"

	// Agent capability for legacy PIN entry. KeyboardOnly tells bluetoothd
	// the agent can type a code but not display or compare one, which
	// steers remote stacks toward the PIN flow.
	CapabilityKeyboardOnly = "KeyboardOnly"
)

const (
	managerPath = dbus.ObjectPath("/org/bluez")

	// AgentPath and ProfilePath are where the callback objects are exported.
	AgentPath   = dbus.ObjectPath("/bluetooth/serial/agent")
	ProfilePath = dbus.ObjectPath("/bluetooth/serial/profile")
)

// AdapterPath returns the object path of a local controller, e.g.
// "hci0" -> /org/bluez/hci0.
func AdapterPath(adapter string) dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + adapter)
}

// MACFromPath extracts the device address from a Device1 object path
// (.../dev_AA_BB_CC_DD_EE_FF -> AA:BB:CC:DD:EE:FF). Returns "" if the path
// has no device component.
func MACFromPath(p dbus.ObjectPath) string {
	s := string(p)
	idx := strings.LastIndex(s, "/dev_")
	if idx < 0 {
		return ""
	}
	return strings.ReplaceAll(s[idx+5:], "_", ":")
}
