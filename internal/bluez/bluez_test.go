package bluez

import (
	"testing"

	dbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func TestAdapterPath(t *testing.T) {
	assert.Equal(t, dbus.ObjectPath("/org/bluez/hci0"), AdapterPath("hci0"))
	assert.Equal(t, dbus.ObjectPath("/org/bluez/hci1"), AdapterPath("hci1"))
}

func TestMACFromPath(t *testing.T) {
	cases := []struct {
		path dbus.ObjectPath
		mac  string
	}{
		{"/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF", "AA:BB:CC:DD:EE:FF"},
		{"/org/bluez/hci0", ""},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.mac, MACFromPath(c.path), string(c.path))
	}
}

func TestProfileOptionsVariantMap(t *testing.T) {
	m := ProfileOptions{
		Name:        "SerialService",
		Role:        "server",
		Channel:     1,
		AutoConnect: true,
	}.variantMap()

	assert.Equal(t, dbus.MakeVariant("SerialService"), m["Name"])
	assert.Equal(t, dbus.MakeVariant("server"), m["Role"])
	// BlueZ expects Channel as a uint16.
	assert.Equal(t, dbus.MakeVariant(uint16(1)), m["Channel"])
	assert.Equal(t, dbus.MakeVariant(true), m["AutoConnect"])
	assert.Equal(t, dbus.MakeVariant(SerialPortUUID), m["Service"])
}
