package agent

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	dbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noTrust(dbus.ObjectPath) error { return nil }

const device = dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF")

func TestNewValidatesPin(t *testing.T) {
	for _, pin := range []string{"", "12345678901234567"} {
		_, err := New(pin, noTrust, testLogger(), false)
		assert.Error(t, err, "pin %q", pin)
	}
	for _, pin := range []string{"1", "0000", "1234567890123456"} {
		_, err := New(pin, noTrust, testLogger(), false)
		assert.NoError(t, err, "pin %q", pin)
	}
}

func TestRequestPinCodeReturnsConfiguredPin(t *testing.T) {
	a, err := New("123456", noTrust, testLogger(), false)
	require.NoError(t, err)

	for _, dev := range []dbus.ObjectPath{device, "/some/other/device", "/"} {
		pin, derr := a.RequestPinCode(dev)
		require.Nil(t, derr)
		assert.Equal(t, "123456", pin)
	}
}

func TestUnsupportedKindsAreCanceled(t *testing.T) {
	a, err := New("0000", noTrust, testLogger(), false)
	require.NoError(t, err)

	_, derr := a.RequestPasskey(device)
	require.NotNil(t, derr)
	assert.Equal(t, "org.bluez.Error.Canceled", derr.Name)

	derr = a.RequestConfirmation(device, 123456)
	require.NotNil(t, derr)
	assert.Equal(t, "org.bluez.Error.Canceled", derr.Name)
}

func TestObservationalCallbacksSucceed(t *testing.T) {
	a, err := New("0000", noTrust, testLogger(), false)
	require.NoError(t, err)

	assert.Nil(t, a.Release())
	assert.Nil(t, a.Cancel())
	assert.Nil(t, a.DisplayPinCode(device, "0000"))
	assert.Nil(t, a.DisplayPasskey(device, 123456, 3))
	assert.Nil(t, a.RequestAuthorization(device))
}

func TestAuthorizeServiceMarksTrusted(t *testing.T) {
	var trusted []dbus.ObjectPath
	trust := func(d dbus.ObjectPath) error {
		trusted = append(trusted, d)
		return nil
	}
	a, err := New("0000", trust, testLogger(), false)
	require.NoError(t, err)

	require.Nil(t, a.AuthorizeService(device, "00001101-0000-1000-8000-00805f9b34fb"))
	// Idempotent: authorizing again re-sets the flag, never unsets it.
	require.Nil(t, a.AuthorizeService(device, "00001101-0000-1000-8000-00805f9b34fb"))
	assert.Equal(t, []dbus.ObjectPath{device, device}, trusted)
}

func TestAuthorizeServiceReportsTrustFailure(t *testing.T) {
	trust := func(dbus.ObjectPath) error { return errors.New("bus gone") }
	a, err := New("0000", trust, testLogger(), false)
	require.NoError(t, err)

	derr := a.AuthorizeService(device, "uuid")
	assert.NotNil(t, derr)
}

func TestSingleShotDone(t *testing.T) {
	a, err := New("0000", noTrust, testLogger(), true)
	require.NoError(t, err)

	select {
	case <-a.Done():
		t.Fatal("done closed before any authorization")
	default:
	}

	require.Nil(t, a.AuthorizeService(device, "uuid"))
	select {
	case <-a.Done():
	default:
		t.Fatal("done not closed after authorization")
	}

	// A second authorization must not panic on the closed channel.
	require.Nil(t, a.AuthorizeService(device, "uuid"))
}

func TestDoneNilWithoutSingleShot(t *testing.T) {
	a, err := New("0000", noTrust, testLogger(), false)
	require.NoError(t, err)
	assert.Nil(t, a.Done())
}
