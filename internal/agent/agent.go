// Package agent implements the org.bluez.Agent1 pairing callbacks under a
// PIN-only policy: the agent answers every pin request with one fixed code
// and cancels the passkey and numeric-comparison flows so remote stacks fall
// back to legacy PIN pairing.
package agent

import (
	"fmt"
	"log/slog"
	"sync"

	dbus "github.com/godbus/dbus/v5"
)

// TrustFunc marks a device as trusted on the bus. Bus.SetTrusted satisfies it.
type TrustFunc func(device dbus.ObjectPath) error

// errCanceled tells bluetoothd the requested authentication mode is not
// available, which makes the remote stack retry with the PIN flow.
func errCanceled() *dbus.Error {
	return dbus.NewError("org.bluez.Error.Canceled", []interface{}{"PIN-only pairing"})
}

// Agent answers pairing callbacks. It keeps no per-device state; each
// callback is answered from its arguments and the fixed configuration alone.
type Agent struct {
	pin   string
	trust TrustFunc
	log   *slog.Logger

	done     chan struct{}
	doneOnce sync.Once
}

// New validates the pin and builds an agent. With singleShot set, the first
// successful AuthorizeService closes Done and the dispatch wait ends.
func New(pin string, trust TrustFunc, log *slog.Logger, singleShot bool) (*Agent, error) {
	if n := len(pin); n < 1 || n > 16 {
		return nil, fmt.Errorf("agent: pin must be 1-16 characters, got %d", n)
	}
	a := &Agent{pin: pin, trust: trust, log: log}
	if singleShot {
		a.done = make(chan struct{})
	}
	return a, nil
}

// Done is closed after the first successful authorization in single-shot
// mode. It is nil otherwise, which blocks forever in a select.
func (a *Agent) Done() <-chan struct{} { return a.done }

// Release is called when bluetoothd unregisters the agent.
func (a *Agent) Release() *dbus.Error {
	a.log.Info("agent released")
	return nil
}

// RequestPinCode returns the configured code for any device.
func (a *Agent) RequestPinCode(device dbus.ObjectPath) (string, *dbus.Error) {
	a.log.Info("pin code requested", "device", device)
	return a.pin, nil
}

// DisplayPinCode is observational; the remote side shows the code.
func (a *Agent) DisplayPinCode(device dbus.ObjectPath, pincode string) *dbus.Error {
	a.log.Info("display pin code", "device", device, "pincode", pincode)
	return nil
}

// RequestPasskey would start the numeric passkey flow, which this agent does
// not support.
func (a *Agent) RequestPasskey(device dbus.ObjectPath) (uint32, *dbus.Error) {
	a.log.Warn("passkey requested, canceling", "device", device)
	return 0, errCanceled()
}

// DisplayPasskey is observational during an SSP attempt.
func (a *Agent) DisplayPasskey(device dbus.ObjectPath, passkey uint32, entered uint16) *dbus.Error {
	a.log.Info("display passkey", "device", device, "passkey", passkey, "entered", entered)
	return nil
}

// RequestConfirmation would start numeric comparison, which this agent does
// not support.
func (a *Agent) RequestConfirmation(device dbus.ObjectPath, passkey uint32) *dbus.Error {
	a.log.Warn("confirmation requested, canceling", "device", device, "passkey", passkey)
	return errCanceled()
}

// RequestAuthorization accepts incoming pairing from an already-authenticated
// device.
func (a *Agent) RequestAuthorization(device dbus.ObjectPath) *dbus.Error {
	a.log.Info("authorization requested", "device", device)
	return nil
}

// AuthorizeService is called once the device has completed PIN verification.
// The device is marked trusted so future connections skip pairing; in
// single-shot mode this also ends the dispatch wait.
func (a *Agent) AuthorizeService(device dbus.ObjectPath, uuid string) *dbus.Error {
	a.log.Info("authorizing service", "device", device, "uuid", uuid)
	if err := a.trust(device); err != nil {
		a.log.Error("trust flag update failed", "device", device, "error", err)
		return dbus.MakeFailedError(err)
	}
	if a.done != nil {
		a.doneOnce.Do(func() { close(a.done) })
	}
	return nil
}

// Cancel aborts the in-flight request; nothing is pending between callbacks,
// so there is nothing to undo.
func (a *Agent) Cancel() *dbus.Error {
	a.log.Info("agent request canceled")
	return nil
}
