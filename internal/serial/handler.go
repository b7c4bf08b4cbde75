// Package serial implements the org.bluez.Profile1 handler for the serial
// port profile: it takes ownership of the RFCOMM socket descriptor
// bluetoothd transfers on NewConnection and runs a synchronous request/reply
// loop over a small text protocol.
package serial

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	dbus "github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"
)

// State of the current connection.
type State int32

const (
	StateWaiting State = iota
	StateActive
	StateClosed
)

// maxRequest bounds a single read from the descriptor.
const maxRequest = 4096

// Handler services one RFCOMM connection at a time. The descriptor is owned
// exclusively: set once on transfer, released once on disconnect, and a
// double release is a no-op.
type Handler struct {
	cmds CommandSet
	log  *slog.Logger

	mu    sync.Mutex
	conn  *os.File
	state State

	// wg tracks the serve goroutine for a clean shutdown.
	wg sync.WaitGroup
}

// NewHandler builds a handler around a command table.
func NewHandler(cmds CommandSet, log *slog.Logger) *Handler {
	return &Handler{cmds: cmds, log: log, state: StateWaiting}
}

// State returns the current connection state.
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Release is called when bluetoothd unregisters the profile.
func (h *Handler) Release() *dbus.Error {
	h.log.Info("profile released")
	return nil
}

// Cancel is observational.
func (h *Handler) Cancel() *dbus.Error {
	h.log.Info("profile request canceled")
	return nil
}

// NewConnection takes ownership of the transferred descriptor, sends the
// greeting and starts the request/reply loop. While a connection is active a
// second one is rejected and its descriptor closed immediately.
func (h *Handler) NewConnection(device dbus.ObjectPath, fd dbus.UnixFD, _ map[string]dbus.Variant) *dbus.Error {
	// Non-blocking registers the fd with the runtime poller, so closing the
	// file interrupts a blocked read instead of leaving the loop stuck.
	_ = unix.SetNonblock(int(fd), true)
	f := os.NewFile(uintptr(fd), "rfcomm")

	h.mu.Lock()
	if h.conn != nil {
		h.mu.Unlock()
		f.Close()
		h.log.Warn("rejecting second connection", "device", device)
		return dbus.NewError("org.bluez.Error.Rejected", []interface{}{"connection already active"})
	}
	h.conn = f
	h.state = StateActive
	h.mu.Unlock()

	h.log.Info("connection accepted", "device", device, "fd", int(fd))
	if _, err := f.Write([]byte(greeting)); err != nil {
		h.log.Error("greeting write failed", "device", device, "error", err)
		h.closeConn()
		return dbus.MakeFailedError(fmt.Errorf("serial: greeting: %w", err))
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.serve(f, device)
	}()
	return nil
}

// RequestDisconnection closes the descriptor if one is owned. Safe to call
// at any time, including when nothing is connected.
func (h *Handler) RequestDisconnection(device dbus.ObjectPath) *dbus.Error {
	h.log.Info("disconnection requested", "device", device)
	h.closeConn()
	return nil
}

// Close releases the descriptor and waits for the loop to finish.
func (h *Handler) Close() {
	h.closeConn()
	h.wg.Wait()
}

// closeConn releases ownership of the descriptor. Idempotent.
func (h *Handler) closeConn() {
	h.mu.Lock()
	f := h.conn
	h.conn = nil
	h.state = StateClosed
	h.mu.Unlock()
	if f != nil {
		f.Close()
	}
}

// release closes f only while it is still the owned descriptor. A serve loop
// whose connection was already ended by RequestDisconnection must not touch a
// successor connection's descriptor.
func (h *Handler) release(f *os.File) {
	h.mu.Lock()
	if h.conn != f {
		h.mu.Unlock()
		return
	}
	h.conn = nil
	h.state = StateClosed
	h.mu.Unlock()
	f.Close()
}

// serve runs the synchronous request/reply loop until the peer disconnects,
// a handler ends the session, or the descriptor becomes unusable. Replies are
// written in request order before the next read.
func (h *Handler) serve(f *os.File, device dbus.ObjectPath) {
	defer h.release(f)
	buf := make([]byte, maxRequest)
	for {
		n, err := f.Read(buf)
		if err != nil {
			h.log.Info("connection ended", "device", device, "reason", err)
			return
		}
		reply, end := h.dispatch(bytes.TrimSpace(buf[:n]))
		if _, err := f.Write(reply); err != nil {
			h.log.Error("reply write failed", "device", device, "error", err)
			return
		}
		if end {
			h.log.Info("session ended by peer request", "device", device)
			return
		}
	}
}

// dispatch maps one trimmed request to its reply. Failures inside a command
// handler are contained: they are logged, answered with an error reply, and
// the loop continues.
func (h *Handler) dispatch(req []byte) (reply []byte, end bool) {
	if len(req) == 0 {
		return []byte(replyInvalidRequest), false
	}
	word, data := splitRequest(req)
	handler, ok := h.cmds[string(word)]
	if !ok {
		h.log.Warn("unknown command", "word", string(word))
		return append([]byte(replyInvalidCommand), word...), false
	}

	out, err := h.run(handler, data)
	switch {
	case err == nil:
		if out == nil {
			return append([]byte("SUCCESS "), word...), false
		}
		return out, false
	case errors.Is(err, errEndSession):
		return append([]byte("SUCCESS "), word...), true
	case errors.Is(err, ErrInvalidData):
		return append([]byte(replyInvalidData), word...), false
	default:
		h.log.Error("command failed", "word", string(word), "error", err)
		return []byte(replyInternal), false
	}
}

// run invokes a command handler, converting a panic into an error so one bad
// request cannot take the connection down.
func (h *Handler) run(handler HandlerFunc, data []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("serial: handler panic: %v", r)
		}
	}()
	return handler(data)
}
