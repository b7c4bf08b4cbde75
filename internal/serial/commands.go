package serial

import (
	"bytes"
	"errors"
)

// Wire tokens and fixed reply templates for the RFCOMM text protocol.
const (
	greeting = "WAITING"

	replyInvalidRequest = "ERROR Invalid request"
	replyInvalidCommand = "ERROR Invalid command "
	replyInvalidData    = "ERROR Invalid data for "
	replyInternal       = "ERROR Request processing failed"
)

// errEndSession is the sentinel a command handler returns to end the session
// gracefully. The reply is still written before the loop exits.
var errEndSession = errors.New("serial: end of session")

// ErrInvalidData marks a payload the command cannot accept. The peer gets the
// fixed invalid-data reply and the loop continues.
var ErrInvalidData = errors.New("serial: invalid data")

// HandlerFunc processes one request. A nil reply with a nil error means the
// default success reply (SUCCESS <WORD>); a non-nil reply is sent verbatim.
type HandlerFunc func(data []byte) (reply []byte, err error)

// CommandSet maps command words to handlers.
type CommandSet map[string]HandlerFunc

// DefaultCommands returns the built-in command table.
func DefaultCommands() CommandSet {
	return CommandSet{
		"PING": func([]byte) ([]byte, error) { return nil, nil },
		"ECHO": func(data []byte) ([]byte, error) {
			if len(data) == 0 {
				return nil, ErrInvalidData
			}
			return data, nil
		},
		"QUIT": func([]byte) ([]byte, error) { return nil, errEndSession },
	}
}

// splitRequest divides a trimmed request into the command word and optional
// data on the first whitespace run.
func splitRequest(req []byte) (word, data []byte) {
	i := bytes.IndexAny(req, " \t\r\n")
	if i < 0 {
		return req, nil
	}
	return req[:i], bytes.TrimLeft(req[i:], " \t\r\n")
}
