package hub

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected     = errors.New("hub connection is not open")
	ErrAlreadyConnected = errors.New("hub connection is open for another session")
	ErrStartInProgress  = errors.New("hub connection is already starting")
	ErrStartFailed      = errors.New("hub connection could not be started")
	ErrReconnectFailed  = errors.New("hub reconnect attempts exhausted")
	ErrConnectionClosed = errors.New("hub connection closed")
	ErrHandshake        = errors.New("hub handshake rejected")
	ErrServerTimeout    = errors.New("hub server timed out")
)

// InvocationError is returned when the hub completes an invocation with an
// error.
type InvocationError struct {
	Target  string
	Message string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("hub method %s failed: %s", e.Target, e.Message)
}

// CloseError reports a Close message sent by the server.
type CloseError struct {
	Message        string
	AllowReconnect bool
}

func (e *CloseError) Error() string {
	if e.Message == "" {
		return "hub closed the connection"
	}
	return "hub closed the connection: " + e.Message
}

func (e *CloseError) Unwrap() error { return ErrConnectionClosed }
