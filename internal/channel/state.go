package channel

import "time"

// State is the connection lifecycle state of one namespace.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateError        State = "error"
)

// Live reports whether the state holds (or is acquiring) an underlying
// connection.
func (s State) Live() bool {
	return s == StateConnecting || s == StateConnected || s == StateReconnecting
}

// Status is a point-in-time snapshot of a connection's state machine.
type Status struct {
	Namespace      string
	State          State
	Attempts       int
	LastError      error
	LastConnected  time.Time
	LastDisconnect time.Time
}
