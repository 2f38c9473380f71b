package duplex

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned for operations on a facade whose connections
	// have already been released by DisconnectAll.
	ErrClosed = errors.New("duplex: connections are closed")
	// ErrManagerClosed is returned by a Manager after Shutdown; a manager
	// is terminal and never redials.
	ErrManagerClosed = errors.New("duplex: manager is shut down")
	// ErrNilConnection is returned when the facade is constructed without
	// a main connection.
	ErrNilConnection = errors.New("duplex: main connection must not be nil")
	// ErrEmptyBatch is returned by RunTransaction for an empty request list.
	ErrEmptyBatch = errors.New("duplex: transaction batch is empty")
)

// OpError wraps an error returned by an underlying connection, adding the
// entity and method that produced it and the connection role that served it.
type OpError struct {
	Entity string
	Method Method
	Role   Role
	Err    error
}

// Error keeps the underlying message first so existing matching on driver
// error text keeps working, and appends the invocation context.
func (operr *OpError) Error() string {
	return fmt.Sprintf("%s: in %s() for entity %q on %s connection",
		operr.Err.Error(), operr.Method, operr.Entity, operr.Role)
}

func (operr *OpError) Unwrap() error {
	return operr.Err
}

// ConfigError is a fatal startup-time configuration failure. The process
// must not proceed to connection construction after seeing one.
type ConfigError struct {
	Field  string
	Reason string
}

func (cfgerr *ConfigError) Error() string {
	return fmt.Sprintf("duplex: invalid configuration: %s: %s", cfgerr.Field, cfgerr.Reason)
}
