package pgwire

import (
	"fmt"

	"github.com/coredrift/pgwire/wireproto"
)

// ProtocolError is re-exported from wireproto so callers working only
// against the pgwire package never need to import it directly.
type ProtocolError = wireproto.ProtocolError

// AuthError reports a SCRAM step failure, server verifier mismatch, or
// unsupported/absent SASL mechanism. It is always fatal to the session.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pgwire: authentication failed: %s: %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("pgwire: authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ConnectionLostError reports that the transport failed or was closed
// mid-session: a read hit EOF, or a read or write returned an error.
type ConnectionLostError struct {
	Err error
}

func (e *ConnectionLostError) Error() string {
	return fmt.Sprintf("pgwire: connection lost: %s", e.Err)
}

func (e *ConnectionLostError) Unwrap() error { return e.Err }

// ServerError wraps a parsed ErrorResponse from the backend.
type ServerError struct {
	Severity string
	Code     string
	Message  string
	Detail   string
	Hint     string

	Fields map[byte]string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("pgwire: server error %s (%s): %s: %s", e.Code, e.Severity, e.Message, e.Detail)
	}
	return fmt.Sprintf("pgwire: server error %s (%s): %s", e.Code, e.Severity, e.Message)
}

// TransactionAbortedError reports that a statement was attempted inside a
// transaction block already aborted by an earlier error.
type TransactionAbortedError struct{}

func (*TransactionAbortedError) Error() string {
	return "pgwire: current transaction is aborted, commands ignored until end of transaction block"
}

// TimeoutError reports that a query or connect deadline elapsed.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("pgwire: timeout: %s", e.Err) }
func (e *TimeoutError) Unwrap() error { return e.Err }

// UnsupportedTypeError reports that a parameter or result column's OID has
// no registered Codec and no raw-text fallback was acceptable (e.g.
// binding a Go type the registry cannot encode).
type UnsupportedTypeError struct {
	OID uint32
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("pgwire: unsupported type OID %d", e.OID)
}

// PoolExhaustedError wraps any error Pool.Acquire gets from the underlying
// resource pool: its context ending while it waits for a connection, a
// closed pool, or a failure to open a new connection.
type PoolExhaustedError struct {
	Err error
}

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("pgwire: pool exhausted: %s", e.Err)
}

func (e *PoolExhaustedError) Unwrap() error { return e.Err }
