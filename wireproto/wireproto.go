// Package wireproto implements the PostgreSQL frontend/backend wire protocol,
// version 3: length-prefixed message framing and a typed codec for the
// frontend and backend messages the extended-query sub-protocol exchanges.
package wireproto

import "fmt"

// Message is the interface implemented by a typed wire message.
type Message interface {
	// Decode parses src, the message body (the bytes after the type byte and
	// length, if the message carries either). Decode is allowed and expected
	// to retain a reference to src after returning.
	Decode(src []byte) error

	// Encode appends the wire representation of the message, including its
	// type byte and length prefix where applicable, to dst and returns the
	// extended buffer.
	Encode(dst []byte) ([]byte, error)
}

// FrontendMessage is sent by the client.
type FrontendMessage interface {
	Message
	Frontend()
}

// BackendMessage is sent by the server.
type BackendMessage interface {
	Message
	Backend()
}

// AuthenticationResponse is a BackendMessage carried inside an
// AuthenticationRequest sub-kind.
type AuthenticationResponse interface {
	BackendMessage
	AuthenticationResponse()
}

// ProtocolError reports a malformed frame, an unexpected message type, or a
// length mismatch. It is always fatal to the session that raised it.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return "protocol error: " + e.Msg }

func newInvalidLenErr(messageType string, expected, actual int) error {
	return &ProtocolError{Msg: fmt.Sprintf("%s body must have length %d, got %d", messageType, expected, actual)}
}

func newInvalidFormatErr(messageType, detail string) error {
	return &ProtocolError{Msg: fmt.Sprintf("%s body is invalid: %s", messageType, detail)}
}

// TextFormat and BinaryFormat are the two column format codes the protocol
// allows in RowDescription, Bind's format-code lists, and DataRow.
const (
	TextFormat   = 0
	BinaryFormat = 1
)
