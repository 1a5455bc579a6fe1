// Package wiretest is a scripted PostgreSQL backend for exercising a
// Session without a real server, grounded on the teacher's pgmock: a
// Script of Steps driven against one accepted connection.
package wiretest

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"reflect"

	"github.com/coredrift/pgwire/wireproto"
)

// Backend is the scripted side of one connection: it reads frontend
// messages and writes backend messages directly over conn, without a
// Frontend/Session on this side.
type Backend struct {
	conn net.Conn
}

func NewBackend(conn net.Conn) *Backend {
	return &Backend{conn: conn}
}

// ReceiveStartup reads the very first frame, which has no type byte, and
// decodes it as either an SSLRequest or a StartupMessage based on length.
func (b *Backend) ReceiveStartup() (any, error) {
	head := make([]byte, 4)
	if _, err := io.ReadFull(b.conn, head); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(head)
	body := make([]byte, length-4)
	if _, err := io.ReadFull(b.conn, body); err != nil {
		return nil, err
	}

	const sslRequestCode = 80877103
	if length == 8 && binary.BigEndian.Uint32(body) == sslRequestCode {
		return &wireproto.SSLRequest{}, nil
	}

	msg := &wireproto.StartupMessage{}
	if err := msg.Decode(body); err != nil {
		return nil, err
	}
	return msg, nil
}

// RejectSSL answers an SSLRequest by declining TLS, the common case for
// tests that do not exercise the TLS path.
func (b *Backend) RejectSSL() error {
	_, err := b.conn.Write([]byte{'N'})
	return err
}

// AcceptSSL answers an SSLRequest by agreeing to TLS. Tests that need this
// must themselves wrap conn in a *tls.Conn server side afterward.
func (b *Backend) AcceptSSL() error {
	_, err := b.conn.Write([]byte{'S'})
	return err
}

// Send frames and writes one backend message.
func (b *Backend) Send(msg wireproto.BackendMessage) error {
	buf, err := msg.(interface {
		Encode(dst []byte) ([]byte, error)
	}).Encode(nil)
	if err != nil {
		return err
	}
	_, err = b.conn.Write(buf)
	return err
}

// frame is one raw type-byte-plus-body frontend message. Unlike backend
// messages, the frontend's 'p' byte is shared by PasswordMessage,
// SASLInitialResponse, and SASLResponse — disambiguated only by protocol
// state, the same way a real backend does it. So a frame decodes itself
// into whatever concrete type the caller expects, rather than picking a
// type off the wire byte alone.
type frame struct {
	typeByte byte
	body     []byte
}

// TypeByte returns the frame's leading type byte, e.g. 'd' for CopyData.
func (f frame) TypeByte() byte { return f.typeByte }

// Body returns the frame's undecoded payload.
func (f frame) Body() []byte { return f.body }

// ReceiveFrame reads one framed frontend message without decoding it.
func (b *Backend) ReceiveFrame() (frame, error) {
	head := make([]byte, 5)
	if _, err := io.ReadFull(b.conn, head); err != nil {
		return frame{}, err
	}
	length := binary.BigEndian.Uint32(head[1:])
	body := make([]byte, length-4)
	if _, err := io.ReadFull(b.conn, body); err != nil {
		return frame{}, err
	}
	return frame{typeByte: head[0], body: body}, nil
}

// Step is one action a Script drives against a Backend: send a fixed
// response, or assert on the next received frontend message.
type Step interface {
	Run(b *Backend) error
}

// Script is an ordered sequence of Steps, run to completion by Serve.
type Script struct {
	Steps []Step
}

func (s *Script) Serve(b *Backend) error {
	for i, step := range s.Steps {
		if err := step.Run(b); err != nil {
			return fmt.Errorf("wiretest: step %d: %w", i, err)
		}
	}
	return nil
}

type sendStep struct{ msg wireproto.BackendMessage }

// SendStep returns a Step that writes msg to the connection.
func SendStep(msg wireproto.BackendMessage) Step { return &sendStep{msg: msg} }

func (s *sendStep) Run(b *Backend) error { return b.Send(s.msg) }

type expectStep struct {
	want any
	any  bool
}

// ExpectStep returns a Step that reads the next frontend message and
// requires it to deep-equal want.
func ExpectStep(want any) Step { return &expectStep{want: want} }

// ExpectTypeStep returns a Step that reads the next frontend message and
// only checks its type, ignoring field values (useful for Sync/Flush or
// messages whose exact bytes the test does not care about).
func ExpectTypeStep(want any) Step { return &expectStep{want: want, any: true} }

func (e *expectStep) Run(b *Backend) error {
	fr, err := b.ReceiveFrame()
	if err != nil {
		return err
	}

	wantType := reflect.TypeOf(e.want)
	got := reflect.New(wantType.Elem()).Interface()
	decoder, ok := got.(interface{ Decode(src []byte) error })
	if !ok {
		return fmt.Errorf("%T does not implement Decode", got)
	}
	if err := decoder.Decode(fr.body); err != nil {
		return fmt.Errorf("decoding %T: %w", got, err)
	}

	if e.any {
		return nil
	}
	if !reflect.DeepEqual(got, e.want) {
		return fmt.Errorf("got %#v, want %#v", got, e.want)
	}
	return nil
}

// funcStep adapts an arbitrary function to Step, for scripted behavior
// that plain send/expect can't express (conditional responses, closing the
// connection mid-script, etc).
type funcStep struct{ fn func(b *Backend) error }

func FuncStep(fn func(b *Backend) error) Step { return &funcStep{fn: fn} }

func (s *funcStep) Run(b *Backend) error { return s.fn(b) }

// Listen starts a TCP listener bound to an ephemeral port on localhost,
// suitable for a Config's Host/Port in a test.
func Listen() (net.Listener, error) {
	return net.Listen("tcp", "127.0.0.1:0")
}

// ServeOne accepts a single connection from ln and runs script against it,
// closing the connection when done.
func ServeOne(ln net.Listener, script *Script) error {
	conn, err := ln.Accept()
	if err != nil {
		return err
	}
	defer conn.Close()
	return script.Serve(NewBackend(conn))
}
