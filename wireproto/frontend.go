package wireproto

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/coredrift/pgwire/internal/pgio"
)

// Frontend drives the client side of the wire protocol: it frames and sends
// FrontendMessages and frames and decodes BackendMessages. A Frontend is not
// safe for concurrent use; the session above it serializes all access.
type Frontend struct {
	fr *frameReader
	w  io.Writer

	tracer *Tracer

	// onSend and onReceive, when set, are called after every successful
	// Send/Receive, independent of Trace's human-readable dump — the
	// session wires these to its structured Logger for the frame_sent and
	// frame_received observability events spec §6 names.
	onSend    func(FrontendMessage)
	onReceive func(BackendMessage)

	wbuf []byte

	// Backend message flyweights, reused across Receive calls the way
	// pgproto3.Frontend avoids an allocation per message.
	authenticationOk                AuthenticationOk
	authenticationCleartextPassword AuthenticationCleartextPassword
	authenticationMD5Password       AuthenticationMD5Password
	authenticationGSS               AuthenticationGSS
	authenticationGSSContinue       AuthenticationGSSContinue
	authenticationSASL              AuthenticationSASL
	authenticationSASLContinue      AuthenticationSASLContinue
	authenticationSASLFinal         AuthenticationSASLFinal
	backendKeyData                  BackendKeyData
	bindComplete                    BindComplete
	closeComplete                   CloseComplete
	commandComplete                 CommandComplete
	copyBothResponse                CopyBothResponse
	copyData                        CopyData
	copyInResponse                  CopyInResponse
	copyOutResponse                 CopyOutResponse
	copyDone                        CopyDone
	dataRow                         DataRow
	emptyQueryResponse              EmptyQueryResponse
	errorResponse                   ErrorResponse
	noData                          NoData
	noticeResponse                  NoticeResponse
	notificationResponse            NotificationResponse
	parameterDescription            ParameterDescription
	parameterStatus                 ParameterStatus
	parseComplete                   ParseComplete
	readyForQuery                   ReadyForQuery
	rowDescription                  RowDescription
	portalSuspended                 PortalSuspended

	bodyLen    int
	msgType    byte
	partialMsg bool
	authType   uint32
}

// NewFrontend creates a Frontend reading from r and writing to w.
func NewFrontend(r io.Reader, w io.Writer) *Frontend {
	return &Frontend{fr: newFrameReader(r, 0), w: w}
}

// Trace starts duplicating every sent and received message, in a compact
// human-readable form, to w.
func (f *Frontend) Trace(w io.Writer) { f.tracer = &Tracer{w: w} }

// Untrace stops tracing started by Trace.
func (f *Frontend) Untrace() { f.tracer = nil }

// OnSend registers a callback invoked with every FrontendMessage after it
// is successfully buffered by Send. Pass nil to clear it.
func (f *Frontend) OnSend(fn func(FrontendMessage)) { f.onSend = fn }

// OnReceive registers a callback invoked with every BackendMessage after
// it is successfully decoded by Receive. Pass nil to clear it.
func (f *Frontend) OnReceive(fn func(BackendMessage)) { f.onReceive = fn }

// Send buffers msg; it is not guaranteed to reach the wire until Flush.
func (f *Frontend) Send(msg FrontendMessage) error {
	var err error
	f.wbuf, err = msg.Encode(f.wbuf)
	if err != nil {
		return err
	}
	if f.tracer != nil {
		f.tracer.traceFrontend(msg)
	}
	if f.onSend != nil {
		f.onSend(msg)
	}
	return nil
}

// Flush writes any buffered messages to the backend.
func (f *Frontend) Flush() error {
	if len(f.wbuf) == 0 {
		return nil
	}

	n, err := f.w.Write(f.wbuf)

	const maxRetained = 1024
	if len(f.wbuf) > maxRetained {
		f.wbuf = make([]byte, 0, maxRetained)
	} else {
		f.wbuf = f.wbuf[:0]
	}

	if err != nil {
		return &writeError{err: err, safeToRetry: n == 0}
	}
	return nil
}

// writeError reports a transport write failure. SafeToRetry is true only
// when no bytes reached the wire, i.e. resending cannot duplicate effects.
type writeError struct {
	err         error
	safeToRetry bool
}

func (e *writeError) Error() string     { return fmt.Sprintf("write failed: %s", e.err.Error()) }
func (e *writeError) SafeToRetry() bool { return e.safeToRetry }
func (e *writeError) Unwrap() error     { return e.err }

// SendUnbufferedCopyData writes an already-encoded CopyData message
// directly to the transport, bypassing the send buffer. Used for large
// COPY payloads where copying into wbuf first would waste memory.
func (f *Frontend) SendUnbufferedCopyData(msg []byte) error {
	if err := f.Flush(); err != nil {
		return err
	}
	n, err := f.w.Write(msg)
	if err != nil {
		return &writeError{err: err, safeToRetry: n == 0}
	}
	return nil
}

// Authentication message type constants, from src/include/libpq/pqcomm.h.
const (
	AuthTypeOk                = 0
	AuthTypeCleartextPassword = 3
	AuthTypeMD5Password       = 5
	AuthTypeSCMCreds          = 6
	AuthTypeGSS               = 7
	AuthTypeGSSCont           = 8
	AuthTypeSSPI              = 9
	AuthTypeSASL              = 10
	AuthTypeSASLContinue      = 11
	AuthTypeSASLFinal         = 12
)

// Receive reads and decodes the next backend message. The returned message
// is only valid until the next call to Receive.
func (f *Frontend) Receive() (BackendMessage, error) {
	if !f.partialMsg {
		header, err := f.fr.next(5)
		if err != nil {
			return nil, translateEOF(err)
		}

		f.msgType = header[0]
		msgLength := int(binary.BigEndian.Uint32(header[1:]))
		if msgLength < 4 {
			return nil, &ProtocolError{Msg: fmt.Sprintf("invalid message length: %d", msgLength)}
		}
		f.bodyLen = msgLength - 4
		f.partialMsg = true
	}

	body, err := f.fr.next(f.bodyLen)
	if err != nil {
		return nil, translateEOF(err)
	}
	f.partialMsg = false

	var msg BackendMessage
	switch f.msgType {
	case '1':
		msg = &f.parseComplete
	case '2':
		msg = &f.bindComplete
	case '3':
		msg = &f.closeComplete
	case 'A':
		msg = &f.notificationResponse
	case 'c':
		msg = &f.copyDone
	case 'C':
		msg = &f.commandComplete
	case 'd':
		msg = &f.copyData
	case 'D':
		msg = &f.dataRow
	case 'E':
		msg = &f.errorResponse
	case 'G':
		msg = &f.copyInResponse
	case 'H':
		msg = &f.copyOutResponse
	case 'I':
		msg = &f.emptyQueryResponse
	case 'K':
		msg = &f.backendKeyData
	case 'n':
		msg = &f.noData
	case 'N':
		msg = &f.noticeResponse
	case 's':
		msg = &f.portalSuspended
	case 'S':
		msg = &f.parameterStatus
	case 't':
		msg = &f.parameterDescription
	case 'T':
		msg = &f.rowDescription
	case 'W':
		msg = &f.copyBothResponse
	case 'Z':
		msg = &f.readyForQuery
	case 'R':
		m, err := f.findAuthenticationMessage(body)
		if err != nil {
			return nil, err
		}
		msg = m
	default:
		return nil, &ProtocolError{Msg: fmt.Sprintf("unknown message type: %c", f.msgType)}
	}

	if err := msg.Decode(body); err != nil {
		return nil, err
	}

	if f.tracer != nil {
		f.tracer.traceBackend(msg)
	}
	if f.onReceive != nil {
		f.onReceive(msg)
	}

	return msg, nil
}

func (f *Frontend) findAuthenticationMessage(src []byte) (BackendMessage, error) {
	if len(src) < 4 {
		return nil, &ProtocolError{Msg: "authentication message too short"}
	}
	f.authType = binary.BigEndian.Uint32(src[:4])

	switch f.authType {
	case AuthTypeOk:
		return &f.authenticationOk, nil
	case AuthTypeCleartextPassword:
		return &f.authenticationCleartextPassword, nil
	case AuthTypeMD5Password:
		return &f.authenticationMD5Password, nil
	case AuthTypeGSS:
		return &f.authenticationGSS, nil
	case AuthTypeGSSCont:
		return &f.authenticationGSSContinue, nil
	case AuthTypeSASL:
		return &f.authenticationSASL, nil
	case AuthTypeSASLContinue:
		return &f.authenticationSASLContinue, nil
	case AuthTypeSASLFinal:
		return &f.authenticationSASLFinal, nil
	case AuthTypeSCMCreds:
		return nil, &ProtocolError{Msg: "AuthTypeSCMCreds is unimplemented"}
	case AuthTypeSSPI:
		return nil, &ProtocolError{Msg: "AuthTypeSSPI is unimplemented"}
	default:
		return nil, &ProtocolError{Msg: fmt.Sprintf("unknown authentication type: %d", f.authType)}
	}
}

// GetAuthType returns the authentication sub-type of the most recently
// received AuthenticationRequest.
func (f *Frontend) GetAuthType() uint32 { return f.authType }

func translateEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// appendFrameHeader writes a type byte and a placeholder length, returning
// the offset of the length field so the caller can patch it in once the
// body is known.
func appendFrameHeader(dst []byte, typeByte byte) (out []byte, lengthOffset int) {
	dst = append(dst, typeByte)
	lengthOffset = len(dst)
	dst = pgio.AppendInt32(dst, 0)
	return dst, lengthOffset
}

func patchFrameLength(dst []byte, lengthOffset int) []byte {
	binary.BigEndian.PutUint32(dst[lengthOffset:], uint32(len(dst)-lengthOffset))
	return dst
}
