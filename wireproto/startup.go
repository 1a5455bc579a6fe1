package wireproto

import (
	"encoding/binary"
	"sort"

	"github.com/coredrift/pgwire/internal/pgio"
)

// ProtocolVersionNumber is protocol version 3.0, the only version this
// module speaks.
const ProtocolVersionNumber = 196608

const (
	sslRequestCode    = 80877103
	cancelRequestCode = 80877102
)

// StartupMessage is the first frontend message of a connection (after an
// optional SSLRequest). Unlike every other frontend message it has no type
// byte, only a length prefix.
type StartupMessage struct {
	ProtocolVersion uint32
	Parameters      map[string]string
}

func (*StartupMessage) Frontend() {}

func (dst *StartupMessage) Decode(src []byte) error {
	if len(src) < 4 {
		return newInvalidLenErr("StartupMessage", 4, len(src))
	}

	dst.ProtocolVersion = binary.BigEndian.Uint32(src)
	dst.Parameters = make(map[string]string)

	r := NewReader(src[4:])
	for r.Len() > 0 {
		key, err := r.CString()
		if err != nil {
			return newInvalidFormatErr("StartupMessage", "bad parameter key")
		}
		if key == "" {
			break
		}
		value, err := r.CString()
		if err != nil {
			return newInvalidFormatErr("StartupMessage", "bad parameter value")
		}
		dst.Parameters[key] = value
	}

	return nil
}

func (src *StartupMessage) Encode(dst []byte) ([]byte, error) {
	lengthOffset := len(dst)
	dst = pgio.AppendInt32(dst, 0)
	dst = pgio.AppendUint32(dst, src.ProtocolVersion)

	// Stable order keeps wire output, and therefore tests and traces,
	// deterministic across runs.
	keys := make([]string, 0, len(src.Parameters))
	for k := range src.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		dst = append(dst, k...)
		dst = append(dst, 0)
		dst = append(dst, src.Parameters[k]...)
		dst = append(dst, 0)
	}
	dst = append(dst, 0)

	binary.BigEndian.PutUint32(dst[lengthOffset:], uint32(len(dst)-lengthOffset))
	return dst, nil
}

// SSLRequest is sent, also with no type byte, before StartupMessage when TLS
// is requested. The server answers with a single byte: 'S' to proceed with
// TLS, 'N' to continue in cleartext.
type SSLRequest struct{}

func (*SSLRequest) Frontend() {}

func (dst *SSLRequest) Decode(src []byte) error {
	if len(src) != 0 {
		return newInvalidLenErr("SSLRequest", 0, len(src))
	}
	return nil
}

func (src *SSLRequest) Encode(dst []byte) ([]byte, error) {
	dst = pgio.AppendInt32(dst, 8)
	dst = pgio.AppendInt32(dst, sslRequestCode)
	return dst, nil
}

// CancelRequest is sent over a fresh connection to ask the backend to
// interrupt a statement in progress on another connection it issued
// BackendKeyData for.
type CancelRequest struct {
	ProcessID uint32
	SecretKey uint32
}

func (*CancelRequest) Frontend() {}

func (dst *CancelRequest) Decode(src []byte) error {
	if len(src) != 8 {
		return newInvalidLenErr("CancelRequest", 8, len(src))
	}
	dst.ProcessID = binary.BigEndian.Uint32(src)
	dst.SecretKey = binary.BigEndian.Uint32(src[4:])
	return nil
}

func (src *CancelRequest) Encode(dst []byte) ([]byte, error) {
	dst = pgio.AppendInt32(dst, 16)
	dst = pgio.AppendInt32(dst, cancelRequestCode)
	dst = pgio.AppendUint32(dst, src.ProcessID)
	dst = pgio.AppendUint32(dst, src.SecretKey)
	return dst, nil
}

// Terminate politely closes a session; no response is expected.
type Terminate struct{}

func (*Terminate) Frontend() {}

func (dst *Terminate) Decode(src []byte) error {
	if len(src) != 0 {
		return newInvalidLenErr("Terminate", 0, len(src))
	}
	return nil
}

func (src *Terminate) Encode(dst []byte) ([]byte, error) {
	dst = append(dst, 'X')
	dst = pgio.AppendInt32(dst, 4)
	return dst, nil
}
