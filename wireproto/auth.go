package wireproto

import (
	"github.com/coredrift/pgwire/internal/pgio"
)

// AuthenticationOk reports that authentication succeeded.
type AuthenticationOk struct{}

func (*AuthenticationOk) Backend()                 {}
func (*AuthenticationOk) AuthenticationResponse()   {}

func (dst *AuthenticationOk) Decode(src []byte) error {
	if len(src) != 4 {
		return newInvalidLenErr("AuthenticationOk", 4, len(src))
	}
	return nil
}

func (src *AuthenticationOk) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeOk)
	return patchFrameLength(dst, lengthOffset), nil
}

// AuthenticationCleartextPassword requests a PasswordMessage carrying the
// password in the clear.
type AuthenticationCleartextPassword struct{}

func (*AuthenticationCleartextPassword) Backend()               {}
func (*AuthenticationCleartextPassword) AuthenticationResponse() {}

func (dst *AuthenticationCleartextPassword) Decode(src []byte) error {
	if len(src) != 4 {
		return newInvalidLenErr("AuthenticationCleartextPassword", 4, len(src))
	}
	return nil
}

func (src *AuthenticationCleartextPassword) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeCleartextPassword)
	return patchFrameLength(dst, lengthOffset), nil
}

// AuthenticationMD5Password requests a PasswordMessage carrying an MD5
// digest salted with the 4 bytes in Salt.
type AuthenticationMD5Password struct {
	Salt [4]byte
}

func (*AuthenticationMD5Password) Backend()               {}
func (*AuthenticationMD5Password) AuthenticationResponse() {}

func (dst *AuthenticationMD5Password) Decode(src []byte) error {
	if len(src) != 8 {
		return newInvalidLenErr("AuthenticationMD5Password", 8, len(src))
	}
	copy(dst.Salt[:], src[4:8])
	return nil
}

func (src *AuthenticationMD5Password) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeMD5Password)
	dst = append(dst, src.Salt[:]...)
	return patchFrameLength(dst, lengthOffset), nil
}

// AuthenticationGSS requests GSSAPI authentication.
type AuthenticationGSS struct{}

func (*AuthenticationGSS) Backend()               {}
func (*AuthenticationGSS) AuthenticationResponse() {}

func (dst *AuthenticationGSS) Decode(src []byte) error {
	if len(src) != 4 {
		return newInvalidLenErr("AuthenticationGSS", 4, len(src))
	}
	return nil
}

func (src *AuthenticationGSS) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeGSS)
	return patchFrameLength(dst, lengthOffset), nil
}

// AuthenticationGSSContinue carries one leg of a multi-round GSSAPI or
// SSPI negotiation.
type AuthenticationGSSContinue struct {
	Data []byte
}

func (*AuthenticationGSSContinue) Backend()               {}
func (*AuthenticationGSSContinue) AuthenticationResponse() {}

func (dst *AuthenticationGSSContinue) Decode(src []byte) error {
	if len(src) < 4 {
		return newInvalidLenErr("AuthenticationGSSContinue", 4, len(src))
	}
	dst.Data = src[4:]
	return nil
}

func (src *AuthenticationGSSContinue) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeGSSCont)
	dst = append(dst, src.Data...)
	return patchFrameLength(dst, lengthOffset), nil
}

// AuthenticationSASL lists the SASL mechanisms the server is willing to
// negotiate, NUL-separated and terminated by an empty string.
type AuthenticationSASL struct {
	AuthMechanisms []string
}

func (*AuthenticationSASL) Backend()               {}
func (*AuthenticationSASL) AuthenticationResponse() {}

func (dst *AuthenticationSASL) Decode(src []byte) error {
	if len(src) < 4 {
		return newInvalidLenErr("AuthenticationSASL", 4, len(src))
	}

	r := NewReader(src[4:])
	dst.AuthMechanisms = nil
	for r.Len() > 0 {
		s, err := r.CString()
		if err != nil {
			return newInvalidFormatErr("AuthenticationSASL", "bad mechanism list")
		}
		if s == "" {
			break
		}
		dst.AuthMechanisms = append(dst.AuthMechanisms, s)
	}
	return nil
}

func (src *AuthenticationSASL) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeSASL)
	for _, m := range src.AuthMechanisms {
		dst = append(dst, m...)
		dst = append(dst, 0)
	}
	dst = append(dst, 0)
	return patchFrameLength(dst, lengthOffset), nil
}

// AuthenticationSASLContinue carries the server's contribution to a SASL
// exchange, e.g. a SCRAM server-first-message.
type AuthenticationSASLContinue struct {
	Data []byte
}

func (*AuthenticationSASLContinue) Backend()               {}
func (*AuthenticationSASLContinue) AuthenticationResponse() {}

func (dst *AuthenticationSASLContinue) Decode(src []byte) error {
	if len(src) < 4 {
		return newInvalidLenErr("AuthenticationSASLContinue", 4, len(src))
	}
	dst.Data = src[4:]
	return nil
}

func (src *AuthenticationSASLContinue) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeSASLContinue)
	dst = append(dst, src.Data...)
	return patchFrameLength(dst, lengthOffset), nil
}

// AuthenticationSASLFinal carries the server's final SCRAM verification
// data, sent alongside the AuthenticationOk that ends the exchange.
type AuthenticationSASLFinal struct {
	Data []byte
}

func (*AuthenticationSASLFinal) Backend()               {}
func (*AuthenticationSASLFinal) AuthenticationResponse() {}

func (dst *AuthenticationSASLFinal) Decode(src []byte) error {
	if len(src) < 4 {
		return newInvalidLenErr("AuthenticationSASLFinal", 4, len(src))
	}
	dst.Data = src[4:]
	return nil
}

func (src *AuthenticationSASLFinal) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeSASLFinal)
	dst = append(dst, src.Data...)
	return patchFrameLength(dst, lengthOffset), nil
}

// AuthenticationKerberosV5 is accepted on the wire only to be rejected:
// Frontend.findAuthenticationMessage never dispatches to it, since the
// mechanism is not implemented, but it still needs a concrete type to keep
// the AuthenticationRequest sub-kind enumeration closed. SSPI and SCM
// credential requests have no type at all and are rejected the same way.
type AuthenticationKerberosV5 struct{}

func (*AuthenticationKerberosV5) Backend()               {}
func (*AuthenticationKerberosV5) AuthenticationResponse() {}

func (dst *AuthenticationKerberosV5) Decode(src []byte) error {
	if len(src) != 4 {
		return newInvalidLenErr("AuthenticationKerberosV5", 4, len(src))
	}
	return nil
}

func (src *AuthenticationKerberosV5) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'R')
	dst = pgio.AppendUint32(dst, 2)
	return patchFrameLength(dst, lengthOffset), nil
}

// PasswordMessage carries a cleartext or MD5-hashed password in response to
// AuthenticationCleartextPassword or AuthenticationMD5Password.
type PasswordMessage struct {
	Password string
}

func (*PasswordMessage) Frontend() {}

func (dst *PasswordMessage) Decode(src []byte) error {
	idx := 0
	for idx < len(src) && src[idx] != 0 {
		idx++
	}
	dst.Password = string(src[:idx])
	return nil
}

func (src *PasswordMessage) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'p')
	dst = append(dst, src.Password...)
	dst = append(dst, 0)
	return patchFrameLength(dst, lengthOffset), nil
}

// SASLInitialResponse begins a SASL exchange, naming the chosen mechanism
// and carrying its first client message.
type SASLInitialResponse struct {
	AuthMechanism string
	Data          []byte
}

func (*SASLInitialResponse) Frontend() {}

func (dst *SASLInitialResponse) Decode(src []byte) error {
	r := NewReader(src)
	mech, err := r.CString()
	if err != nil {
		return newInvalidFormatErr("SASLInitialResponse", "missing mechanism name")
	}
	dst.AuthMechanism = mech

	n, err := r.Int32()
	if err != nil {
		return newInvalidFormatErr("SASLInitialResponse", "missing data length")
	}
	if n == -1 {
		dst.Data = nil
		return nil
	}
	data, err := r.Bytes(int(n))
	if err != nil {
		return newInvalidFormatErr("SASLInitialResponse", "data shorter than declared length")
	}
	dst.Data = data
	return nil
}

func (src *SASLInitialResponse) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'p')
	dst = append(dst, src.AuthMechanism...)
	dst = append(dst, 0)
	if src.Data == nil {
		dst = pgio.AppendInt32(dst, -1)
	} else {
		dst = pgio.AppendInt32(dst, int32(len(src.Data)))
		dst = append(dst, src.Data...)
	}
	return patchFrameLength(dst, lengthOffset), nil
}

// SASLResponse carries a subsequent client message in a SASL exchange.
type SASLResponse struct {
	Data []byte
}

func (*SASLResponse) Frontend() {}

func (dst *SASLResponse) Decode(src []byte) error {
	dst.Data = src
	return nil
}

func (src *SASLResponse) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'p')
	dst = append(dst, src.Data...)
	return patchFrameLength(dst, lengthOffset), nil
}
