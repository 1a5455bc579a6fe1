package wireproto

import (
	"github.com/coredrift/pgwire/internal/pgio"
)

// Parse names and parameterizes a prepared statement. An empty Name
// designates the unnamed prepared statement, which is overwritten by the
// next Parse that also omits a name.
type Parse struct {
	Name          string
	Query         string
	ParameterOIDs []uint32
}

func (*Parse) Frontend() {}

func (dst *Parse) Decode(src []byte) error {
	r := NewReader(src)
	var err error
	if dst.Name, err = r.CString(); err != nil {
		return newInvalidFormatErr("Parse", "missing name")
	}
	if dst.Query, err = r.CString(); err != nil {
		return newInvalidFormatErr("Parse", "missing query")
	}
	n, err := r.Uint16()
	if err != nil {
		return newInvalidFormatErr("Parse", "missing parameter count")
	}
	dst.ParameterOIDs = make([]uint32, n)
	for i := range dst.ParameterOIDs {
		oid, err := r.Uint32()
		if err != nil {
			return newInvalidFormatErr("Parse", "truncated parameter OID list")
		}
		dst.ParameterOIDs[i] = oid
	}
	return nil
}

func (src *Parse) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'P')
	dst = append(dst, src.Name...)
	dst = append(dst, 0)
	dst = append(dst, src.Query...)
	dst = append(dst, 0)
	dst = pgio.AppendUint16(dst, uint16(len(src.ParameterOIDs)))
	for _, oid := range src.ParameterOIDs {
		dst = pgio.AppendUint32(dst, oid)
	}
	return patchFrameLength(dst, lengthOffset), nil
}

// Bind binds parameter values to a prepared statement, creating a portal.
type Bind struct {
	DestinationPortal    string
	PreparedStatement    string
	ParameterFormatCodes []int16
	Parameters           [][]byte
	ResultFormatCodes    []int16
}

func (*Bind) Frontend() {}

func (dst *Bind) Decode(src []byte) error {
	r := NewReader(src)
	var err error
	if dst.DestinationPortal, err = r.CString(); err != nil {
		return newInvalidFormatErr("Bind", "missing portal name")
	}
	if dst.PreparedStatement, err = r.CString(); err != nil {
		return newInvalidFormatErr("Bind", "missing statement name")
	}

	pfcCount, err := r.Uint16()
	if err != nil {
		return newInvalidFormatErr("Bind", "missing parameter format code count")
	}
	dst.ParameterFormatCodes = make([]int16, pfcCount)
	for i := range dst.ParameterFormatCodes {
		c, err := r.Int16()
		if err != nil {
			return newInvalidFormatErr("Bind", "truncated parameter format codes")
		}
		dst.ParameterFormatCodes[i] = c
	}

	paramCount, err := r.Uint16()
	if err != nil {
		return newInvalidFormatErr("Bind", "missing parameter count")
	}
	dst.Parameters = make([][]byte, paramCount)
	for i := range dst.Parameters {
		n, err := r.Int32()
		if err != nil {
			return newInvalidFormatErr("Bind", "missing parameter length")
		}
		if n == -1 {
			dst.Parameters[i] = nil
			continue
		}
		v, err := r.Bytes(int(n))
		if err != nil {
			return newInvalidFormatErr("Bind", "truncated parameter value")
		}
		dst.Parameters[i] = v
	}

	rfcCount, err := r.Uint16()
	if err != nil {
		return newInvalidFormatErr("Bind", "missing result format code count")
	}
	dst.ResultFormatCodes = make([]int16, rfcCount)
	for i := range dst.ResultFormatCodes {
		c, err := r.Int16()
		if err != nil {
			return newInvalidFormatErr("Bind", "truncated result format codes")
		}
		dst.ResultFormatCodes[i] = c
	}

	return nil
}

func (src *Bind) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'B')
	dst = append(dst, src.DestinationPortal...)
	dst = append(dst, 0)
	dst = append(dst, src.PreparedStatement...)
	dst = append(dst, 0)

	dst = pgio.AppendUint16(dst, uint16(len(src.ParameterFormatCodes)))
	for _, c := range src.ParameterFormatCodes {
		dst = pgio.AppendInt16(dst, c)
	}

	dst = pgio.AppendUint16(dst, uint16(len(src.Parameters)))
	for _, p := range src.Parameters {
		if p == nil {
			dst = pgio.AppendInt32(dst, -1)
			continue
		}
		dst = pgio.AppendInt32(dst, int32(len(p)))
		dst = append(dst, p...)
	}

	dst = pgio.AppendUint16(dst, uint16(len(src.ResultFormatCodes)))
	for _, c := range src.ResultFormatCodes {
		dst = pgio.AppendInt16(dst, c)
	}

	return patchFrameLength(dst, lengthOffset), nil
}

// Describe asks for ParameterDescription and/or RowDescription for a
// prepared statement (ObjectType 'S') or portal (ObjectType 'P').
type Describe struct {
	ObjectType byte
	Name       string
}

func (*Describe) Frontend() {}

func (dst *Describe) Decode(src []byte) error {
	if len(src) < 1 {
		return newInvalidFormatErr("Describe", "missing object type")
	}
	dst.ObjectType = src[0]
	r := NewReader(src[1:])
	name, err := r.CString()
	if err != nil {
		return newInvalidFormatErr("Describe", "missing name")
	}
	dst.Name = name
	return nil
}

func (src *Describe) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'D')
	dst = append(dst, src.ObjectType)
	dst = append(dst, src.Name...)
	dst = append(dst, 0)
	return patchFrameLength(dst, lengthOffset), nil
}

// Close destroys a prepared statement (ObjectType 'S') or portal
// (ObjectType 'P').
type Close struct {
	ObjectType byte
	Name       string
}

func (*Close) Frontend() {}

func (dst *Close) Decode(src []byte) error {
	if len(src) < 1 {
		return newInvalidFormatErr("Close", "missing object type")
	}
	dst.ObjectType = src[0]
	r := NewReader(src[1:])
	name, err := r.CString()
	if err != nil {
		return newInvalidFormatErr("Close", "missing name")
	}
	dst.Name = name
	return nil
}

func (src *Close) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'C')
	dst = append(dst, src.ObjectType)
	dst = append(dst, src.Name...)
	dst = append(dst, 0)
	return patchFrameLength(dst, lengthOffset), nil
}

// Execute runs a bound portal, returning at most MaxRows result rows (0
// means no limit).
type Execute struct {
	Portal  string
	MaxRows uint32
}

func (*Execute) Frontend() {}

func (dst *Execute) Decode(src []byte) error {
	r := NewReader(src)
	portal, err := r.CString()
	if err != nil {
		return newInvalidFormatErr("Execute", "missing portal name")
	}
	dst.Portal = portal
	maxRows, err := r.Uint32()
	if err != nil {
		return newInvalidFormatErr("Execute", "missing max row count")
	}
	dst.MaxRows = maxRows
	return nil
}

func (src *Execute) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'E')
	dst = append(dst, src.Portal...)
	dst = append(dst, 0)
	dst = pgio.AppendUint32(dst, src.MaxRows)
	return patchFrameLength(dst, lengthOffset), nil
}

// Sync closes out an extended-query round trip, committing an implicit
// transaction or rolling it back to the last error.
type Sync struct{}

func (*Sync) Frontend() {}

func (dst *Sync) Decode(src []byte) error {
	if len(src) != 0 {
		return newInvalidLenErr("Sync", 0, len(src))
	}
	return nil
}

func (src *Sync) Encode(dst []byte) ([]byte, error) {
	dst = append(dst, 'S')
	dst = pgio.AppendInt32(dst, 4)
	return dst, nil
}

// Flush asks the backend to deliver any pending output without waiting for
// Sync; it does not itself close out a transaction.
type Flush struct{}

func (*Flush) Frontend() {}

func (dst *Flush) Decode(src []byte) error {
	if len(src) != 0 {
		return newInvalidLenErr("Flush", 0, len(src))
	}
	return nil
}

func (src *Flush) Encode(dst []byte) ([]byte, error) {
	dst = append(dst, 'H')
	dst = pgio.AppendInt32(dst, 4)
	return dst, nil
}

// Query runs a statement, or a semicolon-separated series of statements,
// through the simple query protocol rather than the extended one.
type Query struct {
	String string
}

func (*Query) Frontend() {}

func (dst *Query) Decode(src []byte) error {
	r := NewReader(src)
	s, err := r.CString()
	if err != nil {
		return newInvalidFormatErr("Query", "missing query text")
	}
	dst.String = s
	return nil
}

func (src *Query) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'Q')
	dst = append(dst, src.String...)
	dst = append(dst, 0)
	return patchFrameLength(dst, lengthOffset), nil
}
