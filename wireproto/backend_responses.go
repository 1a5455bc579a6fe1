package wireproto

import (
	"github.com/coredrift/pgwire/internal/pgio"
)

// decodeEmpty and encodeEmpty handle the "empty body" shape shared by the
// zero-field acknowledgement messages.
func decodeEmpty(messageType string, src []byte) error {
	if len(src) != 0 {
		return newInvalidLenErr(messageType, 0, len(src))
	}
	return nil
}

func encodeEmpty(dst []byte, typeByte byte) ([]byte, error) {
	dst = append(dst, typeByte)
	dst = pgio.AppendInt32(dst, 4)
	return dst, nil
}

// ParseComplete acknowledges a Parse.
type ParseComplete struct{}

func (*ParseComplete) Backend()                      {}
func (dst *ParseComplete) Decode(src []byte) error    { return decodeEmpty("ParseComplete", src) }
func (src *ParseComplete) Encode(dst []byte) ([]byte, error) { return encodeEmpty(dst, '1') }

// BindComplete acknowledges a Bind.
type BindComplete struct{}

func (*BindComplete) Backend()                      {}
func (dst *BindComplete) Decode(src []byte) error    { return decodeEmpty("BindComplete", src) }
func (src *BindComplete) Encode(dst []byte) ([]byte, error) { return encodeEmpty(dst, '2') }

// CloseComplete acknowledges a Close.
type CloseComplete struct{}

func (*CloseComplete) Backend()                      {}
func (dst *CloseComplete) Decode(src []byte) error    { return decodeEmpty("CloseComplete", src) }
func (src *CloseComplete) Encode(dst []byte) ([]byte, error) { return encodeEmpty(dst, '3') }

// NoData reports that Describe targeted a statement or portal producing no
// result rows.
type NoData struct{}

func (*NoData) Backend()                      {}
func (dst *NoData) Decode(src []byte) error    { return decodeEmpty("NoData", src) }
func (src *NoData) Encode(dst []byte) ([]byte, error) { return encodeEmpty(dst, 'n') }

// EmptyQueryResponse reports that a Query or simple-query string contained
// no statement at all.
type EmptyQueryResponse struct{}

func (*EmptyQueryResponse) Backend() {}
func (dst *EmptyQueryResponse) Decode(src []byte) error {
	return decodeEmpty("EmptyQueryResponse", src)
}
func (src *EmptyQueryResponse) Encode(dst []byte) ([]byte, error) { return encodeEmpty(dst, 'I') }

// PortalSuspended reports that Execute stopped after reaching its MaxRows
// limit with more rows left to deliver.
type PortalSuspended struct{}

func (*PortalSuspended) Backend() {}
func (dst *PortalSuspended) Decode(src []byte) error {
	return decodeEmpty("PortalSuspended", src)
}
func (src *PortalSuspended) Encode(dst []byte) ([]byte, error) { return encodeEmpty(dst, 's') }

// BackendKeyData carries the process ID and secret key a later session can
// use in a CancelRequest to interrupt this one.
type BackendKeyData struct {
	ProcessID uint32
	SecretKey uint32
}

func (*BackendKeyData) Backend() {}

func (dst *BackendKeyData) Decode(src []byte) error {
	if len(src) != 8 {
		return newInvalidLenErr("BackendKeyData", 8, len(src))
	}
	r := NewReader(src)
	dst.ProcessID, _ = r.Uint32()
	dst.SecretKey, _ = r.Uint32()
	return nil
}

func (src *BackendKeyData) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'K')
	dst = pgio.AppendUint32(dst, src.ProcessID)
	dst = pgio.AppendUint32(dst, src.SecretKey)
	return patchFrameLength(dst, lengthOffset), nil
}

// ParameterStatus reports the server-side value of a run-time parameter,
// sent at startup and whenever the parameter changes (e.g. TimeZone).
type ParameterStatus struct {
	Name  string
	Value string
}

func (*ParameterStatus) Backend() {}

func (dst *ParameterStatus) Decode(src []byte) error {
	r := NewReader(src)
	name, err := r.CString()
	if err != nil {
		return newInvalidFormatErr("ParameterStatus", "missing name")
	}
	value, err := r.CString()
	if err != nil {
		return newInvalidFormatErr("ParameterStatus", "missing value")
	}
	dst.Name, dst.Value = name, value
	return nil
}

func (src *ParameterStatus) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'S')
	dst = append(dst, src.Name...)
	dst = append(dst, 0)
	dst = append(dst, src.Value...)
	dst = append(dst, 0)
	return patchFrameLength(dst, lengthOffset), nil
}

// ReadyForQuery marks the backend idle and ready to accept the next query
// or extended-query round trip. TxStatus is 'I' (idle), 'T' (in a
// transaction block), or 'E' (in a failed transaction block).
type ReadyForQuery struct {
	TxStatus byte
}

func (*ReadyForQuery) Backend() {}

func (dst *ReadyForQuery) Decode(src []byte) error {
	if len(src) != 1 {
		return newInvalidLenErr("ReadyForQuery", 1, len(src))
	}
	dst.TxStatus = src[0]
	return nil
}

func (src *ReadyForQuery) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'Z')
	dst = append(dst, src.TxStatus)
	return patchFrameLength(dst, lengthOffset), nil
}

// CommandComplete reports the tag of a completed command, e.g.
// "UPDATE 3" or "SELECT 10".
type CommandComplete struct {
	CommandTag []byte
}

func (*CommandComplete) Backend() {}

func (dst *CommandComplete) Decode(src []byte) error {
	r := NewReader(src)
	tag, err := r.CString()
	if err != nil {
		return newInvalidFormatErr("CommandComplete", "missing command tag")
	}
	dst.CommandTag = []byte(tag)
	return nil
}

func (src *CommandComplete) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'C')
	dst = append(dst, src.CommandTag...)
	dst = append(dst, 0)
	return patchFrameLength(dst, lengthOffset), nil
}

// ParameterDescription lists the OIDs of a prepared statement's
// parameters, in response to Describe('S', ...).
type ParameterDescription struct {
	ParameterOIDs []uint32
}

func (*ParameterDescription) Backend() {}

func (dst *ParameterDescription) Decode(src []byte) error {
	r := NewReader(src)
	n, err := r.Uint16()
	if err != nil {
		return newInvalidFormatErr("ParameterDescription", "missing parameter count")
	}
	dst.ParameterOIDs = make([]uint32, n)
	for i := range dst.ParameterOIDs {
		oid, err := r.Uint32()
		if err != nil {
			return newInvalidFormatErr("ParameterDescription", "truncated OID list")
		}
		dst.ParameterOIDs[i] = oid
	}
	return nil
}

func (src *ParameterDescription) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 't')
	dst = pgio.AppendUint16(dst, uint16(len(src.ParameterOIDs)))
	for _, oid := range src.ParameterOIDs {
		dst = pgio.AppendUint32(dst, oid)
	}
	return patchFrameLength(dst, lengthOffset), nil
}

// FieldDescription describes one column of a RowDescription.
type FieldDescription struct {
	Name                 []byte
	TableOID             uint32
	TableAttributeNumber  uint16
	DataTypeOID          uint32
	DataTypeSize         int16
	TypeModifier         int32
	Format               int16
}

// RowDescription describes the columns of the rows a query will return, in
// response to Describe('P', ...) or as the first message before a result
// set's DataRows.
type RowDescription struct {
	Fields []FieldDescription
}

func (*RowDescription) Backend() {}

func (dst *RowDescription) Decode(src []byte) error {
	r := NewReader(src)
	n, err := r.Uint16()
	if err != nil {
		return newInvalidFormatErr("RowDescription", "missing field count")
	}
	dst.Fields = make([]FieldDescription, n)
	for i := range dst.Fields {
		f := &dst.Fields[i]
		name, err := r.CString()
		if err != nil {
			return newInvalidFormatErr("RowDescription", "missing field name")
		}
		f.Name = []byte(name)

		if f.TableOID, err = r.Uint32(); err != nil {
			return newInvalidFormatErr("RowDescription", "missing table OID")
		}
		if f.TableAttributeNumber, err = r.Uint16(); err != nil {
			return newInvalidFormatErr("RowDescription", "missing table attribute number")
		}
		if f.DataTypeOID, err = r.Uint32(); err != nil {
			return newInvalidFormatErr("RowDescription", "missing data type OID")
		}
		if f.DataTypeSize, err = r.Int16(); err != nil {
			return newInvalidFormatErr("RowDescription", "missing data type size")
		}
		if f.TypeModifier, err = r.Int32(); err != nil {
			return newInvalidFormatErr("RowDescription", "missing type modifier")
		}
		if f.Format, err = r.Int16(); err != nil {
			return newInvalidFormatErr("RowDescription", "missing format code")
		}
	}
	return nil
}

func (src *RowDescription) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'T')
	dst = pgio.AppendUint16(dst, uint16(len(src.Fields)))
	for _, f := range src.Fields {
		dst = append(dst, f.Name...)
		dst = append(dst, 0)
		dst = pgio.AppendUint32(dst, f.TableOID)
		dst = pgio.AppendUint16(dst, f.TableAttributeNumber)
		dst = pgio.AppendUint32(dst, f.DataTypeOID)
		dst = pgio.AppendInt16(dst, f.DataTypeSize)
		dst = pgio.AppendInt32(dst, f.TypeModifier)
		dst = pgio.AppendInt16(dst, f.Format)
	}
	return patchFrameLength(dst, lengthOffset), nil
}

// DataRow carries one result row. A nil element means SQL NULL; a non-nil
// zero-length element means an empty (but non-null) value.
type DataRow struct {
	Values [][]byte
}

func (*DataRow) Backend() {}

func (dst *DataRow) Decode(src []byte) error {
	r := NewReader(src)
	n, err := r.Uint16()
	if err != nil {
		return newInvalidFormatErr("DataRow", "missing column count")
	}
	dst.Values = make([][]byte, n)
	for i := range dst.Values {
		l, err := r.Int32()
		if err != nil {
			return newInvalidFormatErr("DataRow", "missing column length")
		}
		if l == -1 {
			dst.Values[i] = nil
			continue
		}
		v, err := r.Bytes(int(l))
		if err != nil {
			return newInvalidFormatErr("DataRow", "truncated column value")
		}
		dst.Values[i] = v
	}
	return nil
}

func (src *DataRow) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'D')
	dst = pgio.AppendUint16(dst, uint16(len(src.Values)))
	for _, v := range src.Values {
		if v == nil {
			dst = pgio.AppendInt32(dst, -1)
			continue
		}
		dst = pgio.AppendInt32(dst, int32(len(v)))
		dst = append(dst, v...)
	}
	return patchFrameLength(dst, lengthOffset), nil
}

// NotificationResponse delivers a NOTIFY payload to a listening session.
type NotificationResponse struct {
	PID     uint32
	Channel string
	Payload string
}

func (*NotificationResponse) Backend() {}

func (dst *NotificationResponse) Decode(src []byte) error {
	r := NewReader(src)
	pid, err := r.Uint32()
	if err != nil {
		return newInvalidFormatErr("NotificationResponse", "missing PID")
	}
	channel, err := r.CString()
	if err != nil {
		return newInvalidFormatErr("NotificationResponse", "missing channel")
	}
	payload, err := r.CString()
	if err != nil {
		return newInvalidFormatErr("NotificationResponse", "missing payload")
	}
	dst.PID, dst.Channel, dst.Payload = pid, channel, payload
	return nil
}

func (src *NotificationResponse) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'A')
	dst = pgio.AppendUint32(dst, src.PID)
	dst = append(dst, src.Channel...)
	dst = append(dst, 0)
	dst = append(dst, src.Payload...)
	dst = append(dst, 0)
	return patchFrameLength(dst, lengthOffset), nil
}
