package wireproto

import (
	"github.com/coredrift/pgwire/internal/pgio"
)

// CopyData carries one chunk of COPY data, in either direction.
type CopyData struct {
	Data []byte
}

func (*CopyData) Backend()  {}
func (*CopyData) Frontend() {}

func (dst *CopyData) Decode(src []byte) error {
	dst.Data = src
	return nil
}

func (src *CopyData) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'd')
	dst = append(dst, src.Data...)
	return patchFrameLength(dst, lengthOffset), nil
}

// CopyDone marks the end of a COPY data stream, in either direction.
type CopyDone struct{}

func (*CopyDone) Backend()  {}
func (*CopyDone) Frontend() {}

func (dst *CopyDone) Decode(src []byte) error {
	if len(src) != 0 {
		return newInvalidLenErr("CopyDone", 0, len(src))
	}
	return nil
}

func (src *CopyDone) Encode(dst []byte) ([]byte, error) {
	dst = append(dst, 'c')
	dst = pgio.AppendInt32(dst, 4)
	return dst, nil
}

// CopyFail aborts a COPY FROM STDIN with Message as the reported cause.
type CopyFail struct {
	Message string
}

func (*CopyFail) Frontend() {}

func (dst *CopyFail) Decode(src []byte) error {
	r := NewReader(src)
	m, err := r.CString()
	if err != nil {
		return newInvalidFormatErr("CopyFail", "missing message")
	}
	dst.Message = m
	return nil
}

func (src *CopyFail) Encode(dst []byte) ([]byte, error) {
	dst, lengthOffset := appendFrameHeader(dst, 'f')
	dst = append(dst, src.Message...)
	dst = append(dst, 0)
	return patchFrameLength(dst, lengthOffset), nil
}

func decodeCopyResponse(r *Reader, messageType string) (overallFormat int8, columnFormats []int16, err error) {
	f, err := r.Uint8()
	if err != nil {
		return 0, nil, newInvalidFormatErr(messageType, "missing overall format")
	}
	overallFormat = int8(f)

	n, err := r.Uint16()
	if err != nil {
		return 0, nil, newInvalidFormatErr(messageType, "missing column count")
	}
	columnFormats = make([]int16, n)
	for i := range columnFormats {
		c, err := r.Int16()
		if err != nil {
			return 0, nil, newInvalidFormatErr(messageType, "truncated column format list")
		}
		columnFormats[i] = c
	}
	return overallFormat, columnFormats, nil
}

func encodeCopyResponse(dst []byte, typeByte byte, overallFormat int8, columnFormats []int16) []byte {
	dst, lengthOffset := appendFrameHeader(dst, typeByte)
	dst = pgio.AppendUint8(dst, uint8(overallFormat))
	dst = pgio.AppendUint16(dst, uint16(len(columnFormats)))
	for _, c := range columnFormats {
		dst = pgio.AppendInt16(dst, c)
	}
	return patchFrameLength(dst, lengthOffset)
}

// CopyInResponse announces that the backend is ready for COPY FROM STDIN
// data.
type CopyInResponse struct {
	OverallFormat     int8
	ColumnFormatCodes []int16
}

func (*CopyInResponse) Backend() {}

func (dst *CopyInResponse) Decode(src []byte) error {
	f, c, err := decodeCopyResponse(NewReader(src), "CopyInResponse")
	if err != nil {
		return err
	}
	dst.OverallFormat, dst.ColumnFormatCodes = f, c
	return nil
}

func (src *CopyInResponse) Encode(dst []byte) ([]byte, error) {
	return encodeCopyResponse(dst, 'G', src.OverallFormat, src.ColumnFormatCodes), nil
}

// CopyOutResponse announces that the backend is about to send COPY TO
// STDOUT data.
type CopyOutResponse struct {
	OverallFormat     int8
	ColumnFormatCodes []int16
}

func (*CopyOutResponse) Backend() {}

func (dst *CopyOutResponse) Decode(src []byte) error {
	f, c, err := decodeCopyResponse(NewReader(src), "CopyOutResponse")
	if err != nil {
		return err
	}
	dst.OverallFormat, dst.ColumnFormatCodes = f, c
	return nil
}

func (src *CopyOutResponse) Encode(dst []byte) ([]byte, error) {
	return encodeCopyResponse(dst, 'H', src.OverallFormat, src.ColumnFormatCodes), nil
}

// CopyBothResponse announces bidirectional COPY, used by logical
// replication streaming.
type CopyBothResponse struct {
	OverallFormat     int8
	ColumnFormatCodes []int16
}

func (*CopyBothResponse) Backend() {}

func (dst *CopyBothResponse) Decode(src []byte) error {
	f, c, err := decodeCopyResponse(NewReader(src), "CopyBothResponse")
	if err != nil {
		return err
	}
	dst.OverallFormat, dst.ColumnFormatCodes = f, c
	return nil
}

func (src *CopyBothResponse) Encode(dst []byte) ([]byte, error) {
	return encodeCopyResponse(dst, 'W', src.OverallFormat, src.ColumnFormatCodes), nil
}
