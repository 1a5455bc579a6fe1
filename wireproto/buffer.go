package wireproto

import (
	"bytes"
	"encoding/binary"
)

// Reader is a cursor over the body of a single received frame. Reads past
// the end of the body fail with a ProtocolError rather than panicking.
type Reader struct {
	buf []byte
	rp  int
}

func NewReader(body []byte) *Reader {
	return &Reader{buf: body}
}

func (r *Reader) Len() int { return len(r.buf) - r.rp }

func (r *Reader) advance(n int) ([]byte, error) {
	if r.Len() < n {
		return nil, &ProtocolError{Msg: "read past end of frame"}
	}
	b := r.buf[r.rp : r.rp+n]
	r.rp += n
	return b, nil
}

func (r *Reader) Uint8() (uint8, error) {
	b, err := r.advance(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) Int16() (int16, error) {
	n, err := r.Uint16()
	return int16(n), err
}

func (r *Reader) Uint16() (uint16, error) {
	b, err := r.advance(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) Int32() (int32, error) {
	n, err := r.Uint32()
	return int32(n), err
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.advance(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *Reader) Int64() (int64, error) {
	b, err := r.advance(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// CString reads bytes up to and including the next NUL, returning the string
// without the terminator.
func (r *Reader) CString() (string, error) {
	idx := bytes.IndexByte(r.buf[r.rp:], 0)
	if idx < 0 {
		return "", &ProtocolError{Msg: "unterminated string"}
	}
	s := string(r.buf[r.rp : r.rp+idx])
	r.rp += idx + 1
	return s, nil
}

// Bytes reads exactly n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	return r.advance(n)
}
