package sqltypes

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Bool, Int2, Int4, Int8, Float4 and Float8 are the nullable wrapper types
// Codec.Decode* return instead of a bare Go scalar. Decoded values always
// have Valid set: a SQL NULL never reaches a Codec, and
// Registry.DecodeValue returns nil for it.
type Bool struct {
	Bool  bool
	Valid bool
}

type Int2 struct {
	Int16 int16
	Valid bool
}

type Int4 struct {
	Int32 int32
	Valid bool
}

type Int8 struct {
	Int64 int64
	Valid bool
}

type Float4 struct {
	Float32 float32
	Valid bool
}

type Float8 struct {
	Float64 float64
	Valid bool
}

// BoolCodec implements Codec for BoolOID.
type BoolCodec struct{}

func (BoolCodec) DecodeText(src []byte) (any, error) {
	switch string(src) {
	case "t":
		return Bool{Bool: true, Valid: true}, nil
	case "f":
		return Bool{Bool: false, Valid: true}, nil
	default:
		return nil, fmt.Errorf("sqltypes: invalid bool text %q", src)
	}
}

func (BoolCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	b, err := asBool(value)
	if err != nil {
		return nil, err
	}
	if b {
		return append(dst, 't'), nil
	}
	return append(dst, 'f'), nil
}

func (BoolCodec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 1 {
		return nil, fmt.Errorf("sqltypes: invalid bool binary length %d", len(src))
	}
	return Bool{Bool: src[0] != 0, Valid: true}, nil
}

func (BoolCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	b, err := asBool(value)
	if err != nil {
		return nil, err
	}
	if b {
		return append(dst, 1), nil
	}
	return append(dst, 0), nil
}

func asBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case Bool:
		return v.Bool, nil
	default:
		return false, fmt.Errorf("sqltypes: cannot encode %T as bool", value)
	}
}

// Int2Codec implements Codec for Int2OID.
type Int2Codec struct{}

func (Int2Codec) DecodeText(src []byte) (any, error) {
	n, err := strconv.ParseInt(string(src), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid int2 text %q: %w", src, err)
	}
	return Int2{Int16: int16(n), Valid: true}, nil
}

func (Int2Codec) EncodeText(dst []byte, value any) ([]byte, error) {
	n, err := asInt64(value)
	if err != nil {
		return nil, err
	}
	return strconv.AppendInt(dst, n, 10), nil
}

func (Int2Codec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 2 {
		return nil, fmt.Errorf("sqltypes: invalid int2 binary length %d", len(src))
	}
	return Int2{Int16: int16(binary.BigEndian.Uint16(src)), Valid: true}, nil
}

func (Int2Codec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	n, err := asInt64(value)
	if err != nil {
		return nil, err
	}
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(int16(n)))
	return append(dst, buf[:]...), nil
}

// Int4Codec implements Codec for Int4OID.
type Int4Codec struct{}

func (Int4Codec) DecodeText(src []byte) (any, error) {
	n, err := strconv.ParseInt(string(src), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid int4 text %q: %w", src, err)
	}
	return Int4{Int32: int32(n), Valid: true}, nil
}

func (Int4Codec) EncodeText(dst []byte, value any) ([]byte, error) {
	n, err := asInt64(value)
	if err != nil {
		return nil, err
	}
	return strconv.AppendInt(dst, n, 10), nil
}

func (Int4Codec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 4 {
		return nil, fmt.Errorf("sqltypes: invalid int4 binary length %d", len(src))
	}
	return Int4{Int32: int32(binary.BigEndian.Uint32(src)), Valid: true}, nil
}

func (Int4Codec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	n, err := asInt64(value)
	if err != nil {
		return nil, err
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(int32(n)))
	return append(dst, buf[:]...), nil
}

// Int8Codec implements Codec for Int8OID.
type Int8Codec struct{}

func (Int8Codec) DecodeText(src []byte) (any, error) {
	n, err := strconv.ParseInt(string(src), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid int8 text %q: %w", src, err)
	}
	return Int8{Int64: n, Valid: true}, nil
}

func (Int8Codec) EncodeText(dst []byte, value any) ([]byte, error) {
	n, err := asInt64(value)
	if err != nil {
		return nil, err
	}
	return strconv.AppendInt(dst, n, 10), nil
}

func (Int8Codec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 8 {
		return nil, fmt.Errorf("sqltypes: invalid int8 binary length %d", len(src))
	}
	return Int8{Int64: int64(binary.BigEndian.Uint64(src)), Valid: true}, nil
}

func (Int8Codec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	n, err := asInt64(value)
	if err != nil {
		return nil, err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	return append(dst, buf[:]...), nil
}

func asInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case Int2:
		return int64(v.Int16), nil
	case Int4:
		return int64(v.Int32), nil
	case Int8:
		return v.Int64, nil
	default:
		return 0, fmt.Errorf("sqltypes: cannot encode %T as an integer", value)
	}
}

// Float4Codec implements Codec for Float4OID.
type Float4Codec struct{}

func (Float4Codec) DecodeText(src []byte) (any, error) {
	f, err := strconv.ParseFloat(string(src), 32)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid float4 text %q: %w", src, err)
	}
	return Float4{Float32: float32(f), Valid: true}, nil
}

func (Float4Codec) EncodeText(dst []byte, value any) ([]byte, error) {
	f, err := asFloat64(value)
	if err != nil {
		return nil, err
	}
	return strconv.AppendFloat(dst, f, 'g', -1, 32), nil
}

func (Float4Codec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 4 {
		return nil, fmt.Errorf("sqltypes: invalid float4 binary length %d", len(src))
	}
	bits := binary.BigEndian.Uint32(src)
	return Float4{Float32: math.Float32frombits(bits), Valid: true}, nil
}

func (Float4Codec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	f, err := asFloat64(value)
	if err != nil {
		return nil, err
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], math.Float32bits(float32(f)))
	return append(dst, buf[:]...), nil
}

// Float8Codec implements Codec for Float8OID.
type Float8Codec struct{}

func (Float8Codec) DecodeText(src []byte) (any, error) {
	f, err := strconv.ParseFloat(string(src), 64)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid float8 text %q: %w", src, err)
	}
	return Float8{Float64: f, Valid: true}, nil
}

func (Float8Codec) EncodeText(dst []byte, value any) ([]byte, error) {
	f, err := asFloat64(value)
	if err != nil {
		return nil, err
	}
	return strconv.AppendFloat(dst, f, 'g', -1, 64), nil
}

func (Float8Codec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 8 {
		return nil, fmt.Errorf("sqltypes: invalid float8 binary length %d", len(src))
	}
	bits := binary.BigEndian.Uint64(src)
	return Float8{Float64: math.Float64frombits(bits), Valid: true}, nil
}

func (Float8Codec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	f, err := asFloat64(value)
	if err != nil {
		return nil, err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(f))
	return append(dst, buf[:]...), nil
}

func asFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case Float4:
		return float64(v.Float32), nil
	case Float8:
		return v.Float64, nil
	default:
		return 0, fmt.Errorf("sqltypes: cannot encode %T as a float", value)
	}
}

// ByteaCodec implements Codec for ByteaOID. Text format uses the modern
// "\x"-hex-prefixed encoding; binary format is the raw bytes.
type ByteaCodec struct{}

func (ByteaCodec) DecodeText(src []byte) (any, error) {
	if len(src) < 2 || src[0] != '\\' || src[1] != 'x' {
		return nil, fmt.Errorf("sqltypes: bytea text value missing \\x prefix")
	}
	hexPart := src[2:]
	buf := make([]byte, len(hexPart)/2)
	for i := range buf {
		hi := hexDigit(hexPart[i*2])
		lo := hexDigit(hexPart[i*2+1])
		if hi < 0 || lo < 0 {
			return nil, fmt.Errorf("sqltypes: invalid bytea hex digit")
		}
		buf[i] = byte(hi<<4 | lo)
	}
	return buf, nil
}

func hexDigit(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	default:
		return -1
	}
}

const hexDigits = "0123456789abcdef"

func (ByteaCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	b, err := asBytes(value)
	if err != nil {
		return nil, err
	}
	dst = append(dst, '\\', 'x')
	for _, c := range b {
		dst = append(dst, hexDigits[c>>4], hexDigits[c&0xf])
	}
	return dst, nil
}

func (ByteaCodec) DecodeBinary(src []byte) (any, error) {
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

func (ByteaCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	b, err := asBytes(value)
	if err != nil {
		return nil, err
	}
	return append(dst, b...), nil
}

func asBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("sqltypes: cannot encode %T as bytea", value)
	}
}
