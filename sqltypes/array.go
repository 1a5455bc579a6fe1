package sqltypes

import (
	"fmt"
	"strings"
)

// ArrayCodec implements Codec for a one-dimensional array of a registered
// element OID. Multi-dimensional arrays are not supported: PostgreSQL
// itself rarely uses them outside of matrix-heavy extensions, and the
// extended-query sessions this module drives never need more than a flat
// list of scalars bound as a single parameter.
type ArrayCodec struct {
	ElementOID   OID
	ElementCodec Codec
}

// NewArrayCodec returns a Codec for a one-dimensional array whose elements
// have elementOID, decoded/encoded with elementCodec.
func NewArrayCodec(elementOID OID, elementCodec Codec) ArrayCodec {
	return ArrayCodec{ElementOID: elementOID, ElementCodec: elementCodec}
}

// Array is what ArrayCodec.Decode* returns: each element is either the
// element Codec's decoded Go value or nil for SQL NULL.
type Array struct {
	Elements []any
	Valid    bool
}

func (c ArrayCodec) DecodeText(src []byte) (any, error) {
	s := strings.TrimSpace(string(src))
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("sqltypes: invalid array text %q", src)
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return Array{Valid: true}, nil
	}

	var elements []any
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		if part == "NULL" {
			elements = append(elements, nil)
			continue
		}
		v, err := c.ElementCodec.DecodeText([]byte(part))
		if err != nil {
			return nil, fmt.Errorf("sqltypes: decoding array element %q: %w", part, err)
		}
		elements = append(elements, v)
	}
	return Array{Elements: elements, Valid: true}, nil
}

func (c ArrayCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	arr, err := asArray(value)
	if err != nil {
		return nil, err
	}
	dst = append(dst, '{')
	for i, v := range arr.Elements {
		if i > 0 {
			dst = append(dst, ',')
		}
		if v == nil {
			dst = append(dst, "NULL"...)
			continue
		}
		dst, err = c.ElementCodec.EncodeText(dst, v)
		if err != nil {
			return nil, fmt.Errorf("sqltypes: encoding array element: %w", err)
		}
	}
	dst = append(dst, '}')
	return dst, nil
}

func (c ArrayCodec) DecodeBinary(src []byte) (any, error) {
	if len(src) < 12 {
		return nil, fmt.Errorf("sqltypes: array binary value too short")
	}
	ndim := be32(src[0:4])
	// dataoffset/has-null flag at src[4:8] is ignored: each element always
	// carries its own length prefix, -1 marking NULL.
	elemOID := be32(src[8:12])
	if OID(elemOID) != c.ElementOID {
		return nil, fmt.Errorf("sqltypes: array element OID %d does not match registered %d", elemOID, c.ElementOID)
	}

	if ndim == 0 {
		return Array{Valid: true}, nil
	}
	if ndim != 1 {
		return nil, fmt.Errorf("sqltypes: only one-dimensional arrays are supported, got %d dimensions", ndim)
	}

	rp := 12
	if len(src) < rp+8 {
		return nil, fmt.Errorf("sqltypes: array binary value missing dimension header")
	}
	dimSize := int32(be32(src[rp : rp+4]))
	rp += 8 // dimension size + lower bound

	elements := make([]any, 0, dimSize)
	for i := int32(0); i < dimSize; i++ {
		if len(src) < rp+4 {
			return nil, fmt.Errorf("sqltypes: array binary value truncated")
		}
		elemLen := int32(be32(src[rp : rp+4]))
		rp += 4
		if elemLen == -1 {
			elements = append(elements, nil)
			continue
		}
		if len(src) < rp+int(elemLen) {
			return nil, fmt.Errorf("sqltypes: array binary value truncated element")
		}
		v, err := c.ElementCodec.DecodeBinary(src[rp : rp+int(elemLen)])
		if err != nil {
			return nil, fmt.Errorf("sqltypes: decoding array element: %w", err)
		}
		elements = append(elements, v)
		rp += int(elemLen)
	}

	return Array{Elements: elements, Valid: true}, nil
}

func (c ArrayCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	arr, err := asArray(value)
	if err != nil {
		return nil, err
	}

	if len(arr.Elements) == 0 {
		dst = appendBE32(dst, 0) // ndim
		dst = appendBE32(dst, 0) // has-null flag
		dst = appendBE32(dst, uint32(c.ElementOID))
		return dst, nil
	}

	hasNull := uint32(0)
	for _, v := range arr.Elements {
		if v == nil {
			hasNull = 1
			break
		}
	}

	dst = appendBE32(dst, 1) // ndim
	dst = appendBE32(dst, hasNull)
	dst = appendBE32(dst, uint32(c.ElementOID))
	dst = appendBE32(dst, uint32(len(arr.Elements)))
	dst = appendBE32(dst, 1) // lower bound

	for _, v := range arr.Elements {
		if v == nil {
			dst = appendBE32(dst, uint32(0xffffffff)) // -1
			continue
		}
		lenOffset := len(dst)
		dst = appendBE32(dst, 0)
		var err error
		dst, err = c.ElementCodec.EncodeBinary(dst, v)
		if err != nil {
			return nil, fmt.Errorf("sqltypes: encoding array element: %w", err)
		}
		elemLen := uint32(len(dst) - lenOffset - 4)
		copy(dst[lenOffset:], appendBE32(nil, elemLen))
	}

	return dst, nil
}

func asArray(value any) (Array, error) {
	switch v := value.(type) {
	case Array:
		return v, nil
	case []any:
		return Array{Elements: v, Valid: true}, nil
	default:
		return Array{}, fmt.Errorf("sqltypes: cannot encode %T as array", value)
	}
}
