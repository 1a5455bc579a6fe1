package sqltypes

import "fmt"

// jsonBinaryVersion is the single version byte jsonb's binary wire format
// is prefixed with.
const jsonBinaryVersion = 1

// JSONCodec implements Codec for JSONOID. JSON's text and binary wire
// formats are identical: the raw JSON document bytes, with no JSONB-style
// version prefix.
type JSONCodec struct{}

func (JSONCodec) DecodeText(src []byte) (any, error) {
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

func (JSONCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	b, err := asJSONBytes(value)
	if err != nil {
		return nil, err
	}
	return append(dst, b...), nil
}

func (c JSONCodec) DecodeBinary(src []byte) (any, error) { return c.DecodeText(src) }

func (c JSONCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	return c.EncodeText(dst, value)
}

// JSONBCodec implements Codec for JSONBOID. Binary format is the text JSON
// document prefixed by a single version byte, currently always 1.
type JSONBCodec struct{}

func (JSONBCodec) DecodeText(src []byte) (any, error) {
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

func (JSONBCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	b, err := asJSONBytes(value)
	if err != nil {
		return nil, err
	}
	return append(dst, b...), nil
}

func (JSONBCodec) DecodeBinary(src []byte) (any, error) {
	if len(src) < 1 {
		return nil, fmt.Errorf("sqltypes: jsonb binary value missing version byte")
	}
	if src[0] != jsonBinaryVersion {
		return nil, fmt.Errorf("sqltypes: unsupported jsonb binary version %d", src[0])
	}
	out := make([]byte, len(src)-1)
	copy(out, src[1:])
	return out, nil
}

func (JSONBCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	b, err := asJSONBytes(value)
	if err != nil {
		return nil, err
	}
	dst = append(dst, jsonBinaryVersion)
	return append(dst, b...), nil
}

func asJSONBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("sqltypes: cannot encode %T as json; marshal it first", value)
	}
}
