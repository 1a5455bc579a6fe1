package sqltypes

import "fmt"

// Codec converts a single OID's wire representation, in either text or
// binary format, to and from a Go value. EncodeBinary/DecodeBinary may
// return ErrBinaryFormatNotSupported for types this module only carries in
// text form.
type Codec interface {
	// DecodeText parses the text-format wire value into a Go value.
	DecodeText(src []byte) (any, error)
	// EncodeText renders a Go value into its text-format wire
	// representation, appending to dst.
	EncodeText(dst []byte, value any) ([]byte, error)
	// DecodeBinary parses the binary-format wire value into a Go value.
	DecodeBinary(src []byte) (any, error)
	// EncodeBinary renders a Go value into its binary-format wire
	// representation, appending to dst.
	EncodeBinary(dst []byte, value any) ([]byte, error)
}

// ErrBinaryFormatNotSupported is returned by a Codec whose type this
// package only implements in text format.
type ErrBinaryFormatNotSupported struct {
	OID OID
}

func (e *ErrBinaryFormatNotSupported) Error() string {
	return fmt.Sprintf("sqltypes: OID %d has no binary codec", e.OID)
}

// UnregisteredOIDError reports an OID with no registered Codec.
// Registry.Lookup never returns it: an unregistered OID gets RawTextCodec.
type UnregisteredOIDError struct {
	OID OID
}

func (e *UnregisteredOIDError) Error() string {
	return fmt.Sprintf("sqltypes: no codec registered for OID %d", e.OID)
}

// Registry maps OIDs to Codecs. The zero value is not usable; use
// NewRegistry, which preloads every built-in type this package implements.
type Registry struct {
	codecs map[OID]Codec
}

// NewRegistry returns a Registry with every built-in OID this package
// implements already registered.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[OID]Codec)}
	registerBuiltins(r)
	return r
}

// Register installs or replaces the Codec for oid. Applications extend the
// registry with domain or enum types this way.
func (r *Registry) Register(oid OID, codec Codec) {
	r.codecs[oid] = codec
}

// Lookup returns the Codec registered for oid. Unregistered OIDs fall back
// to RawTextCodec, matching the wire protocol's own behavior of always
// being able to carry a value as text even when no richer type is known.
func (r *Registry) Lookup(oid OID) Codec {
	if c, ok := r.codecs[oid]; ok {
		return c
	}
	return RawTextCodec{}
}

// DecodeValue decodes src, an OID's wire value in the given format code
// (wireproto.TextFormat or wireproto.BinaryFormat), into a Go value. A nil
// src (SQL NULL) always decodes to nil regardless of format or codec.
func (r *Registry) DecodeValue(oid OID, format int16, src []byte) (any, error) {
	if src == nil {
		return nil, nil
	}
	codec := r.Lookup(oid)
	if format == 1 {
		return codec.DecodeBinary(src)
	}
	return codec.DecodeText(src)
}

// EncodeValue encodes value for oid in the given format code, appending to
// dst. A nil value always encodes to a nil wire value (SQL NULL).
func (r *Registry) EncodeValue(dst []byte, oid OID, format int16, value any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	codec := r.Lookup(oid)
	if format == 1 {
		return codec.EncodeBinary(dst, value)
	}
	return codec.EncodeText(dst, value)
}

// RawTextCodec passes values through as strings/[]byte with no
// interpretation. It is the fallback for OIDs with no dedicated Codec and
// the Codec for TextOID/VarcharOID/BPCharOID/NameOID themselves.
type RawTextCodec struct{}

func (RawTextCodec) DecodeText(src []byte) (any, error) {
	return string(src), nil
}

func (RawTextCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	return append(dst, s...), nil
}

func (c RawTextCodec) DecodeBinary(src []byte) (any, error) { return c.DecodeText(src) }

func (c RawTextCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	return c.EncodeText(dst, value)
}

func asString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("sqltypes: cannot encode %T as text", value)
	}
}

func registerBuiltins(r *Registry) {
	r.Register(BoolOID, BoolCodec{})
	r.Register(Int2OID, Int2Codec{})
	r.Register(Int4OID, Int4Codec{})
	r.Register(Int8OID, Int8Codec{})
	r.Register(Float4OID, Float4Codec{})
	r.Register(Float8OID, Float8Codec{})
	r.Register(NumericOID, NumericCodec{})

	r.Register(TextOID, RawTextCodec{})
	r.Register(VarcharOID, RawTextCodec{})
	r.Register(BPCharOID, RawTextCodec{})
	r.Register(NameOID, RawTextCodec{})
	r.Register(UnknownOID, RawTextCodec{})

	r.Register(ByteaOID, ByteaCodec{})
	r.Register(UUIDOID, UUIDCodec{})
	r.Register(JSONOID, JSONCodec{})
	r.Register(JSONBOID, JSONBCodec{})

	r.Register(DateOID, DateCodec{})
	r.Register(TimeOID, TimeCodec{})
	r.Register(TimestampOID, TimestampCodec{WithTimeZone: false})
	r.Register(TimestamptzOID, TimestampCodec{WithTimeZone: true})
	r.Register(IntervalOID, IntervalCodec{})

	r.Register(PointOID, PointCodec{})
	r.Register(LineOID, LineCodec{})
	r.Register(LineSegmentOID, LineSegmentCodec{})
	r.Register(PathOID, PathCodec{})
	r.Register(BoxOID, BoxCodec{})
	r.Register(PolygonOID, PolygonCodec{})
	r.Register(CircleOID, CircleCodec{})

	r.Register(BoolArrayOID, NewArrayCodec(BoolOID, BoolCodec{}))
	r.Register(Int2ArrayOID, NewArrayCodec(Int2OID, Int2Codec{}))
	r.Register(Int4ArrayOID, NewArrayCodec(Int4OID, Int4Codec{}))
	r.Register(Int8ArrayOID, NewArrayCodec(Int8OID, Int8Codec{}))
	r.Register(Float4ArrayOID, NewArrayCodec(Float4OID, Float4Codec{}))
	r.Register(Float8ArrayOID, NewArrayCodec(Float8OID, Float8Codec{}))
	r.Register(TextArrayOID, NewArrayCodec(TextOID, RawTextCodec{}))
	r.Register(VarcharArrayOID, NewArrayCodec(VarcharOID, RawTextCodec{}))
	r.Register(ByteaArrayOID, NewArrayCodec(ByteaOID, ByteaCodec{}))
	r.Register(UUIDArrayOID, NewArrayCodec(UUIDOID, UUIDCodec{}))
	r.Register(DateArrayOID, NewArrayCodec(DateOID, DateCodec{}))
	r.Register(TimestampArrayOID, NewArrayCodec(TimestampOID, TimestampCodec{WithTimeZone: false}))
	r.Register(TimestamptzArrayOID, NewArrayCodec(TimestamptzOID, TimestampCodec{WithTimeZone: true}))
	r.Register(NumericArrayOID, NewArrayCodec(NumericOID, NumericCodec{}))
}
