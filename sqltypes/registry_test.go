package sqltypes

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func roundTripBinary(t *testing.T, codec Codec, value any) any {
	t.Helper()
	encoded, err := codec.EncodeBinary(nil, value)
	require.NoError(t, err)
	decoded, err := codec.DecodeBinary(encoded)
	require.NoError(t, err)
	return decoded
}

func TestIntCodecsBinaryRoundTrip(t *testing.T) {
	require.Equal(t, Int2{Int16: -7, Valid: true}, roundTripBinary(t, Int2Codec{}, int64(-7)))
	require.Equal(t, Int4{Int32: 123456, Valid: true}, roundTripBinary(t, Int4Codec{}, int64(123456)))
	require.Equal(t, Int8{Int64: -9000000000, Valid: true}, roundTripBinary(t, Int8Codec{}, int64(-9000000000)))
}

func TestFloatCodecsBinaryRoundTrip(t *testing.T) {
	got := roundTripBinary(t, Float8Codec{}, float64(3.14159265))
	require.InDelta(t, 3.14159265, got.(Float8).Float64, 1e-9)
}

func TestBoolCodecTextRoundTrip(t *testing.T) {
	encoded, err := BoolCodec{}.EncodeText(nil, true)
	require.NoError(t, err)
	require.Equal(t, "t", string(encoded))

	decoded, err := BoolCodec{}.DecodeText(encoded)
	require.NoError(t, err)
	require.Equal(t, Bool{Bool: true, Valid: true}, decoded)
}

func TestByteaCodecTextRoundTrip(t *testing.T) {
	raw := []byte{0x00, 0xde, 0xad, 0xbe, 0xef}
	encoded, err := ByteaCodec{}.EncodeText(nil, raw)
	require.NoError(t, err)
	require.Equal(t, `\x00deadbeef`, string(encoded))

	decoded, err := ByteaCodec{}.DecodeText(encoded)
	require.NoError(t, err)
	require.Equal(t, raw, decoded)
}

func TestUUIDCodecRoundTrip(t *testing.T) {
	u := uuid.Must(uuid.NewV4())
	encoded, err := UUIDCodec{}.EncodeBinary(nil, u)
	require.NoError(t, err)
	decoded, err := UUIDCodec{}.DecodeBinary(encoded)
	require.NoError(t, err)
	require.Equal(t, u, decoded.(UUID).UUID)

	textEncoded, err := UUIDCodec{}.EncodeText(nil, u)
	require.NoError(t, err)
	textDecoded, err := UUIDCodec{}.DecodeText(textEncoded)
	require.NoError(t, err)
	require.Equal(t, u, textDecoded.(UUID).UUID)
}

func TestNumericCodecBinaryRoundTrip(t *testing.T) {
	cases := []string{"0", "1", "-1", "123.456", "-123.456", "10000", "0.0001", "99999999999999999999"}
	for _, s := range cases {
		d, err := decimal.NewFromString(s)
		require.NoError(t, err)

		encoded, err := NumericCodec{}.EncodeBinary(nil, Numeric{Decimal: d, Valid: true})
		require.NoError(t, err)

		decoded, err := NumericCodec{}.DecodeBinary(encoded)
		require.NoError(t, err)

		got := decoded.(Numeric)
		require.True(t, d.Equal(got.Decimal), "case %s: got %s", s, got.Decimal.String())
	}
}

func TestNumericCodecSpecials(t *testing.T) {
	for _, n := range []Numeric{
		{Valid: true, NaN: true},
		{Valid: true, InfinityModifier: 1},
		{Valid: true, InfinityModifier: -1},
	} {
		encoded, err := NumericCodec{}.EncodeBinary(nil, n)
		require.NoError(t, err)
		decoded, err := NumericCodec{}.DecodeBinary(encoded)
		require.NoError(t, err)
		require.Equal(t, n, decoded)
	}
}

func TestDateCodecBinaryRoundTrip(t *testing.T) {
	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	encoded, err := DateCodec{}.EncodeBinary(nil, Date{Time: d, Valid: true})
	require.NoError(t, err)
	decoded, err := DateCodec{}.DecodeBinary(encoded)
	require.NoError(t, err)
	require.True(t, d.Equal(decoded.(Date).Time))
}

func TestTimestampCodecBinaryRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 15, 12, 30, 45, 123000, time.UTC)
	codec := TimestampCodec{WithTimeZone: true}
	encoded, err := codec.EncodeBinary(nil, Timestamp{Time: ts, Valid: true})
	require.NoError(t, err)
	decoded, err := codec.DecodeBinary(encoded)
	require.NoError(t, err)
	require.True(t, ts.Equal(decoded.(Timestamp).Time))
}

func TestArrayCodecBinaryRoundTrip(t *testing.T) {
	codec := NewArrayCodec(Int4OID, Int4Codec{})
	arr := Array{Elements: []any{int64(1), nil, int64(3)}, Valid: true}

	encoded, err := codec.EncodeBinary(nil, arr)
	require.NoError(t, err)

	decoded, err := codec.DecodeBinary(encoded)
	require.NoError(t, err)

	got := decoded.(Array)
	require.Len(t, got.Elements, 3)
	require.Equal(t, Int4{Int32: 1, Valid: true}, got.Elements[0])
	require.Nil(t, got.Elements[1])
	require.Equal(t, Int4{Int32: 3, Valid: true}, got.Elements[2])
}

func TestArrayCodecTextRoundTrip(t *testing.T) {
	codec := NewArrayCodec(TextOID, RawTextCodec{})
	arr := Array{Elements: []any{"a", "b", nil}, Valid: true}

	encoded, err := codec.EncodeText(nil, arr)
	require.NoError(t, err)
	require.Equal(t, "{a,b,NULL}", string(encoded))

	decoded, err := codec.DecodeText(encoded)
	require.NoError(t, err)
	got := decoded.(Array)
	require.Equal(t, []any{"a", "b", nil}, got.Elements)
}

func TestPointCodecRoundTrip(t *testing.T) {
	p := Point{X: 1.5, Y: -2.25, Valid: true}

	encoded, err := PointCodec{}.EncodeText(nil, p)
	require.NoError(t, err)
	decoded, err := PointCodec{}.DecodeText(encoded)
	require.NoError(t, err)
	require.Equal(t, p, decoded)

	got := roundTripBinary(t, PointCodec{}, p)
	require.Equal(t, p, got)
}

func TestLineCodecRoundTrip(t *testing.T) {
	l := Line{A: 1, B: -2, C: 3.5, Valid: true}

	encoded, err := LineCodec{}.EncodeText(nil, l)
	require.NoError(t, err)
	require.Equal(t, "{1,-2,3.5}", string(encoded))
	decoded, err := LineCodec{}.DecodeText(encoded)
	require.NoError(t, err)
	require.Equal(t, l, decoded)

	require.Equal(t, l, roundTripBinary(t, LineCodec{}, l))
}

func TestLineSegmentCodecRoundTrip(t *testing.T) {
	s := LineSegment{X1: 0, Y1: 0, X2: 3, Y2: 4, Valid: true}

	encoded, err := LineSegmentCodec{}.EncodeText(nil, s)
	require.NoError(t, err)
	decoded, err := LineSegmentCodec{}.DecodeText(encoded)
	require.NoError(t, err)
	require.Equal(t, s, decoded)

	require.Equal(t, s, roundTripBinary(t, LineSegmentCodec{}, s))
}

func TestBoxCodecRoundTrip(t *testing.T) {
	b := Box{X1: 0, Y1: 0, X2: 5, Y2: 5, Valid: true}

	encoded, err := BoxCodec{}.EncodeText(nil, b)
	require.NoError(t, err)
	decoded, err := BoxCodec{}.DecodeText(encoded)
	require.NoError(t, err)
	require.Equal(t, b, decoded)

	require.Equal(t, b, roundTripBinary(t, BoxCodec{}, b))
}

func TestPolygonCodecRoundTrip(t *testing.T) {
	p := Polygon{
		Points: []Point{{X: 0, Y: 0, Valid: true}, {X: 1, Y: 0, Valid: true}, {X: 1, Y: 1, Valid: true}},
		Valid:  true,
	}

	encoded, err := PolygonCodec{}.EncodeText(nil, p)
	require.NoError(t, err)
	decoded, err := PolygonCodec{}.DecodeText(encoded)
	require.NoError(t, err)
	require.Equal(t, p, decoded)

	require.Equal(t, p, roundTripBinary(t, PolygonCodec{}, p))
}

func TestPathCodecRoundTrip(t *testing.T) {
	closed := Path{
		Points: []Point{{X: 0, Y: 0, Valid: true}, {X: 1, Y: 2, Valid: true}},
		Closed: true,
		Valid:  true,
	}
	encoded, err := PathCodec{}.EncodeText(nil, closed)
	require.NoError(t, err)
	require.Equal(t, "((0,0),(1,2))", string(encoded))
	decoded, err := PathCodec{}.DecodeText(encoded)
	require.NoError(t, err)
	require.Equal(t, closed, decoded)
	require.Equal(t, closed, roundTripBinary(t, PathCodec{}, closed))

	open := Path{
		Points: []Point{{X: 0, Y: 0, Valid: true}, {X: 1, Y: 2, Valid: true}},
		Closed: false,
		Valid:  true,
	}
	encoded, err = PathCodec{}.EncodeText(nil, open)
	require.NoError(t, err)
	require.Equal(t, "[(0,0),(1,2)]", string(encoded))
	decoded, err = PathCodec{}.DecodeText(encoded)
	require.NoError(t, err)
	require.Equal(t, open, decoded)
	require.Equal(t, open, roundTripBinary(t, PathCodec{}, open))
}

func TestCircleCodecRoundTrip(t *testing.T) {
	c := Circle{X: 1, Y: 2, R: 3.5, Valid: true}

	encoded, err := CircleCodec{}.EncodeText(nil, c)
	require.NoError(t, err)
	decoded, err := CircleCodec{}.DecodeText(encoded)
	require.NoError(t, err)
	require.Equal(t, c, decoded)

	require.Equal(t, c, roundTripBinary(t, CircleCodec{}, c))
}

func TestRegistryFallsBackToRawText(t *testing.T) {
	r := NewRegistry()
	v, err := r.DecodeValue(999999, 0, []byte("anything"))
	require.NoError(t, err)
	require.Equal(t, "anything", v)
}

func TestRegistryDecodeNull(t *testing.T) {
	r := NewRegistry()
	v, err := r.DecodeValue(Int4OID, 1, nil)
	require.NoError(t, err)
	require.Nil(t, v)
}
