// Package sqltypes implements the type codec registry (L3): a Codec per
// built-in PostgreSQL OID, converting between the wire's text and binary
// formats and Go values, plus a Registry that looks codecs up by OID and
// falls back to raw text for anything unregistered.
package sqltypes

// OID identifies a PostgreSQL data type, matching pg_type.oid.
type OID uint32

// Built-in type OIDs this package ships a Codec for.
const (
	BoolOID             OID = 16
	ByteaOID            OID = 17
	NameOID             OID = 19
	Int8OID             OID = 20
	Int2OID             OID = 21
	Int4OID             OID = 23
	TextOID             OID = 25
	JSONOID             OID = 114
	PointOID            OID = 600
	LineSegmentOID      OID = 601
	PathOID             OID = 602
	BoxOID              OID = 603
	PolygonOID          OID = 604
	LineOID             OID = 628
	Float4OID           OID = 700
	Float8OID           OID = 701
	CircleOID           OID = 718
	UnknownOID          OID = 705
	BoolArrayOID        OID = 1000
	ByteaArrayOID       OID = 1001
	Int2ArrayOID        OID = 1005
	Int4ArrayOID        OID = 1007
	TextArrayOID        OID = 1009
	VarcharArrayOID     OID = 1015
	Int8ArrayOID        OID = 1016
	Float4ArrayOID      OID = 1021
	Float8ArrayOID      OID = 1022
	VarcharOID          OID = 1043
	BPCharOID           OID = 1042
	DateOID             OID = 1082
	TimeOID             OID = 1083
	TimestampOID        OID = 1114
	TimestampArrayOID   OID = 1115
	DateArrayOID        OID = 1182
	TimestamptzOID      OID = 1184
	TimestamptzArrayOID OID = 1185
	IntervalOID         OID = 1186
	NumericOID          OID = 1700
	NumericArrayOID     OID = 1231
	UUIDOID             OID = 2950
	UUIDArrayOID        OID = 2951
	JSONBOID            OID = 3802
)
