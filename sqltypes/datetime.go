package sqltypes

import (
	"fmt"
	"time"
)

// postgresEpoch is the zero point PostgreSQL's binary date/time formats
// count from: 2000-01-01, rather than the Unix epoch.
var postgresEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Date is the nullable wrapper for DateOID.
type Date struct {
	Time  time.Time
	Valid bool
}

// DateCodec implements Codec for DateOID.
type DateCodec struct{}

const dateLayout = "2006-01-02"

func (DateCodec) DecodeText(src []byte) (any, error) {
	t, err := time.Parse(dateLayout, string(src))
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid date text %q: %w", src, err)
	}
	return Date{Time: t, Valid: true}, nil
}

func (DateCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	t, err := asTime(value)
	if err != nil {
		return nil, err
	}
	return t.AppendFormat(dst, dateLayout), nil
}

func (DateCodec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 4 {
		return nil, fmt.Errorf("sqltypes: invalid date binary length %d", len(src))
	}
	days := int32(be32(src))
	return Date{Time: postgresEpoch.AddDate(0, 0, int(days)), Valid: true}, nil
}

func (DateCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	t, err := asTime(value)
	if err != nil {
		return nil, err
	}
	days := int32(t.UTC().Sub(postgresEpoch).Hours() / 24)
	return appendBE32(dst, uint32(days)), nil
}

// TimeOfDay is the nullable wrapper for TimeOID, stored as a duration
// since midnight rather than time.Time since it carries no date or zone.
type TimeOfDay struct {
	Microseconds int64
	Valid        bool
}

// TimeCodec implements Codec for TimeOID.
type TimeCodec struct{}

func (TimeCodec) DecodeText(src []byte) (any, error) {
	t, err := time.Parse("15:04:05.999999", string(src))
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid time text %q: %w", src, err)
	}
	micros := (t.Hour()*3600+t.Minute()*60+t.Second())*1000000 + t.Nanosecond()/1000
	return TimeOfDay{Microseconds: int64(micros), Valid: true}, nil
}

func (TimeCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	micros, err := asMicros(value)
	if err != nil {
		return nil, err
	}
	d := time.Duration(micros) * time.Microsecond
	t := time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(d)
	return t.AppendFormat(dst, "15:04:05.999999"), nil
}

func (TimeCodec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 8 {
		return nil, fmt.Errorf("sqltypes: invalid time binary length %d", len(src))
	}
	return TimeOfDay{Microseconds: int64(be64(src)), Valid: true}, nil
}

func (TimeCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	micros, err := asMicros(value)
	if err != nil {
		return nil, err
	}
	return appendBE64(dst, uint64(micros)), nil
}

func asMicros(value any) (int64, error) {
	switch v := value.(type) {
	case TimeOfDay:
		return v.Microseconds, nil
	case time.Duration:
		return int64(v / time.Microsecond), nil
	default:
		return 0, fmt.Errorf("sqltypes: cannot encode %T as time", value)
	}
}

// Timestamp is the nullable wrapper for TimestampOID/TimestamptzOID.
type Timestamp struct {
	Time  time.Time
	Valid bool

	// InfinityModifier is nonzero for the special 'infinity'/'-infinity'
	// values PostgreSQL timestamps can hold beyond any representable
	// time.Time.
	InfinityModifier int8
}

// TimestampCodec implements Codec for TimestampOID and TimestamptzOID; the
// two share a wire format and differ only in whether the text form carries
// a zone offset, which WithTimeZone selects.
type TimestampCodec struct {
	WithTimeZone bool
}

func (c TimestampCodec) textLayout() string {
	if c.WithTimeZone {
		return "2006-01-02 15:04:05.999999Z07:00"
	}
	return "2006-01-02 15:04:05.999999"
}

func (c TimestampCodec) DecodeText(src []byte) (any, error) {
	s := string(src)
	switch s {
	case "infinity":
		return Timestamp{Valid: true, InfinityModifier: 1}, nil
	case "-infinity":
		return Timestamp{Valid: true, InfinityModifier: -1}, nil
	}
	t, err := time.Parse(c.textLayout(), s)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid timestamp text %q: %w", src, err)
	}
	return Timestamp{Time: t, Valid: true}, nil
}

func (c TimestampCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	ts, err := asTimestamp(value)
	if err != nil {
		return nil, err
	}
	if ts.InfinityModifier > 0 {
		return append(dst, "infinity"...), nil
	}
	if ts.InfinityModifier < 0 {
		return append(dst, "-infinity"...), nil
	}
	return ts.Time.AppendFormat(dst, c.textLayout()), nil
}

func (c TimestampCodec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 8 {
		return nil, fmt.Errorf("sqltypes: invalid timestamp binary length %d", len(src))
	}
	micros := int64(be64(src))
	const (
		pgInfinity    = int64(9223372036854775807)
		pgNegInfinity = int64(-9223372036854775808)
	)
	if micros == pgInfinity {
		return Timestamp{Valid: true, InfinityModifier: 1}, nil
	}
	if micros == pgNegInfinity {
		return Timestamp{Valid: true, InfinityModifier: -1}, nil
	}
	t := postgresEpoch.Add(time.Duration(micros) * time.Microsecond)
	return Timestamp{Time: t, Valid: true}, nil
}

func (c TimestampCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	ts, err := asTimestamp(value)
	if err != nil {
		return nil, err
	}
	if ts.InfinityModifier > 0 {
		return appendBE64(dst, uint64(int64(9223372036854775807))), nil
	}
	if ts.InfinityModifier < 0 {
		negInfinity := int64(-9223372036854775808)
		return appendBE64(dst, uint64(negInfinity)), nil
	}
	micros := ts.Time.UTC().Sub(postgresEpoch).Microseconds()
	return appendBE64(dst, uint64(micros)), nil
}

func asTimestamp(value any) (Timestamp, error) {
	switch v := value.(type) {
	case Timestamp:
		return v, nil
	case time.Time:
		return Timestamp{Time: v, Valid: true}, nil
	default:
		return Timestamp{}, fmt.Errorf("sqltypes: cannot encode %T as timestamp", value)
	}
}

func asTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case Date:
		return v.Time, nil
	case time.Time:
		return v, nil
	default:
		return time.Time{}, fmt.Errorf("sqltypes: cannot encode %T as date", value)
	}
}

// Interval is the nullable wrapper for IntervalOID. PostgreSQL stores an
// interval as three independent components, since "1 month" has no fixed
// length in microseconds.
type Interval struct {
	Microseconds int64
	Days         int32
	Months       int32
	Valid        bool
}

// IntervalCodec implements Codec for IntervalOID. Only the binary format is
// implemented; interval's text format has too many PostgreSQL-configurable
// renderings (postgres/sql_standard/iso_8601/german styles) to usefully
// round-trip without a style parameter this codec has no way to receive.
type IntervalCodec struct{}

func (IntervalCodec) DecodeText(src []byte) (any, error) {
	return nil, fmt.Errorf("sqltypes: interval text decoding is not supported, use binary format")
}

func (IntervalCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	return nil, fmt.Errorf("sqltypes: interval text encoding is not supported, use binary format")
}

func (IntervalCodec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 16 {
		return nil, fmt.Errorf("sqltypes: invalid interval binary length %d", len(src))
	}
	micros := int64(be64(src[0:8]))
	days := int32(be32(src[8:12]))
	months := int32(be32(src[12:16]))
	return Interval{Microseconds: micros, Days: days, Months: months, Valid: true}, nil
}

func (IntervalCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	iv, ok := value.(Interval)
	if !ok {
		return nil, fmt.Errorf("sqltypes: cannot encode %T as interval", value)
	}
	dst = appendBE64(dst, uint64(iv.Microseconds))
	dst = appendBE32(dst, uint32(iv.Days))
	dst = appendBE32(dst, uint32(iv.Months))
	return dst, nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func appendBE32(dst []byte, n uint32) []byte {
	return append(dst, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

func be64(b []byte) uint64 {
	var n uint64
	for _, c := range b[:8] {
		n = n<<8 | uint64(c)
	}
	return n
}

func appendBE64(dst []byte, n uint64) []byte {
	return append(dst,
		byte(n>>56), byte(n>>48), byte(n>>40), byte(n>>32),
		byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}
