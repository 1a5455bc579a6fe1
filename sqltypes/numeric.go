package sqltypes

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// nbase is the base PostgreSQL's numeric wire format groups decimal digits
// into: each wire "digit" is a base-10000 value.
const nbase = 10000

var (
	big0     = big.NewInt(0)
	big10    = big.NewInt(10)
	bigNBase = big.NewInt(nbase)
)

const (
	numericNaNSign    = 0xc000
	numericPosInfSign = 0xd000
	numericNegInfSign = 0xf000
)

// Numeric is the nullable wrapper for NumericOID, backed by
// shopspring/decimal for arithmetic convenience. NaN and the two infinities
// PostgreSQL's numeric type can carry (added in PG 14) have no
// decimal.Decimal representation, so they are flagged separately; regular
// values never set either flag.
type Numeric struct {
	Decimal          decimal.Decimal
	Valid            bool
	NaN              bool
	InfinityModifier int8 // 0 normal, 1 +Infinity, -1 -Infinity
}

// NumericCodec implements Codec for NumericOID, decoding the wire's
// base-10000 "nbase" digit groups into an arbitrary-precision big.Int plus
// decimal exponent, matching the algorithm PostgreSQL itself uses to print
// and parse numeric values.
type NumericCodec struct{}

func (NumericCodec) DecodeText(src []byte) (any, error) {
	s := string(src)
	switch s {
	case "NaN":
		return Numeric{Valid: true, NaN: true}, nil
	case "Infinity":
		return Numeric{Valid: true, InfinityModifier: 1}, nil
	case "-Infinity":
		return Numeric{Valid: true, InfinityModifier: -1}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid numeric text %q: %w", src, err)
	}
	return Numeric{Decimal: d, Valid: true}, nil
}

func (NumericCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	n, err := asNumeric(value)
	if err != nil {
		return nil, err
	}
	switch {
	case n.NaN:
		return append(dst, "NaN"...), nil
	case n.InfinityModifier > 0:
		return append(dst, "Infinity"...), nil
	case n.InfinityModifier < 0:
		return append(dst, "-Infinity"...), nil
	default:
		return append(dst, n.Decimal.String()...), nil
	}
}

func (NumericCodec) DecodeBinary(src []byte) (any, error) {
	if len(src) < 8 {
		return nil, fmt.Errorf("sqltypes: numeric binary value too short: %d bytes", len(src))
	}

	ndigits := binary.BigEndian.Uint16(src[0:2])
	weight := int16(binary.BigEndian.Uint16(src[2:4]))
	sign := binary.BigEndian.Uint16(src[4:6])
	dscale := int16(binary.BigEndian.Uint16(src[6:8]))

	switch sign {
	case numericNaNSign:
		return Numeric{Valid: true, NaN: true}, nil
	case numericPosInfSign:
		return Numeric{Valid: true, InfinityModifier: 1}, nil
	case numericNegInfSign:
		return Numeric{Valid: true, InfinityModifier: -1}, nil
	}

	digits := src[8:]
	if len(digits) < int(ndigits)*2 {
		return nil, fmt.Errorf("sqltypes: numeric binary value truncated")
	}

	accum := &big.Int{}
	for i := 0; i < int(ndigits); i++ {
		d := binary.BigEndian.Uint16(digits[i*2:])
		if d >= nbase {
			return nil, fmt.Errorf("sqltypes: invalid numeric digit %d", d)
		}
		accum.Mul(accum, bigNBase)
		accum.Add(accum, big.NewInt(int64(d)))
	}

	// accum currently represents the digits with an implicit decimal
	// exponent of (ndigits-1-weight) groups of 4 decimal digits below the
	// point; fold that into a base-10 exponent, then trim or pad to dscale.
	exp := (int32(weight) - int32(ndigits) + 1) * 4

	if ndigits == 0 {
		accum = big.NewInt(0)
		exp = -int32(dscale)
	} else if int32(dscale) != -exp {
		diff := int32(dscale) + exp
		if diff > 0 {
			// dscale asks for more fractional digits than the digit groups
			// carried; pad with zeros.
			scale := new(big.Int).Exp(big10, big.NewInt(int64(diff)), nil)
			accum.Mul(accum, scale)
			exp -= diff
		} else if diff < 0 {
			scale := new(big.Int).Exp(big10, big.NewInt(int64(-diff)), nil)
			accum.Quo(accum, scale)
			exp -= diff
		}
	}

	if sign != 0 {
		accum.Neg(accum)
	}

	return Numeric{Decimal: decimal.NewFromBigInt(accum, exp), Valid: true}, nil
}

func (NumericCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	n, err := asNumeric(value)
	if err != nil {
		return nil, err
	}

	if n.NaN {
		return appendNumericHeader(dst, 0, 0, numericNaNSign, 0), nil
	}
	if n.InfinityModifier > 0 {
		return appendNumericHeader(dst, 0, 0, numericPosInfSign, 0), nil
	}
	if n.InfinityModifier < 0 {
		return appendNumericHeader(dst, 0, 0, numericNegInfSign, 0), nil
	}

	coeff := n.Decimal.Coefficient()
	exp := n.Decimal.Exponent()

	var sign uint16
	absCoeff := new(big.Int).Abs(coeff)
	if coeff.Sign() < 0 {
		sign = 16384
	}

	dscale := int16(0)
	if exp < 0 {
		dscale = int16(-exp)
	}

	// Normalize exp to a multiple of 4 by scaling absCoeff up, matching the
	// base-10000 digit grouping the wire format requires.
	rem := ((exp % 4) + 4) % 4
	if rem != 0 {
		scale := new(big.Int).Exp(big10, big.NewInt(int64(rem)), nil)
		absCoeff.Mul(absCoeff, scale)
		exp -= rem
	}

	var digits []int16
	rem2 := new(big.Int)
	for absCoeff.Sign() != 0 {
		absCoeff.DivMod(absCoeff, bigNBase, rem2)
		digits = append(digits, int16(rem2.Int64()))
	}
	// digits is little-endian (least significant group first); reverse.
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}

	var weight int16
	if len(digits) > 0 {
		weight = int16(exp/4) + int16(len(digits)) - 1
	}

	dst = appendNumericHeader(dst, int16(len(digits)), weight, sign, dscale)
	for _, d := range digits {
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(d))
		dst = append(dst, buf[:]...)
	}
	return dst, nil
}

func appendNumericHeader(dst []byte, ndigits, weight int16, sign uint16, dscale int16) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint16(buf[0:2], uint16(ndigits))
	binary.BigEndian.PutUint16(buf[2:4], uint16(weight))
	binary.BigEndian.PutUint16(buf[4:6], sign)
	binary.BigEndian.PutUint16(buf[6:8], uint16(dscale))
	return append(dst, buf[:]...)
}

func asNumeric(value any) (Numeric, error) {
	switch v := value.(type) {
	case Numeric:
		return v, nil
	case decimal.Decimal:
		return Numeric{Decimal: v, Valid: true}, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return Numeric{}, err
		}
		return Numeric{Decimal: d, Valid: true}, nil
	case int64:
		return Numeric{Decimal: decimal.New(v, 0), Valid: true}, nil
	case float64:
		return Numeric{Decimal: decimal.NewFromFloat(v), Valid: true}, nil
	default:
		return Numeric{}, fmt.Errorf("sqltypes: cannot encode %T as numeric", value)
	}
}
