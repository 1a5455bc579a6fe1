package sqltypes

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point is the nullable wrapper for PointOID.
type Point struct {
	X, Y  float64
	Valid bool
}

// PointCodec implements Codec for PointOID.
type PointCodec struct{}

func (PointCodec) DecodeText(src []byte) (any, error) {
	s := strings.Trim(string(src), "()")
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("sqltypes: invalid point text %q", src)
	}
	x, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid point x %q", parts[0])
	}
	y, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid point y %q", parts[1])
	}
	return Point{X: x, Y: y, Valid: true}, nil
}

func (PointCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	p, err := asPoint(value)
	if err != nil {
		return nil, err
	}
	return appendPointText(dst, p.X, p.Y), nil
}

func (PointCodec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 16 {
		return nil, fmt.Errorf("sqltypes: invalid point binary length %d", len(src))
	}
	x := math.Float64frombits(be64(src[0:8]))
	y := math.Float64frombits(be64(src[8:16]))
	return Point{X: x, Y: y, Valid: true}, nil
}

func (PointCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	p, err := asPoint(value)
	if err != nil {
		return nil, err
	}
	return appendPointBinary(dst, p.X, p.Y), nil
}

func asPoint(value any) (Point, error) {
	p, ok := value.(Point)
	if !ok {
		return Point{}, fmt.Errorf("sqltypes: cannot encode %T as point", value)
	}
	return p, nil
}

func appendPointText(dst []byte, x, y float64) []byte {
	dst = append(dst, '(')
	dst = strconv.AppendFloat(dst, x, 'g', -1, 64)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, y, 'g', -1, 64)
	dst = append(dst, ')')
	return dst
}

func appendPointBinary(dst []byte, x, y float64) []byte {
	dst = appendBE64(dst, math.Float64bits(x))
	dst = appendBE64(dst, math.Float64bits(y))
	return dst
}

// Line is the nullable wrapper for LineOID: the coefficients of Ax+By+C=0.
type Line struct {
	A, B, C float64
	Valid   bool
}

// LineCodec implements Codec for LineOID.
type LineCodec struct{}

func (LineCodec) DecodeText(src []byte) (any, error) {
	s := strings.Trim(string(src), "{}")
	parts := strings.SplitN(s, ",", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("sqltypes: invalid line text %q", src)
	}
	vals, err := parseFloats(parts)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid line text %q: %w", src, err)
	}
	return Line{A: vals[0], B: vals[1], C: vals[2], Valid: true}, nil
}

func (LineCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	l, ok := value.(Line)
	if !ok {
		return nil, fmt.Errorf("sqltypes: cannot encode %T as line", value)
	}
	dst = append(dst, '{')
	dst = strconv.AppendFloat(dst, l.A, 'g', -1, 64)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, l.B, 'g', -1, 64)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, l.C, 'g', -1, 64)
	dst = append(dst, '}')
	return dst, nil
}

func (LineCodec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 24 {
		return nil, fmt.Errorf("sqltypes: invalid line binary length %d", len(src))
	}
	return Line{
		A:     math.Float64frombits(be64(src[0:8])),
		B:     math.Float64frombits(be64(src[8:16])),
		C:     math.Float64frombits(be64(src[16:24])),
		Valid: true,
	}, nil
}

func (LineCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	l, ok := value.(Line)
	if !ok {
		return nil, fmt.Errorf("sqltypes: cannot encode %T as line", value)
	}
	dst = appendBE64(dst, math.Float64bits(l.A))
	dst = appendBE64(dst, math.Float64bits(l.B))
	dst = appendBE64(dst, math.Float64bits(l.C))
	return dst, nil
}

// LineSegment is the nullable wrapper for LineSegmentOID.
type LineSegment struct {
	X1, Y1, X2, Y2 float64
	Valid          bool
}

// LineSegmentCodec implements Codec for LineSegmentOID.
type LineSegmentCodec struct{}

func (LineSegmentCodec) DecodeText(src []byte) (any, error) {
	pts, err := parsePointPairText(src)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid lseg text %q: %w", src, err)
	}
	return LineSegment{X1: pts[0].X, Y1: pts[0].Y, X2: pts[1].X, Y2: pts[1].Y, Valid: true}, nil
}

func (LineSegmentCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	s, ok := value.(LineSegment)
	if !ok {
		return nil, fmt.Errorf("sqltypes: cannot encode %T as lseg", value)
	}
	dst = appendPointText(dst, s.X1, s.Y1)
	dst = append(dst, ',')
	dst = appendPointText(dst, s.X2, s.Y2)
	return dst, nil
}

func (LineSegmentCodec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 32 {
		return nil, fmt.Errorf("sqltypes: invalid lseg binary length %d", len(src))
	}
	return LineSegment{
		X1:    math.Float64frombits(be64(src[0:8])),
		Y1:    math.Float64frombits(be64(src[8:16])),
		X2:    math.Float64frombits(be64(src[16:24])),
		Y2:    math.Float64frombits(be64(src[24:32])),
		Valid: true,
	}, nil
}

func (LineSegmentCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	s, ok := value.(LineSegment)
	if !ok {
		return nil, fmt.Errorf("sqltypes: cannot encode %T as lseg", value)
	}
	dst = appendPointBinary(dst, s.X1, s.Y1)
	dst = appendPointBinary(dst, s.X2, s.Y2)
	return dst, nil
}

// Box is the nullable wrapper for BoxOID: two opposite corners.
type Box struct {
	X1, Y1, X2, Y2 float64
	Valid          bool
}

// BoxCodec implements Codec for BoxOID.
type BoxCodec struct{}

func (BoxCodec) DecodeText(src []byte) (any, error) {
	pts, err := parsePointPairText(src)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid box text %q: %w", src, err)
	}
	return Box{X1: pts[0].X, Y1: pts[0].Y, X2: pts[1].X, Y2: pts[1].Y, Valid: true}, nil
}

func (BoxCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	b, ok := value.(Box)
	if !ok {
		return nil, fmt.Errorf("sqltypes: cannot encode %T as box", value)
	}
	dst = appendPointText(dst, b.X1, b.Y1)
	dst = append(dst, ',')
	dst = appendPointText(dst, b.X2, b.Y2)
	return dst, nil
}

func (BoxCodec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 32 {
		return nil, fmt.Errorf("sqltypes: invalid box binary length %d", len(src))
	}
	return Box{
		X1:    math.Float64frombits(be64(src[0:8])),
		Y1:    math.Float64frombits(be64(src[8:16])),
		X2:    math.Float64frombits(be64(src[16:24])),
		Y2:    math.Float64frombits(be64(src[24:32])),
		Valid: true,
	}, nil
}

func (BoxCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	b, ok := value.(Box)
	if !ok {
		return nil, fmt.Errorf("sqltypes: cannot encode %T as box", value)
	}
	dst = appendPointBinary(dst, b.X1, b.Y1)
	dst = appendPointBinary(dst, b.X2, b.Y2)
	return dst, nil
}

// Polygon is the nullable wrapper for PolygonOID: an arbitrary-length
// closed sequence of points.
type Polygon struct {
	Points []Point
	Valid  bool
}

// PolygonCodec implements Codec for PolygonOID.
type PolygonCodec struct{}

func (PolygonCodec) DecodeText(src []byte) (any, error) {
	pts, err := parsePointListText(src, '(', ')')
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid polygon text %q: %w", src, err)
	}
	return Polygon{Points: pts, Valid: true}, nil
}

func (PolygonCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	p, ok := value.(Polygon)
	if !ok {
		return nil, fmt.Errorf("sqltypes: cannot encode %T as polygon", value)
	}
	return appendPointListText(dst, p.Points, '(', ')'), nil
}

func (PolygonCodec) DecodeBinary(src []byte) (any, error) {
	pts, err := parsePointListBinary(src)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid polygon binary: %w", err)
	}
	return Polygon{Points: pts, Valid: true}, nil
}

func (PolygonCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	p, ok := value.(Polygon)
	if !ok {
		return nil, fmt.Errorf("sqltypes: cannot encode %T as polygon", value)
	}
	return appendPointListBinary(dst, p.Points), nil
}

// Path is the nullable wrapper for PathOID: like Polygon but distinguishes
// an open path (drawn point to point) from a closed one (drawn as a loop).
type Path struct {
	Points []Point
	Closed bool
	Valid  bool
}

// PathCodec implements Codec for PathOID.
type PathCodec struct{}

func (PathCodec) DecodeText(src []byte) (any, error) {
	if len(src) < 2 {
		return nil, fmt.Errorf("sqltypes: invalid path text %q", src)
	}
	closed := src[0] == '('
	openB, closeB := byte('('), byte(')')
	if !closed {
		openB, closeB = '[', ']'
	}
	pts, err := parsePointListText(src, openB, closeB)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid path text %q: %w", src, err)
	}
	return Path{Points: pts, Closed: closed, Valid: true}, nil
}

func (PathCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	p, ok := value.(Path)
	if !ok {
		return nil, fmt.Errorf("sqltypes: cannot encode %T as path", value)
	}
	openB, closeB := byte('('), byte(')')
	if !p.Closed {
		openB, closeB = '[', ']'
	}
	return appendPointListText(dst, p.Points, openB, closeB), nil
}

func (PathCodec) DecodeBinary(src []byte) (any, error) {
	if len(src) < 1 {
		return nil, fmt.Errorf("sqltypes: invalid path binary length %d", len(src))
	}
	closed := src[0] != 0
	pts, err := parsePointListBinary(src[1:])
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid path binary: %w", err)
	}
	return Path{Points: pts, Closed: closed, Valid: true}, nil
}

func (PathCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	p, ok := value.(Path)
	if !ok {
		return nil, fmt.Errorf("sqltypes: cannot encode %T as path", value)
	}
	if p.Closed {
		dst = append(dst, 1)
	} else {
		dst = append(dst, 0)
	}
	return appendPointListBinary(dst, p.Points), nil
}

// Circle is the nullable wrapper for CircleOID: a center point and radius.
type Circle struct {
	X, Y, R float64
	Valid   bool
}

// CircleCodec implements Codec for CircleOID.
type CircleCodec struct{}

func (CircleCodec) DecodeText(src []byte) (any, error) {
	s := strings.Trim(string(src), "<>")
	idx := strings.LastIndexByte(s, ',')
	if idx < 0 || !strings.HasPrefix(s, "(") {
		return nil, fmt.Errorf("sqltypes: invalid circle text %q", src)
	}
	center := strings.Trim(s[:idx], "()")
	r, err := strconv.ParseFloat(s[idx+1:], 64)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid circle radius %q", s[idx+1:])
	}
	parts := strings.SplitN(center, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("sqltypes: invalid circle center %q", center)
	}
	vals, err := parseFloats(parts)
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid circle center %q: %w", center, err)
	}
	return Circle{X: vals[0], Y: vals[1], R: r, Valid: true}, nil
}

func (CircleCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	c, ok := value.(Circle)
	if !ok {
		return nil, fmt.Errorf("sqltypes: cannot encode %T as circle", value)
	}
	dst = append(dst, '<')
	dst = appendPointText(dst, c.X, c.Y)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, c.R, 'g', -1, 64)
	dst = append(dst, '>')
	return dst, nil
}

func (CircleCodec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 24 {
		return nil, fmt.Errorf("sqltypes: invalid circle binary length %d", len(src))
	}
	return Circle{
		X:     math.Float64frombits(be64(src[0:8])),
		Y:     math.Float64frombits(be64(src[8:16])),
		R:     math.Float64frombits(be64(src[16:24])),
		Valid: true,
	}, nil
}

func (CircleCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	c, ok := value.(Circle)
	if !ok {
		return nil, fmt.Errorf("sqltypes: cannot encode %T as circle", value)
	}
	dst = appendPointBinary(dst, c.X, c.Y)
	dst = appendBE64(dst, math.Float64bits(c.R))
	return dst, nil
}

func parseFloats(parts []string) ([]float64, error) {
	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// parsePointPairText parses the "(x1,y1),(x2,y2)" shape shared by Box and
// LineSegment text. Callers pass the text through unchanged, so an outer
// pair of delimiters around the two points is not accepted.
func parsePointPairText(src []byte) ([2]Point, error) {
	pts, err := parsePointListText(src, 0, 0)
	if err != nil {
		return [2]Point{}, err
	}
	if len(pts) != 2 {
		return [2]Point{}, fmt.Errorf("expected 2 points, got %d", len(pts))
	}
	return [2]Point{pts[0], pts[1]}, nil
}

// parsePointListText parses a comma-separated list of "(x,y)" points. When
// open/close are non-zero the whole list is expected to be wrapped in that
// delimiter pair, which is stripped before scanning (Polygon's "(...)"
// and Path's "(...)" / "[...]"); a zero pair scans the list as-is (Box and
// LineSegment, which carry no outer wrapper of their own).
func parsePointListText(src []byte, open, closeB byte) ([]Point, error) {
	s := string(src)
	if open != 0 {
		if len(s) < 2 || s[0] != open || s[len(s)-1] != closeB {
			return nil, fmt.Errorf("missing %c...%c wrapper", open, closeB)
		}
		s = s[1 : len(s)-1]
	}

	var points []Point
	for len(s) > 0 {
		if s[0] != '(' {
			return nil, fmt.Errorf("expected '(' at %q", s)
		}
		end := strings.IndexByte(s, ')')
		if end < 0 {
			return nil, fmt.Errorf("unterminated point in %q", s)
		}
		parts := strings.SplitN(s[1:end], ",", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid point %q", s[:end+1])
		}
		vals, err := parseFloats(parts)
		if err != nil {
			return nil, err
		}
		points = append(points, Point{X: vals[0], Y: vals[1], Valid: true})

		s = s[end+1:]
		if len(s) == 0 {
			break
		}
		if s[0] != ',' {
			return nil, fmt.Errorf("expected ',' at %q", s)
		}
		s = s[1:]
	}
	return points, nil
}

func appendPointListText(dst []byte, points []Point, open, closeB byte) []byte {
	if open != 0 {
		dst = append(dst, open)
	}
	for i, p := range points {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = appendPointText(dst, p.X, p.Y)
	}
	if closeB != 0 {
		dst = append(dst, closeB)
	}
	return dst
}

func parsePointListBinary(src []byte) ([]Point, error) {
	if len(src) < 4 {
		return nil, fmt.Errorf("invalid length %d", len(src))
	}
	count := int(int32(be32(src[0:4])))
	if count < 0 || 4+count*16 != len(src) {
		return nil, fmt.Errorf("invalid length %d for %d points", len(src), count)
	}
	points := make([]Point, count)
	rp := 4
	for i := range points {
		x := math.Float64frombits(be64(src[rp : rp+8]))
		y := math.Float64frombits(be64(src[rp+8 : rp+16]))
		points[i] = Point{X: x, Y: y, Valid: true}
		rp += 16
	}
	return points, nil
}

func appendPointListBinary(dst []byte, points []Point) []byte {
	dst = appendBE32(dst, uint32(len(points)))
	for _, p := range points {
		dst = appendPointBinary(dst, p.X, p.Y)
	}
	return dst
}
