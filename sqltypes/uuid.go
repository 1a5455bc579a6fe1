package sqltypes

import (
	"fmt"

	"github.com/gofrs/uuid"
)

// UUID is the nullable wrapper for UUIDOID.
type UUID struct {
	UUID  uuid.UUID
	Valid bool
}

// UUIDCodec implements Codec for UUIDOID, backed by gofrs/uuid for parsing
// and formatting.
type UUIDCodec struct{}

func (UUIDCodec) DecodeText(src []byte) (any, error) {
	u, err := uuid.FromString(string(src))
	if err != nil {
		return nil, fmt.Errorf("sqltypes: invalid uuid text %q: %w", src, err)
	}
	return UUID{UUID: u, Valid: true}, nil
}

func (UUIDCodec) EncodeText(dst []byte, value any) ([]byte, error) {
	u, err := asUUID(value)
	if err != nil {
		return nil, err
	}
	return append(dst, u.String()...), nil
}

func (UUIDCodec) DecodeBinary(src []byte) (any, error) {
	if len(src) != 16 {
		return nil, fmt.Errorf("sqltypes: invalid uuid binary length %d", len(src))
	}
	var u uuid.UUID
	copy(u[:], src)
	return UUID{UUID: u, Valid: true}, nil
}

func (UUIDCodec) EncodeBinary(dst []byte, value any) ([]byte, error) {
	u, err := asUUID(value)
	if err != nil {
		return nil, err
	}
	return append(dst, u[:]...), nil
}

func asUUID(value any) (uuid.UUID, error) {
	switch v := value.(type) {
	case UUID:
		return v.UUID, nil
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case string:
		return uuid.FromString(v)
	default:
		return uuid.UUID{}, fmt.Errorf("sqltypes: cannot encode %T as uuid", value)
	}
}
