package common

import (
	"encoding/binary"
	"math"
)

// EncodeValue serializes v into buf as 1 null-marker byte followed by the
// column type's fixed width. v must already be cast to the column's kind.
func EncodeValue(t ColumnType, v Value, buf []byte) {
	Assert(len(buf) >= 1+t.Width(), "buffer too small for %s", t)
	for i := range buf[:1+t.Width()] {
		buf[i] = 0
	}
	if v.IsNull() {
		buf[0] = 1
		return
	}
	body := buf[1:]
	switch t.Kind {
	case IntKind:
		binary.LittleEndian.PutUint64(body, uint64(v.Int()))
	case DateKind:
		binary.LittleEndian.PutUint64(body, uint64(v.Date()))
	case FloatKind:
		binary.LittleEndian.PutUint64(body, math.Float64bits(v.Float()))
	case BoolKind:
		if v.Bool() {
			body[0] = 1
		}
	case CharKind, VarcharKind:
		copy(body[:t.Len], v.Str())
	default:
		panic("unknown column type in EncodeValue")
	}
}

// DecodeValue reads a value previously written by EncodeValue.
func DecodeValue(t ColumnType, buf []byte) Value {
	Assert(len(buf) >= 1+t.Width(), "buffer too small for %s", t)
	if buf[0] != 0 {
		return Null()
	}
	body := buf[1:]
	switch t.Kind {
	case IntKind:
		return NewInt(int64(binary.LittleEndian.Uint64(body)))
	case DateKind:
		return NewDate(int64(binary.LittleEndian.Uint64(body)))
	case FloatKind:
		return NewFloat(math.Float64frombits(binary.LittleEndian.Uint64(body)))
	case BoolKind:
		return NewBool(body[0] != 0)
	case CharKind, VarcharKind:
		end := 0
		for end < t.Len && body[end] != 0 {
			end++
		}
		return NewString(string(body[:end]))
	}
	panic("unknown column type in DecodeValue")
}

// Cast coerces v to the column type, applying the permitted widenings:
// INT to FLOAT, BOOL to INT, INT to DATE, and string literals to DATE via
// the default template. Strings must fit the declared length.
func Cast(t ColumnType, v Value) (Value, error) {
	if v.IsNull() {
		return v, nil
	}
	switch t.Kind {
	case IntKind:
		switch v.Kind() {
		case KindInt:
			return v, nil
		case KindBool:
			if v.Bool() {
				return NewInt(1), nil
			}
			return NewInt(0), nil
		}
	case FloatKind:
		switch v.Kind() {
		case KindFloat:
			return v, nil
		case KindInt:
			return NewFloat(float64(v.Int())), nil
		}
	case BoolKind:
		if v.Kind() == KindBool {
			return v, nil
		}
	case DateKind:
		switch v.Kind() {
		case KindDate:
			return v, nil
		case KindInt:
			return NewDate(v.Int()), nil
		case KindString:
			days, err := ParseDate(v.Str(), DefaultDateTemplate)
			if err != nil {
				return Null(), err
			}
			return NewDate(days), nil
		}
	case CharKind, VarcharKind:
		if v.Kind() == KindString {
			if len(v.Str()) > t.Len {
				return Null(), Errorf(TypeMismatch, "string %q exceeds %s", v.Str(), t)
			}
			return v, nil
		}
	}
	return Null(), Errorf(TypeMismatch, "cannot store %s value in %s column", v.Kind(), t)
}
