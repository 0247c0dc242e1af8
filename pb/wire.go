package pb

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// fieldTypes lists the wire type each known field number is expected to have.
// Fields outside the table, or with another wire type, are skipped.
type fieldTypes map[protowire.Number]protowire.Type

func consumeFields(b []byte, fields fieldTypes, fn func(num protowire.Number, b []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if want, ok := fields[num]; ok && want == typ {
			n = fn(num, b)
		} else {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// int32 fields are sign extended like protobuf's int32.
func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	return appendVarint(b, num, uint64(int64(v)))
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	return appendVarint(b, num, uint64(v))
}

func appendFloat32(b []byte, num protowire.Number, v float32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendMessage(b []byte, num protowire.Number, inner []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

func consumeInt32(b []byte) (int32, int) {
	v, n := protowire.ConsumeVarint(b)
	return int32(v), n
}

func consumeInt64(b []byte) (int64, int) {
	v, n := protowire.ConsumeVarint(b)
	return int64(v), n
}

func consumeFloat32(b []byte) (float32, int) {
	v, n := protowire.ConsumeFixed32(b)
	return math.Float32frombits(v), n
}

// consumeMessage decodes an embedded message into m.
func consumeMessage(b []byte, m interface{ unmarshal([]byte) error }) int {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}
	if err := m.unmarshal(v); err != nil {
		return errCodeInvalid
	}
	return n
}

// errCodeInvalid is outside protowire's own codes, so ParseError reports it as
// a generic parse error.
const errCodeInvalid = -100
