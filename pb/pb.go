// Package pb holds the wire messages exchanged between the server and its
// clients and their protobuf encoding.
//
// Optional fields are pointers, following the proto3 "optional" layout: a nil
// pointer is never written to the wire and decodes back to nil, so receivers
// can tell an absent field from a zero one.
package pb

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Kind tags the payload carried by an Envelope.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindConnectAck
	KindSnapshot
	KindRequestEntitySpawn
	KindEntitySpawn
)

func (k Kind) String() string {
	switch k {
	case KindConnectAck:
		return "ConnectAck"
	case KindSnapshot:
		return "Snapshot"
	case KindRequestEntitySpawn:
		return "RequestEntitySpawn"
	case KindEntitySpawn:
		return "EntitySpawn"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

var (
	ErrUnknownKind = errors.New("pb: unknown message kind")
	ErrNilMessage  = errors.New("pb: nil message")
)

// Message is implemented by every payload type of this package.
type Message interface {
	Kind() Kind
	appendTo(b []byte) []byte
	unmarshal(b []byte) error
}

func newMessage(k Kind) (Message, error) {
	switch k {
	case KindConnectAck:
		return &ConnectAck{}, nil
	case KindSnapshot:
		return &Snapshot{}, nil
	case KindRequestEntitySpawn:
		return &RequestEntitySpawn{}, nil
	case KindEntitySpawn:
		return &EntitySpawn{}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownKind, k)
}

// Envelope frames one message on a logical channel.
type Envelope struct {
	Kind    Kind
	Channel uint32
	Payload []byte
}

var envelopeFields = fieldTypes{
	1: protowire.VarintType,
	2: protowire.VarintType,
	3: protowire.BytesType,
}

func (e *Envelope) appendTo(b []byte) []byte {
	b = appendVarint(b, 1, uint64(e.Kind))
	if e.Channel != 0 {
		b = appendVarint(b, 2, uint64(e.Channel))
	}
	if len(e.Payload) > 0 {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Payload)
	}
	return b
}

func (e *Envelope) unmarshal(b []byte) error {
	return consumeFields(b, envelopeFields, func(num protowire.Number, b []byte) int {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n >= 0 && v > math.MaxUint8 {
				// Kind(v) would wrap onto a known kind.
				e.Kind = KindUnknown
				return n
			}
			e.Kind = Kind(v)
			return n
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n >= 0 && v > math.MaxUint32 {
				return errCodeInvalid
			}
			e.Channel = uint32(v)
			return n
		default:
			v, n := protowire.ConsumeBytes(b)
			e.Payload = append([]byte(nil), v...)
			return n
		}
	})
}

// Marshal encodes a single message without an envelope.
func Marshal(m Message) ([]byte, error) {
	if m == nil {
		return nil, ErrNilMessage
	}
	return m.appendTo(nil), nil
}

// Unmarshal decodes b into m, replacing its contents.
func Unmarshal(b []byte, m Message) error {
	if m == nil {
		return ErrNilMessage
	}
	return m.unmarshal(b)
}

// Encode wraps m in an envelope for the given channel.
func Encode(channel uint32, m Message) ([]byte, error) {
	if m == nil {
		return nil, ErrNilMessage
	}
	if _, err := newMessage(m.Kind()); err != nil {
		return nil, err
	}
	e := Envelope{
		Kind:    m.Kind(),
		Channel: channel,
		Payload: m.appendTo(nil),
	}
	return e.appendTo(nil), nil
}

// Decode parses an envelope and its payload.
func Decode(b []byte) (uint32, Message, error) {
	var e Envelope
	if err := e.unmarshal(b); err != nil {
		return 0, nil, err
	}
	m, err := newMessage(e.Kind)
	if err != nil {
		return e.Channel, nil, err
	}
	if err := m.unmarshal(e.Payload); err != nil {
		return e.Channel, nil, fmt.Errorf("decode %v: %w", e.Kind, err)
	}
	return e.Channel, m, nil
}
