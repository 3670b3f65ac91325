// Package wire holds the appointment.v1 messages, encoded in protobuf
// wire format with protowire, and the gRPC codec that carries them.
package wire

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/encoding"
	_ "google.golang.org/grpc/encoding/proto" // registered first so init below replaces it
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Message is implemented by every type in this package.
type Message interface {
	MarshalWire() ([]byte, error)
	UnmarshalWire(b []byte) error
}

var errParse = errors.New("wire: malformed message")

// Codec marshals Message values and falls back to proto.Marshal for
// generated messages (health checks, reflection).
type Codec struct{}

func (Codec) Name() string { return "proto" }

func (Codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case Message:
		return m.MarshalWire()
	case proto.Message:
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("wire: cannot marshal %T", v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case Message:
		return m.UnmarshalWire(data)
	case proto.Message:
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("wire: cannot unmarshal into %T", v)
}

func init() {
	encoding.RegisterCodec(Codec{})
}

// field is one decoded key/value pair. Only varint and length-delimited
// values are kept; other wire types are skipped.
type field struct {
	num protowire.Number
	typ protowire.Type
	u   uint64
	b   []byte
}

func walk(b []byte, visit func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errParse
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.u, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return errParse
		}
		b = b[n:]
		if typ != protowire.VarintType && typ != protowire.BytesType {
			continue
		}
		if err := visit(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) isBytes() bool { return f.typ == protowire.BytesType }

func (f field) str() (string, error) {
	if !f.isBytes() {
		return "", fmt.Errorf("wire: field %d: want bytes", f.num)
	}
	return string(f.b), nil
}

func (f field) i64() (int64, error) {
	if f.isBytes() {
		return 0, fmt.Errorf("wire: field %d: want varint", f.num)
	}
	return int64(f.u), nil
}

func (f field) i32() (int32, error) {
	v, err := f.i64()
	return int32(v), err
}

func (f field) time() (time.Time, error) {
	if !f.isBytes() {
		return time.Time{}, fmt.Errorf("wire: field %d: want message", f.num)
	}
	ts := &timestamppb.Timestamp{}
	if err := proto.Unmarshal(f.b, ts); err != nil {
		return time.Time{}, fmt.Errorf("wire: field %d: %w", f.num, err)
	}
	return ts.AsTime(), nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// appendOptString writes s even when empty, so presence survives.
func appendOptString(b []byte, num protowire.Number, s *string) []byte {
	if s == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, *s)
}

func appendInt(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendOptInt(b []byte, num protowire.Number, v *int32) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(*v)))
}

func appendTime(b []byte, num protowire.Number, t time.Time) ([]byte, error) {
	if t.IsZero() {
		return b, nil
	}
	inner, err := proto.Marshal(timestamppb.New(t))
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner), nil
}

func appendMessage(b []byte, num protowire.Number, m Message) ([]byte, error) {
	inner, err := m.MarshalWire()
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner), nil
}
