package qq

import (
	"bytes"
	"errors"
	"reflect"
	"strconv"

	"github.com/WelcomerTeam/Sandwich-QQBot/sandwichjson"
)

// ErrUnknownPayloadShape is returned when d is neither an object, a boolean nor an integer.
var ErrUnknownPayloadShape = errors.New("unknown payload shape")

var nullLiteral = []byte("null")

type PayloadKind uint8

const (
	PayloadNone PayloadKind = iota
	PayloadDispatch
	PayloadBool
	PayloadInt
)

func (kind PayloadKind) String() string {
	return []string{
		"None",
		"Dispatch",
		"Bool",
		"Int",
	}[kind]
}

// Payload is the d field of an envelope. Exactly one variant is set.
type Payload struct {
	kind    PayloadKind
	body    *DispatchBody
	boolean bool
	integer int64

	raw []byte
}

func NewDispatchPayload(body *DispatchBody) Payload {
	if body == nil {
		body = &DispatchBody{}
	}

	return Payload{kind: PayloadDispatch, body: body}
}

func NewBoolPayload(value bool) Payload {
	return Payload{kind: PayloadBool, boolean: value}
}

func NewIntPayload(value int64) Payload {
	return Payload{kind: PayloadInt, integer: value}
}

func (p Payload) Kind() PayloadKind {
	return p.kind
}

// Dispatch returns the structured body or nil if the payload is another variant.
func (p Payload) Dispatch() *DispatchBody {
	if p.kind != PayloadDispatch {
		return nil
	}

	return p.body
}

func (p Payload) Bool() (bool, bool) {
	return p.boolean, p.kind == PayloadBool
}

func (p Payload) Int() (int64, bool) {
	return p.integer, p.kind == PayloadInt
}

// Raw returns the bytes the payload was decoded from. It is a cache of the
// source and not part of the value: payloads built with the constructors have
// no raw form and Equal ignores it.
func (p Payload) Raw() []byte {
	return p.raw
}

// Equal reports whether both payloads hold the same variant and value.
func (p Payload) Equal(other Payload) bool {
	if p.kind != other.kind {
		return false
	}

	switch p.kind {
	case PayloadDispatch:
		return reflect.DeepEqual(p.body, other.body)
	case PayloadBool:
		return p.boolean == other.boolean
	case PayloadInt:
		return p.integer == other.integer
	default:
		return true
	}
}

// DecodePayload decodes d by trying, in order, the structured body, a boolean
// and an integer. The first variant that type-checks wins.
func DecodePayload(data []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(data)

	if len(trimmed) == 0 || bytes.Equal(trimmed, nullLiteral) {
		return Payload{}, nil
	}

	raw := append([]byte(nil), trimmed...)

	// jsoniter happily decodes non-objects into a struct, so only objects may try the body.
	if trimmed[0] == '{' {
		body := &DispatchBody{}

		if err := sandwichjson.Unmarshal(trimmed, body); err == nil {
			return Payload{kind: PayloadDispatch, body: body, raw: raw}, nil
		}
	}

	if trimmed[0] == 't' || trimmed[0] == 'f' {
		var boolean bool

		if err := sandwichjson.Unmarshal(trimmed, &boolean); err == nil {
			return Payload{kind: PayloadBool, boolean: boolean, raw: raw}, nil
		}
	}

	if integer, err := strconv.ParseInt(string(trimmed), 10, 64); err == nil {
		return Payload{kind: PayloadInt, integer: integer, raw: raw}, nil
	}

	return Payload{}, ErrUnknownPayloadShape
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	decoded, err := DecodePayload(data)
	if err != nil {
		return err
	}

	*p = decoded

	return nil
}

func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case PayloadDispatch:
		return sandwichjson.Marshal(p.body)
	case PayloadBool:
		return strconv.AppendBool(nil, p.boolean), nil
	case PayloadInt:
		return strconv.AppendInt(nil, p.integer, 10), nil
	default:
		return []byte("null"), nil
	}
}
