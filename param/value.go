package param

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Kaijun101/mavros/errors"
)

// Kind identifies the value kind carried by a Value. The numeric codes match
// the wire representation used by the remote parameter services.
type Kind uint8

// Wire type codes
const (
	KindUnknown Kind = 0
	KindInteger Kind = 2
	KindReal    Kind = 3
	KindString  Kind = 4
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Type tags written to tagged parameter files (MAV_PARAM_TYPE codes)
const (
	TypeTagInt32  = 6
	TypeTagReal32 = 9
)

// Value is a tagged scalar parameter value: integer, real or string.
// The zero Value has KindUnknown and is not valid on the wire.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// IntVal returns an integer-kind Value
func IntVal(v int64) Value {
	return Value{kind: KindInteger, i: v}
}

// RealVal returns a real-kind Value
func RealVal(v float64) Value {
	return Value{kind: KindReal, f: v}
}

// StringVal returns a string-kind Value. String-typed parameters travel the
// wire but are not representable in the tagged file formats.
func StringVal(v string) Value {
	return Value{kind: KindString, s: v}
}

// Kind returns the value kind
func (v Value) Kind() Kind {
	return v.kind
}

// Int returns the integer payload (meaningful for KindInteger)
func (v Value) Int() int64 {
	return v.i
}

// Float returns the real payload (meaningful for KindReal)
func (v Value) Float() float64 {
	return v.f
}

// Str returns the string payload (meaningful for KindString)
func (v Value) Str() string {
	return v.s
}

// Equal reports whether two values have the same kind and payload
func (v Value) Equal(o Value) bool {
	return v == o
}

// Text renders the value the way parameter files expect it. Real values
// always carry a decimal point so that Infer round-trips them as reals.
func (v Value) Text() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		s := strconv.FormatFloat(v.f, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case KindString:
		return v.s
	default:
		return ""
	}
}

// String implements fmt.Stringer
func (v Value) String() string {
	return v.Text()
}

// Infer parses a textual token into a Value: a token containing a decimal
// point parses as a real, anything else as a signed integer.
func Infer(token string) (Value, error) {
	token = strings.TrimSpace(token)

	if strings.Contains(token, ".") {
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return Value{}, errors.WrapInvalid(
				fmt.Errorf("%q: %w", token, errors.ErrBadParamValue),
				"param", "Infer", "parse real")
		}
		return RealVal(f), nil
	}

	i, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return Value{}, errors.WrapInvalid(
			fmt.Errorf("%q: %w", token, errors.ErrBadParamValue),
			"param", "Infer", "parse integer")
	}
	return IntVal(i), nil
}

// TypeTag maps a value to the type tag written by tagged file formats:
// reals map to REAL32 (9), integers to INT32 (6). Other kinds are not
// representable.
func TypeTag(v Value) (int, error) {
	switch v.kind {
	case KindReal:
		return TypeTagReal32, nil
	case KindInteger:
		return TypeTagInt32, nil
	default:
		return 0, errors.WrapInvalid(
			fmt.Errorf("kind %s: %w", v.kind, errors.ErrUnsupportedType),
			"param", "TypeTag", "map value kind")
	}
}

// valueJSON is the wire layout of a Value
type valueJSON struct {
	Type         Kind     `json:"type"`
	IntegerValue *int64   `json:"integer_value,omitempty"`
	DoubleValue  *float64 `json:"double_value,omitempty"`
	StringValue  *string  `json:"string_value,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	wire := valueJSON{Type: v.kind}
	switch v.kind {
	case KindInteger:
		wire.IntegerValue = &v.i
	case KindReal:
		wire.DoubleValue = &v.f
	case KindString:
		wire.StringValue = &v.s
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	var wire valueJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	switch wire.Type {
	case KindInteger:
		var i int64
		if wire.IntegerValue != nil {
			i = *wire.IntegerValue
		}
		*v = IntVal(i)
	case KindReal:
		var f float64
		if wire.DoubleValue != nil {
			f = *wire.DoubleValue
		}
		*v = RealVal(f)
	case KindString:
		var s string
		if wire.StringValue != nil {
			s = *wire.StringValue
		}
		*v = StringVal(s)
	default:
		// Unrecognized wire kinds decode to the zero Value so one exotic
		// parameter in a batched reply does not fail the whole decode.
		// Callers filter KindUnknown out.
		*v = Value{}
	}
	return nil
}

// Parameter is a named, typed scalar held by the remote system
type Parameter struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}
