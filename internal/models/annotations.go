package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ValueKind enumerates the JSON-like shapes an annotation value can take.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a single device-supplied annotation value.
// Only the field matching Kind is meaningful.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Number json.Number
	String string
	Array  []Value
	Object Annotations
}

// Annotation is one key/value pair of an Annotations list.
type Annotation struct {
	Key   string
	Value Value
}

// Annotations is an ordered key/value list of additional fields reported by a device.
// Keys are unique; decoding keeps the position of the first occurrence of a key.
type Annotations []Annotation

// NullValue returns a JSON null.
func NullValue() Value { return Value{Kind: KindNull} }

// BoolValue wraps a JSON boolean.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// StringValue wraps a JSON string.
func StringValue(s string) Value { return Value{Kind: KindString, String: s} }

// IntValue wraps an integral JSON number.
func IntValue(i int64) Value { return Value{Kind: KindNumber, Number: json.Number(strconv.FormatInt(i, 10))} }

// ObjectValue wraps a nested JSON object.
func ObjectValue(a Annotations) Value { return Value{Kind: KindObject, Object: a} }

// FloatValue encodes f with the shortest representation that round-trips.
func FloatValue(f float64) Value {
	return Value{Kind: KindNumber, Number: json.Number(strconv.FormatFloat(f, 'f', -1, 64))}
}

// Get returns the value stored under key.
func (a Annotations) Get(key string) (Value, bool) {
	for _, kv := range a {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the value of an existing key in place or appends a new pair.
func (a Annotations) Set(key string, v Value) Annotations {
	for i := range a {
		if a[i].Key == key {
			a[i].Value = v
			return a
		}
	}
	return append(a, Annotation{Key: key, Value: v})
}

// Without returns a copy of a with every key in skip removed.
func (a Annotations) Without(skip map[string]struct{}) Annotations {
	out := make(Annotations, 0, len(a))
	for _, kv := range a {
		if _, ok := skip[kv.Key]; ok {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// Map converts the list into plain Go values suitable for json.Marshal.
func (a Annotations) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(a))
	for _, kv := range a {
		m[kv.Key] = kv.Value.Interface()
	}
	return m
}

// Interface converts v into the plain Go value encoding/json would produce with UseNumber.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Number
	case KindString:
		return v.String
	case KindArray:
		arr := make([]interface{}, len(v.Array))
		for i, item := range v.Array {
			arr[i] = item.Interface()
		}
		return arr
	case KindObject:
		return v.Object.Map()
	default:
		return nil
	}
}

// Int64 returns the value as an integer if it is a number without loss.
// Floating point numbers are rounded to the nearest integer; non-finite
// numbers and numbers outside the int64 range are rejected.
func (v Value) Int64() (int64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	if i, err := v.Number.Int64(); err == nil {
		return i, true
	}
	f, err := v.Number.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Round(f)
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Float64 returns the value as a float if it is a number.
func (v Value) Float64() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	f, err := v.Number.Float64()
	return f, err == nil
}

// MarshalJSON encodes the list as a JSON object preserving key order.
func (a Annotations) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := kv.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order. A JSON null yields a nil list.
func (a *Annotations) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("annotations: expected JSON object")
	}
	obj, err := decodeObjectBody(dec)
	if err != nil {
		return err
	}
	*a = obj
	return nil
}

// MarshalJSON encodes the value according to its kind.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.Bool)
	case KindNumber:
		if v.Number == "" {
			return []byte("0"), nil
		}
		return []byte(v.Number), nil
	case KindString:
		return json.Marshal(v.String)
	case KindArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.Array {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindObject:
		return v.Object.MarshalJSON()
	}
	return nil, fmt.Errorf("annotations: unknown value kind %d", v.Kind)
}

// UnmarshalJSON decodes any JSON value.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	decoded, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		return Value{Kind: KindNumber, Number: t}, nil
	case string:
		return StringValue(t), nil
	case json.Delim:
		switch t {
		case '[':
			arr := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				arr = append(arr, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{Kind: KindArray, Array: arr}, nil
		case '{':
			obj, err := decodeObjectBody(dec)
			if err != nil {
				return Value{}, err
			}
			return ObjectValue(obj), nil
		}
	}
	return Value{}, fmt.Errorf("annotations: unexpected token %v", tok)
}

// decodeObjectBody reads key/value pairs up to and including the closing brace.
func decodeObjectBody(dec *json.Decoder) (Annotations, error) {
	obj := Annotations{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("annotations: unexpected key %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		obj = obj.Set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}
