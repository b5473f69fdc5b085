package model

import (
	"encoding/json"
	"strconv"
)

// Value is a raw feature reading. The zero Value is null, meaning the hub
// has not reported the feature yet. A null Value is never the same as 0.
type Value struct {
	n     int
	valid bool
}

// Null returns the unreported value.
func Null() Value {
	return Value{}
}

// Int wraps a reported raw integer.
func Int(n int) Value {
	return Value{n: n, valid: true}
}

// IsNull reports whether the hub has not reported this value yet.
func (v Value) IsNull() bool {
	return !v.valid
}

// Get returns the raw integer and whether it was reported.
func (v Value) Get() (int, bool) {
	return v.n, v.valid
}

// Or returns the raw integer, or def when the value is null.
func (v Value) Or(def int) int {
	if !v.valid {
		return def
	}
	return v.n
}

// Ptr returns nil for a null value.
func (v Value) Ptr() *int {
	if !v.valid {
		return nil
	}
	n := v.n
	return &n
}

func (v Value) String() string {
	if !v.valid {
		return "null"
	}
	return strconv.Itoa(v.n)
}

// MarshalJSON encodes null as JSON null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.n)
}

// UnmarshalJSON accepts a JSON number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Null()
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = Int(n)
	return nil
}

// UnmarshalYAML lets hierarchy fixtures use `state: ~` for unreported features.
func (v *Value) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var n *int
	if err := unmarshal(&n); err != nil {
		return err
	}
	if n == nil {
		*v = Null()
		return nil
	}
	*v = Int(*n)
	return nil
}
