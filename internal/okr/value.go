package okr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Value is a numeric field kept as the text the user entered. Stored rows
// carry these as JSON numbers or JSON strings, so both decode. Text is always
// preserved; only its leading number counts, and text without one is treated
// as absent.
type Value string

// NumberValue formats f as a Value.
func NumberValue(f float64) Value {
	return Value(strconv.FormatFloat(f, 'f', -1, 64))
}

// numericPrefix matches the leading decimal number of a cell such as "50%"
// or "12 adet".
var numericPrefix = regexp.MustCompile(`^[+-]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][+-]?[0-9]+)?`)

// Float parses the leading number of the value, so "50%" reads as 50. ok is
// false for blank text or text that does not start with a finite number.
func (v Value) Float() (float64, bool) {
	prefix := numericPrefix.FindString(strings.TrimSpace(string(v)))
	if prefix == "" {
		return 0, false
	}
	return parseFinite(prefix)
}

// exactFloat parses the whole value as a number.
func (v Value) exactFloat() (float64, bool) {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return 0, false
	}
	return parseFinite(s)
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FloatOrZero parses the value, substituting 0 when it is not numeric.
func (v Value) FloatOrZero() float64 {
	f, _ := v.Float()
	return f
}

// IsBlank reports whether the value holds no text.
func (v Value) IsBlank() bool {
	return strings.TrimSpace(string(v)) == ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsBlank() {
		return []byte("null"), nil
	}
	if f, ok := v.exactFloat(); ok {
		return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	return json.Marshal(string(v))
}

func (v *Value) UnmarshalJSON(data []byte) error {
	s, err := decodeScalar(data)
	if err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	*v = Value(s)
	return nil
}

// ID identifies an entity within a dataset. Older rows used numeric ids, so
// JSON numbers are accepted and kept as their literal text.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	s, err := decodeScalar(data)
	if err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(s)
	return nil
}

func (id ID) String() string {
	return string(id)
}

func decodeScalar(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", fmt.Errorf("unexpected JSON %s", string(data))
	}
}

// Weight is a key result's relative importance within its objective. Stored
// rows may carry it as a string; non-numeric text decodes as 0.
type Weight float64

func (w *Weight) UnmarshalJSON(data []byte) error {
	s, err := decodeScalar(data)
	if err != nil {
		return fmt.Errorf("decode weight: %w", err)
	}
	*w = Weight(Value(s).FloatOrZero())
	return nil
}
