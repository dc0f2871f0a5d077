package retirement

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Number is a decimal quantity exchanged with the remote service.
//
// The service persists amounts as decimals and sometimes serializes them as
// strings. Number accepts both forms when decoding and always encodes as a
// JSON number.
type Number float64

// Float returns n as a float64.
func (n Number) Float() float64 { return float64(n) }

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("cannot encode non finite number %v", f)
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	f, err := parseNumber(data)
	if err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Int is an integer quantity (year, age, count) exchanged with the remote
// service. Like Number it tolerates numeric strings on decode.
type Int int

// MarshalJSON implements json.Marshaler.
func (i Int) MarshalJSON() ([]byte, error) { return strconv.AppendInt(nil, int64(i), 10), nil }

// UnmarshalJSON implements json.Unmarshaler.
func (i *Int) UnmarshalJSON(data []byte) error {
	f, err := parseNumber(data)
	if err != nil {
		return err
	}
	if f != math.Trunc(f) {
		return fmt.Errorf("invalid integer %v", f)
	}
	*i = Int(f)
	return nil
}

// parseNumber decodes a JSON number, a JSON string holding a number, or null (as zero).
func parseNumber(data []byte) (float64, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return 0, err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return 0, nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", raw, err)
	}
	return f, nil
}

// check that Number and Int are valid json marshall/unmarshaller types.
var _ json.Marshaler = (*Number)(nil)
var _ json.Unmarshaler = (*Number)(nil)
var _ json.Marshaler = (*Int)(nil)
var _ json.Unmarshaler = (*Int)(nil)

// Ptr returns a pointer to a copy of v. Handy to fill patches.
func Ptr[T any](v T) *T { return &v }
