// Package jsonutil decodes loosely typed JSON fields sent by chat clients.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNull is returned when a required field is missing or null.
var ErrNull = errors.New("value is null")

// FlexibleString converts a json.RawMessage to a string, accepting numbers
// and booleans as well as strings. Numbers keep their literal digits so
// large integer ids are not rounded through float64. Null, objects and
// arrays are errors.
func FlexibleString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", ErrNull
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("expected string or number, got %s", kind(raw))
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}

// FlexibleInt64 decodes an integer sent as a JSON number or as a numeric
// string. A float with no fractional part is accepted.
func FlexibleInt64(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, ErrNull
	}

	var text string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
		text = strings.TrimSpace(text)
	case '{', '[', 't', 'f':
		return 0, fmt.Errorf("expected integer, got %s", kind(raw))
	default:
		text = string(raw)
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid integer: %q", text)
	}
	return int64(f), nil
}

func kind(raw json.RawMessage) string {
	switch raw[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	default:
		return "value"
	}
}
