package utils

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToFloat converts a loosely typed value (as decoded from a JSON payload) into a finite float64.
// The second return value is false when v is absent or not numeric.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NonNegative coerces v to a number, mapping absent, malformed and negative input to 0.
func NonNegative(v any) float64 {
	f, ok := ToFloat(v)
	if !ok || f < 0 {
		return 0
	}
	return f
}

// RoundMoney rounds an amount to two decimal places.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}
