package normalizer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// toFloat accepts JSON numbers and numeric strings; anything else is 0.
func toFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toName(v any) string {
	s, ok := v.(string)
	if !ok {
		return PlaceholderName
	}
	if s = strings.TrimSpace(s); s == "" {
		return PlaceholderName
	}
	return s
}
