package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

func (a Args) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// Int accepts JSON numbers and numeric strings; agents send both.
func (a Args) Int(key string) (int, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing %s", key)
	}

	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%s must be a whole number", key)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s must be a whole number", key)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(n), "%"))
		if err != nil {
			return 0, fmt.Errorf("%s must be a number, got %q", key, n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}
