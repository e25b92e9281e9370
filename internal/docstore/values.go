package docstore

import (
	"encoding/json"
	"strconv"
	"time"
)

// Field readers tolerate the value shapes produced by the different backends:
// native Go values from Memory, JSON-decoded values from Postgres and
// normalised BSON from Mongo.

func String(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

func Float(data map[string]any, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		// older devices wrote speed and distance as formatted strings
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// Bool reports the value of key and whether it was present as a boolean.
func Bool(data map[string]any, key string) (bool, bool) {
	v, ok := data[key].(bool)
	return v, ok
}

func Time(data map[string]any, key string) time.Time {
	switch v := data[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	case int64:
		return time.UnixMilli(v)
	case float64:
		return time.UnixMilli(int64(v))
	}
	return time.Time{}
}
