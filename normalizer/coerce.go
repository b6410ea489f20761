package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var errUnsupportedType = errors.New("unsupported type")

// layouts accepted for textual timestamps, tried in order.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime converts a raw last_time value. Naive timestamps are interpreted
// as UTC and integers as unix seconds. ok is false if the value is absent.
func parseTime(v any) (t time.Time, ok bool, err error) {
	switch v := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return v.UTC(), true, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, false, nil
		}
		return v.UTC(), true, nil
	case int64:
		return time.Unix(v, 0).UTC(), true, nil
	case int:
		return time.Unix(int64(v), 0).UTC(), true, nil
	case float64:
		return unixFloat(v)
	case json.Number:
		if sec, err := v.Int64(); err == nil {
			return time.Unix(sec, 0).UTC(), true, nil
		}
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, false, err
		}
		return unixFloat(f)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false, nil
		}
		var last error
		for _, layout := range layouts {
			t, err := time.Parse(layout, s)
			if err == nil {
				return t.UTC(), true, nil
			}
			last = err
		}
		return time.Time{}, false, last
	}
	return time.Time{}, false, fmt.Errorf("%w %T", errUnsupportedType, v)
}

func unixFloat(v float64) (time.Time, bool, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, false, fmt.Errorf("not a finite number")
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true, nil
}

// parseBool coerces a raw flag. Anything that isn't recognizably true is false.
func parseBool(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i != 0
		}
		f, err := v.Float64()
		return err == nil && f != 0
	}
	return false
}

// identifier renders a raw identifier. Empty strings are treated as absent.
func identifier(v any) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case int64:
		return strconv.FormatInt(v, 10), true
	case int:
		return strconv.Itoa(v), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float64:
		return formatFloat(v), true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		s := v.String()
		if !strings.ContainsAny(s, ".eE") {
			// integer beyond int64, keep the digits as written
			return s, s != ""
		}
		if f, err := v.Float64(); err == nil {
			return formatFloat(f), true
		}
		return s, s != ""
	case fmt.Stringer:
		s := v.String()
		return s, s != ""
	}
	return fmt.Sprint(v), true
}

func formatFloat(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func text(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	}
	return fmt.Sprint(v)
}
