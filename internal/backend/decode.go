package backend

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Naive ISO layouts carry no zone and are read as local time.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts RFC 3339 and naive ISO timestamps. Unparseable or
// empty input yields the zero time.
func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func unixSeconds(n json.Number) time.Time {
	if n == "" {
		return time.Time{}
	}
	if v, err := n.Int64(); err == nil {
		return time.Unix(v, 0)
	}
	f, err := n.Float64()
	if err != nil {
		return time.Time{}
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// flexBool accepts true/false, 0/1 and null.
type flexBool struct {
	set   bool
	value bool
}

func (b *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null":
		*b = flexBool{}
	case "true", "1":
		*b = flexBool{set: true, value: true}
	case "false", "0":
		*b = flexBool{set: true, value: false}
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*b = flexBool{set: true, value: n != 0}
	}
	return nil
}

func (b flexBool) ptr() *bool {
	if !b.set {
		return nil
	}
	v := b.value
	return &v
}
