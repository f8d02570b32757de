package remfits

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/astrogo/fitsio"
)

// Header holds the FITS header cards of the primary HDU keyed by
// upper-case keyword.
type Header struct {
	values map[string]interface{}
}

func NewHeader() *Header {
	return &Header{values: make(map[string]interface{})}
}

func headerFromFITS(h *fitsio.Header) *Header {
	out := NewHeader()
	for _, k := range h.Keys() {
		c := h.Get(k)
		if c == nil || c.Value == nil {
			continue
		}
		out.values[strings.ToUpper(k)] = c.Value
	}
	return out
}

func (h *Header) Has(key string) bool {
	_, ok := h.values[strings.ToUpper(key)]
	return ok
}

func (h *Header) Set(key string, v interface{}) {
	h.values[strings.ToUpper(key)] = v
}

func (h *Header) String(key string) (string, bool) {
	v, ok := h.values[strings.ToUpper(key)]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	default:
		return fmt.Sprint(t), true
	}
}

func (h *Header) Float(key string) (float64, bool) {
	v, ok := h.values[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case string:
		d, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return d, err == nil
	}
	return 0, false
}

func (h *Header) Int(key string) (int, bool) {
	d, ok := h.Float(key)
	if !ok {
		return 0, false
	}
	return int(d), true
}

var dateLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
}

// Time parses a date card as UTC. A bare date is combined with TIME-OBS
// when that key is present.
func (h *Header) Time(key string) (time.Time, bool) {
	s, ok := h.String(key)
	if !ok || s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err != nil {
			continue
		}
		if layout == "2006-01-02" {
			if ts, ok := h.String("TIME-OBS"); ok {
				if tod, err := time.ParseInLocation("15:04:05.999999999", ts, time.UTC); err == nil {
					t = t.Add(time.Duration(tod.Hour())*time.Hour +
						time.Duration(tod.Minute())*time.Minute +
						time.Duration(tod.Second())*time.Second +
						time.Duration(tod.Nanosecond()))
				}
			}
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

type card struct {
	name    string
	value   interface{}
	comment string
}

func (c card) fits() fitsio.Card {
	return fitsio.Card{Name: c.name, Value: c.value, Comment: c.comment}
}
