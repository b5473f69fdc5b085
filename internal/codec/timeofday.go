package codec

import (
	"time"

	"lightwave/internal/model"
)

const secondsPerDay = 24 * 3600

// TimeLayout is the ISO-8601 UTC form used for decoded times of day.
const TimeLayout = "2006-01-02T15:04:05Z"

// DecodeTimeOfDay combines a "seconds since midnight" reading with the
// separately reported date into a UTC instant. It returns false when any
// part is null or the parts do not form a real date and time.
func DecodeTimeOfDay(seconds, year, month, day model.Value) (time.Time, bool) {
	s, ok := seconds.Get()
	if !ok {
		return time.Time{}, false
	}
	y, ok := year.Get()
	if !ok {
		return time.Time{}, false
	}
	mo, ok := month.Get()
	if !ok {
		return time.Time{}, false
	}
	d, ok := day.Get()
	if !ok {
		return time.Time{}, false
	}
	if s < 0 || s >= secondsPerDay {
		return time.Time{}, false
	}

	hour := s / 3600
	s -= hour * 3600
	minute := s / 60
	second := s - minute*60

	t := time.Date(y, time.Month(mo), d, hour, minute, second, 0, time.UTC)
	// time.Date normalizes out of range dates; reject instead.
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// FormatTimeOfDay is DecodeTimeOfDay rendered as an ISO-8601 string, or
// nil when the time is unknown.
func FormatTimeOfDay(seconds, year, month, day model.Value) *string {
	t, ok := DecodeTimeOfDay(seconds, year, month, day)
	if !ok {
		return nil
	}
	s := t.Format(TimeLayout)
	return &s
}
