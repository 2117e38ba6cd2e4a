package model

import (
	"bytes"
	"fmt"
	"time"
)

// DateTimeLayout is the wire format of every timestamp in the API.
const DateTimeLayout = "2006-01-02 15:04:05"

// DateTime is a time.Time that encodes to JSON using DateTimeLayout.
type DateTime struct {
	time.Time
}

// NewDateTime truncates t to whole seconds, the precision of the wire format.
func NewDateTime(t time.Time) DateTime {
	return DateTime{Time: t.Truncate(time.Second)}
}

// MarshalJSON implements json.Marshaler.
func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateTimeLayout) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DateTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("date must be a string in format %q", DateTimeLayout)
	}
	t, err := ParseDateTime(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ParseDateTime parses a wire timestamp as UTC.
func ParseDateTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must match format %q", s, DateTimeLayout)
	}
	return t, nil
}
