package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the wire format for every timestamp: UTC, microseconds, no zone.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// parsing accepts any number of fractional digits, including none
const timestampParseLayout = "2006-01-02 15:04:05"

type Timestamp time.Time

func NewTimestamp(t time.Time) *Timestamp {
	ts := Timestamp(t.UTC().Truncate(time.Microsecond))
	return &ts
}

func ParseTimestamp(s string) (*Timestamp, error) {
	t, err := time.ParseInLocation(timestampParseLayout, s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return NewTimestamp(t), nil
}

func (t Timestamp) Time() time.Time { return time.Time(t) }

func (t Timestamp) String() string {
	return time.Time(t).UTC().Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}
