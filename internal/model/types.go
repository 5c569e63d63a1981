package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnassignedID marks a record the store has not inserted yet.
const UnassignedID int64 = -1

type Askee struct {
	ID          int64      `json:"id"`
	DisplayName string     `json:"displayName"`
	CreatedAt   *Timestamp `json:"createdAt"`
}

type Ask struct {
	ID        int64      `json:"id"`
	Askee     int64      `json:"askee"`
	Content   string     `json:"content"`
	CreatedAt *Timestamp `json:"createdAt"`
	Dedup     string     `json:"dedup"`
}

// MissingFieldError reports a required key that is absent or null.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field `%s`", e.Field)
}

// requireFields checks that every name is present in the object with a
// non-null value. Keys match exactly.
func requireFields(data []byte, names ...string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, name := range names {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			return &MissingFieldError{Field: name}
		}
	}
	return nil
}

// UnmarshalJSON requires displayName and defaults a missing id to UnassignedID.
func (a *Askee) UnmarshalJSON(data []byte) error {
	type plain Askee
	v := plain{ID: UnassignedID}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if err := requireFields(data, "displayName"); err != nil {
		return err
	}
	*a = Askee(v)
	return nil
}

// UnmarshalJSON requires askee, content and dedup. id and createdAt are
// optional.
func (a *Ask) UnmarshalJSON(data []byte) error {
	type plain Ask
	v := plain{ID: UnassignedID}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if err := requireFields(data, "askee", "content", "dedup"); err != nil {
		return err
	}
	*a = Ask(v)
	return nil
}

type TimeRange struct {
	Before *Timestamp `json:"before"`
	After  *Timestamp `json:"after"`
}

// Resolve fills missing bounds: before defaults to now, after to one day before now.
func (r TimeRange) Resolve(now time.Time) (before, after time.Time) {
	before = now.UTC()
	if r.Before != nil {
		before = r.Before.Time()
	}
	after = now.UTC().Add(-24 * time.Hour)
	if r.After != nil {
		after = r.After.Time()
	}
	return before, after
}
