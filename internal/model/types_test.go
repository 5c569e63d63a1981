package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestAsk_MarshalUsesWireNames(t *testing.T) {
	created := time.Date(2024, 3, 9, 14, 5, 7, 123456789, time.UTC)
	ask := Ask{ID: 7, Askee: 1, Content: "hi", CreatedAt: NewTimestamp(created), Dedup: "abc"}

	data, err := json.Marshal(ask)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"id":7,"askee":1,"content":"hi","createdAt":"2024-03-09 14:05:07.123456","dedup":"abc"}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}
}

func TestAskee_MissingCreatedAtIsNull(t *testing.T) {
	data, err := json.Marshal(Askee{ID: 3, DisplayName: "bob"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"createdAt":null`) {
		t.Fatalf("expected null createdAt, got %s", data)
	}
}

func TestAsk_UnmarshalDefaultsID(t *testing.T) {
	var ask Ask
	if err := json.Unmarshal([]byte(`{"askee":1,"content":"hi","dedup":"abc"}`), &ask); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ask.ID != UnassignedID {
		t.Fatalf("expected id %d, got %d", UnassignedID, ask.ID)
	}
	if ask.CreatedAt != nil {
		t.Fatalf("expected nil createdAt")
	}

	var askee Askee
	if err := json.Unmarshal([]byte(`{"displayName":"bob"}`), &askee); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if askee.ID != UnassignedID || askee.DisplayName != "bob" {
		t.Fatalf("unexpected askee %+v", askee)
	}
}

func TestUnmarshal_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		target  any
		missing string
	}{
		{"askee without name", `{}`, &Askee{}, "displayName"},
		{"askee with null name", `{"displayName":null}`, &Askee{}, "displayName"},
		{"askee name wrong case", `{"DisplayName":"bob"}`, &Askee{}, "displayName"},
		{"ask without content", `{"askee":1,"dedup":"abc"}`, &Ask{}, "content"},
		{"ask without dedup", `{"askee":1,"content":"hi"}`, &Ask{}, "dedup"},
		{"ask without askee", `{"content":"hi","dedup":"abc"}`, &Ask{}, "askee"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := json.Unmarshal([]byte(tt.input), tt.target)
			var missing *MissingFieldError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingFieldError, got %v", err)
			}
			if missing.Field != tt.missing {
				t.Fatalf("expected missing %q, got %q", tt.missing, missing.Field)
			}
			if !strings.Contains(err.Error(), "missing field `"+tt.missing+"`") {
				t.Fatalf("unexpected message %q", err.Error())
			}
		})
	}
}

func TestTimestamp_ParseAcceptsFractionVariants(t *testing.T) {
	for _, in := range []string{"2024-03-09 14:05:07", "2024-03-09 14:05:07.5", "2024-03-09 14:05:07.123456"} {
		if _, err := ParseTimestamp(in); err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", in, err)
		}
	}
	if _, err := ParseTimestamp("2024-03-09T14:05:07Z"); err == nil {
		t.Fatalf("expected error for RFC3339 input")
	}
}

func TestTimeRange_ResolveDefaults(t *testing.T) {
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	before, after := TimeRange{}.Resolve(now)
	if !before.Equal(now) {
		t.Fatalf("expected before=now, got %v", before)
	}
	if !after.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("expected after=now-1d, got %v", after)
	}

	explicit, _ := ParseTimestamp("2020-01-01 00:00:00")
	before, _ = TimeRange{Before: explicit}.Resolve(now)
	if !before.Equal(explicit.Time()) {
		t.Fatalf("expected explicit before, got %v", before)
	}
}
