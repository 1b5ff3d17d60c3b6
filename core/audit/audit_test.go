package audit

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEntryLineRoundTrip(t *testing.T) {
	ts := time.Date(2021, time.January, 10, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return ts }
	defer func() { nowFunc = time.Now }()

	entry := NewEntry(EventRetryAttempt, map[string]interface{}{"payment_intent_id": "pi_123", "attempt": 1})

	line := entry.MarshalLine()
	want := `[2021-01-10T12:00:00Z] RETRY_ATTEMPT: {"attempt":1,"payment_intent_id":"pi_123"}`
	if line != want {
		t.Errorf("MarshalLine() = %q; want %q", line, want)
	}

	parsed, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine() error = %v", err)
	}
	if !parsed.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v; want %v", parsed.Timestamp, ts)
	}
	if parsed.Type != EventRetryAttempt {
		t.Errorf("Type = %q; want %q", parsed.Type, EventRetryAttempt)
	}
	var payload struct {
		PaymentIntentID string `json:"payment_intent_id"`
		Attempt         int    `json:"attempt"`
	}
	if err := json.Unmarshal(parsed.Payload, &payload); err != nil {
		t.Fatalf("unmarshaling payload: %v", err)
	}
	if payload.PaymentIntentID != "pi_123" || payload.Attempt != 1 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestParseLineMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "empty", line: ""},
		{name: "no brackets", line: "2021-01-10T12:00:00Z RETRY_ATTEMPT: {}"},
		{name: "bad timestamp", line: "[yesterday] RETRY_ATTEMPT: {}"},
		{name: "no event type", line: "[2021-01-10T12:00:00Z] : {}"},
		{name: "no separator", line: "[2021-01-10T12:00:00Z] RETRY_ATTEMPT {}"},
		{name: "invalid json payload", line: "[2021-01-10T12:00:00Z] RETRY_ATTEMPT: {oops"},
		{name: "partial line", line: "[2021-01-10T12:0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseLine(tt.line); err == nil {
				t.Errorf("ParseLine(%q) expected error", tt.line)
			}
		})
	}
}
