package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Event types recorded in the audit trail.
const (
	EventPaymentSuccess         = "PAYMENT_SUCCESS"
	EventPaymentFailure         = "PAYMENT_FAILURE"
	EventRetryAttempt           = "RETRY_ATTEMPT"
	EventRetryExhausted         = "RETRY_EXHAUSTED"
	EventRetryError             = "RETRY_ERROR"
	EventWebhookEvent           = "WEBHOOK_EVENT"
	EventWebhookFailure         = "WEBHOOK_FAILURE"
	EventSessionValidationError = "SESSION_VALIDATION_ERROR"
	EventVideoAccess            = "VIDEO_ACCESS"
)

var errMalformedLine = errors.New("malformed audit line")

type (
	// Entry is a single append-only audit record. Entries are immutable
	// once written; ordering is append order.
	Entry struct {
		Timestamp time.Time       `json:"timestamp"`
		Type      string          `json:"type"`
		Payload   json.RawMessage `json:"payload"`
	}

	// Sink is the append-only audit trail. Implementations must serialize
	// concurrent appends; entries are never updated or deleted.
	Sink interface {
		Append(e Entry) error
		// Tail returns up to n most recent entries, oldest first,
		// skipping malformed records.
		Tail(n int) ([]Entry, error)
	}
)

var nowFunc = time.Now // mockable

// NewEntry stamps an entry with the current time; payload must be JSON-marshalable.
func NewEntry(eventType string, payload interface{}) Entry {
	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"marshal_error": err.Error()})
	}
	return Entry{
		Timestamp: nowFunc().UTC(),
		Type:      eventType,
		Payload:   data,
	}
}

// MarshalLine renders the entry in the wire format:
//
//	[2021-01-10T12:00:00Z] RETRY_ATTEMPT: {"payment_intent_id":"pi_123","attempt":1}
func (e Entry) MarshalLine() string {
	return fmt.Sprintf("[%s] %s: %s", e.Timestamp.UTC().Format(time.RFC3339), e.Type, e.Payload)
}

// ParseLine parses a single audit line back into an Entry.
func ParseLine(line string) (Entry, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") {
		return Entry{}, errMalformedLine
	}
	end := strings.Index(line, "] ")
	if end < 0 {
		return Entry{}, errMalformedLine
	}
	ts, err := time.Parse(time.RFC3339, line[1:end])
	if err != nil {
		return Entry{}, errMalformedLine
	}

	rest := line[end+2:]
	sep := strings.Index(rest, ": ")
	if sep < 0 {
		return Entry{}, errMalformedLine
	}
	eventType, payload := rest[:sep], rest[sep+2:]
	if eventType == "" || !json.Valid([]byte(payload)) {
		return Entry{}, errMalformedLine
	}
	return Entry{Timestamp: ts, Type: eventType, Payload: json.RawMessage(payload)}, nil
}
