// Package mail implements the outbox: domain code publishes mail events to a
// Redis Stream after its own writes commit, and a consumer group delivers
// them over SMTP, appending a Notification audit row for every attempt.
// Delivery never feeds back into the operation that produced the event.
package mail

// Stream and consumer group constants
const (
	StreamOutbox = "mail:outbox"
	GroupSenders = "mail-senders"
)

// Schema version constant
const SchemaVersionV1 = "v1"

// Event is one queued mail. Type matches the Notification log taxonomy
// (invite, accept, reject, verify, reset, reminder, other).
type Event struct {
	Type       string `json:"type"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	UserID     *uint  `json:"user_id,omitempty"`
	PropertyID *uint  `json:"property_id,omitempty"`
}
