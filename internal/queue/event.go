// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

// Exchange and queue names.  Every event is published to a durable topic
// exchange with its Type as routing key; the audit queue binds to all of
// them.
const (
	ExchangeName   = "finapp.events"
	AuditQueueName = "finapp.audit"
)

// Event types, used as routing keys.
const (
	UserRegistered = "user.registered"
	AccountCreated = "account.created"
	AccountUpdated = "account.updated"
	AccountDeleted = "account.deleted"
)

// AuditEvent is published after a successful write.  It carries enough
// information for downstream consumers to log or notify without querying
// the primary database.  It never contains credentials.
type AuditEvent struct {
	Type        string `json:"type"`
	ActorID     string `json:"actor_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	Email       string `json:"email,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
	AccountName string `json:"account_name,omitempty"`
	AccountType string `json:"account_type,omitempty"`
	OccurredAt  string `json:"occurred_at"`
}
