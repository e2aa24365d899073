// Package sidecar declares the abstract collaborator the actor runtime
// invokes outbound: the Dapr sidecar's actor-state and actor-timer/reminder
// APIs. No transport implementation lives here — HTTP/gRPC clients, retry,
// and backoff are explicitly out of scope for this runtime and are supplied
// by the hosting process.
package sidecar

import "context"

// StateOperation is the kind of change carried by one entry of a
// transactional state commit.
type StateOperation string

const (
	OpUpsert StateOperation = "upsert"
	OpDelete StateOperation = "delete"
)

// StateOperationRequest is one entry of a transactional save batch.
type StateOperationRequest struct {
	Operation StateOperation     `json:"operation"`
	Request   StateChangeRequest `json:"request"`
}

// StateChangeRequest is the per-key body of a StateOperationRequest. Value is
// omitted for deletes; Metadata is omitted entirely unless a TTL was staged.
type StateChangeRequest struct {
	Key      string            `json:"key"`
	Value    interface{}       `json:"value,omitempty"`
	Metadata *StateTTLMetadata `json:"metadata,omitempty"`
}

// StateTTLMetadata carries an explicit TTL on a state upsert. TTLSeconds is
// carried as a string to match the sidecar's JSON wire contract.
type StateTTLMetadata struct {
	TTLSeconds string `json:"ttlInSeconds"`
}

// Client is the set of outbound calls the actor runtime makes against the
// sidecar. Implementations are expected to be safe for concurrent use, since
// a single Client is shared across every ActorManager the Runtime hosts.
type Client interface {
	// GetState loads a single key's raw value. ok is false when the key
	// is absent.
	GetState(ctx context.Context, actorType, actorID, key string) (value []byte, ok bool, err error)

	// SaveStateTransactionally commits a batch of state operations for
	// one actor instance as a single sidecar transaction.
	SaveStateTransactionally(ctx context.Context, actorType, actorID string, ops []StateOperationRequest) error

	// RegisterReminder registers a durable reminder. body is the raw
	// JSON the sidecar expects (see actor.ReminderData's wire encoding).
	RegisterReminder(ctx context.Context, actorType, actorID, name string, body []byte) error

	// UnregisterReminder cancels a previously registered reminder.
	UnregisterReminder(ctx context.Context, actorType, actorID, name string) error

	// RegisterTimer registers a non-durable timer. body is the raw JSON
	// the sidecar expects (see actor.TimerData's wire encoding).
	RegisterTimer(ctx context.Context, actorType, actorID, name string, body []byte) error

	// UnregisterTimer cancels a previously registered timer.
	UnregisterTimer(ctx context.Context, actorType, actorID, name string) error

	// InvokeActorMethod calls a method on another actor instance. When
	// reentrancyID is non-empty, implementations must carry it on the
	// outbound request as the agreed header/metadata (Dapr-Reentrancy-Id
	// over HTTP, equivalent gRPC metadata otherwise).
	InvokeActorMethod(ctx context.Context, actorType, actorID, methodName string, data []byte, reentrancyID string) ([]byte, error)
}
