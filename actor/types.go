package actor

import (
	"reflect"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// TypeInfo is the immutable description of a registered actor type, built
// once by the dispatch registry when the type is registered with a Runtime.
type TypeInfo struct {
	// TypeName is the advertised actor type name, used as the routing key
	// the sidecar sends on every inbound callback.
	TypeName string

	// ImplType is the concrete Go type backing the actor (a pointer type
	// whose element embeds Base).
	ImplType reflect.Type

	// IsReminderCapable is true iff ImplType implements Remindable.
	IsReminderCapable bool
}

// DispatchEntry describes one dispatchable method: the name the sidecar
// invokes it by, the reflected method itself, and its argument/return
// shape. ArgType is nil when the method takes no argument; ReturnType is nil
// when the method returns only an error.
type DispatchEntry struct {
	ActorMethodName string
	Method          reflect.Method
	ArgType         reflect.Type
	ReturnType      reflect.Type
}

// TimerData is the in-process record of a registered, non-durable timer.
// The callback itself lives only in the registering actor; only the wire
// fields are advertised to the sidecar.
type TimerData struct {
	Name         string
	CallbackName string
	State        []byte
	DueTime      time.Duration
	Period       time.Duration
	TTL          fn.Option[time.Duration]
}

// ReminderData is the in-process record of a durable reminder, reconstructed
// from the sidecar's fire-reminder callback body.
type ReminderData struct {
	Name    string
	State   []byte
	DueTime time.Duration
	Period  time.Duration
	TTL     fn.Option[time.Duration]
}
