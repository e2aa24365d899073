package actor

import "errors"

// Sentinel errors for the registration and dispatch failure taxonomy. Callers
// should use errors.Is against these values; the runtime never wraps a
// sidecar error behind one of these, so errors.Is/errors.As keep working
// across the sidecar boundary.
var (
	// ErrNotAnActor is returned when a type registered with the runtime
	// does not embed Base (or otherwise satisfy the actor contract).
	ErrNotAnActor = errors.New("actor: type does not implement the actor contract")

	// ErrNoInterfaces is returned when a registered type exposes no
	// dispatchable methods at all.
	ErrNoInterfaces = errors.New("actor: type declares no dispatchable methods")

	// ErrUnknownActorType is returned when an operation names an actor
	// type that was never registered with the runtime.
	ErrUnknownActorType = errors.New("actor: unknown actor type")

	// ErrNotActivated is returned when deactivating, or dispatching to,
	// an actor id that is not present in the live-instance table after an
	// activation attempt.
	ErrNotActivated = errors.New("actor: instance not activated")

	// ErrNotRemindable is returned when a reminder fires against an actor
	// type that does not implement Remindable.
	ErrNotRemindable = errors.New("actor: type does not implement Remindable")

	// ErrNoSuchMethod is returned when dispatch names a method absent
	// from the type's dispatch map.
	ErrNoSuchMethod = errors.New("actor: no such dispatchable method")

	// ErrReentrancyDepthExceeded is returned when a reentrant call chain
	// exceeds the configured maximum stack depth.
	ErrReentrancyDepthExceeded = errors.New("actor: reentrancy max stack depth exceeded")
)
