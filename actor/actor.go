package actor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/daprkit/actorhost/actor/codec"
	"github.com/daprkit/actorhost/actor/sidecar"
	"github.com/daprkit/actorhost/actor/state"
)

// RuntimeContext bundles the collaborators every actor instance needs:
// its advertised type name, the codec used to serialize method arguments,
// return values, and timer/reminder payloads, and the sidecar client used
// for state, timer, and reminder operations. One RuntimeContext is shared
// across every instance of a registered actor type.
type RuntimeContext struct {
	TypeName string
	Codec    codec.Codec
	Sidecar  sidecar.Client
}

// Actor is the minimal contract an ActorManager needs from a hosted actor
// instance. User actor types satisfy it by embedding Base.
type Actor interface {
	ActorID() ID
	StateManager() *state.Manager
}

// Activator is an optional hook: actor types that implement it have
// OnActivate called once, after the state cache is cleared and before the
// instance is installed into the live-instance table.
type Activator interface {
	OnActivate(ctx context.Context) error
}

// Deactivator is an optional hook: actor types that implement it have
// OnDeactivate called once the instance is removed from the live-instance
// table.
type Deactivator interface {
	OnDeactivate(ctx context.Context) error
}

// PreMethodHook is an optional hook invoked immediately before every
// dispatched method body, reminder fire, and timer fire.
type PreMethodHook interface {
	OnPreActorMethod(ctx context.Context, methodName string) error
}

// PostMethodHook is an optional hook invoked immediately after a dispatched
// method body returns successfully, before the state manager is saved.
type PostMethodHook interface {
	OnPostActorMethod(ctx context.Context, methodName string) error
}

// MethodNameOverrides is an optional hook implemented by actor types that
// want one or more dispatchable methods to expose a wire-visible
// actorMethodName different from their Go method name. The returned map is
// keyed by the Go method name; a method absent from the map keeps its own
// name as its actorMethodName (spec.md §3's "may be overridden via an
// annotation on the interface method; otherwise equals the member name" —
// Go has no method annotations, so the override table stands in for one).
type MethodNameOverrides interface {
	ActorMethodNames() map[string]string
}

// Remindable is implemented by actor types that accept durable reminder
// callbacks. TypeRegistry inspects this interface to set TypeInfo's
// IsReminderCapable flag.
type Remindable interface {
	ReceiveReminder(ctx context.Context, name string, state []byte, dueTime, period time.Duration) error
}

// TimerCallback is the signature of an in-process timer body. It is never
// serialized; only the wire-visible TimerData fields are advertised to the
// sidecar.
type TimerCallback func(ctx context.Context, state []byte) error

// Base is the entity every registered actor type embeds. It holds the
// actor's identity, its shared runtime collaborators, its state cache, and
// its timer table, and exposes the user-facing registration API from
// spec.md §4.4. Lifecycle orchestration (activation, dispatch, save) lives
// in the manager package, which operates on Base's owner through the
// optional hook interfaces above rather than through Base itself.
type Base struct {
	id  ID
	rc  RuntimeContext
	sm  *state.Manager

	timersMu sync.Mutex
	timers   map[string]TimerData
	callbacks map[string]TimerCallback
}

// NewBase constructs the embeddable Base for a freshly activated actor
// instance. An actor type's factory function calls this once per
// activation, mirroring the original SDK's `actor_class(ctx, actor_id)`
// construction pattern.
func NewBase(id ID, rc RuntimeContext) Base {
	return Base{
		id:        id,
		rc:        rc,
		sm:        state.New(rc.TypeName, id.String(), rc.Codec, rc.Sidecar),
		timers:    make(map[string]TimerData),
		callbacks: make(map[string]TimerCallback),
	}
}

// ActorID returns the actor's identity.
func (b *Base) ActorID() ID {
	return b.id
}

// StateManager returns the actor's per-instance state cache.
func (b *Base) StateManager() *state.Manager {
	return b.sm
}

// RegisterReminder serializes {name, dueTime, period, data, ttl?} and
// forwards it to the sidecar's registerReminder API. stateBytes is
// base64-encoded into the body's data field before it is handed to the
// sidecar client.
func (b *Base) RegisterReminder(ctx context.Context, name string, stateBytes []byte, dueTime, period time.Duration, ttl fn.Option[time.Duration]) error {
	body, err := marshalReminderBody(name, stateBytes, dueTime, period, ttl)
	if err != nil {
		return err
	}

	log.DebugS(ctx, "registering reminder", "actor_type", b.rc.TypeName, "actor_id", b.id.String(), "reminder", name)

	return b.rc.Sidecar.RegisterReminder(ctx, b.rc.TypeName, b.id.String(), name, body)
}

// UnregisterReminder cancels a previously registered reminder.
func (b *Base) UnregisterReminder(ctx context.Context, name string) error {
	return b.rc.Sidecar.UnregisterReminder(ctx, b.rc.TypeName, b.id.String(), name)
}

// RegisterTimer registers a non-durable timer. When name is empty, a name
// of the form "{id}_Timer_{N}" is generated, where N is one greater than
// the actor's current timer count. The table insert and the sidecar call
// are ordered under the actor's timer mutex so a caller observing a
// successful register subsequently finds the timer in the table.
func (b *Base) RegisterTimer(ctx context.Context, name string, callback TimerCallback, stateBytes []byte, dueTime, period time.Duration, ttl fn.Option[time.Duration]) (string, error) {
	b.timersMu.Lock()
	defer b.timersMu.Unlock()

	if name == "" {
		name = fmt.Sprintf("%s_Timer_%d", b.id.String(), len(b.timers)+1)
	}

	td := TimerData{
		Name:         name,
		CallbackName: name,
		State:        stateBytes,
		DueTime:      dueTime,
		Period:       period,
		TTL:          ttl,
	}

	body, err := marshalTimerBody(td)
	if err != nil {
		return "", err
	}

	if err := b.rc.Sidecar.RegisterTimer(ctx, b.rc.TypeName, b.id.String(), name, body); err != nil {
		return "", err
	}

	b.timers[name] = td
	b.callbacks[name] = callback

	return name, nil
}

// UnregisterTimer cancels the sidecar registration for name and drops it
// from the actor's timer table.
func (b *Base) UnregisterTimer(ctx context.Context, name string) error {
	if err := b.rc.Sidecar.UnregisterTimer(ctx, b.rc.TypeName, b.id.String(), name); err != nil {
		return err
	}

	b.timersMu.Lock()
	defer b.timersMu.Unlock()
	delete(b.timers, name)
	delete(b.callbacks, name)

	return nil
}

// FireTimer looks up name in the timer table and invokes its stored
// callback with its stored state. It is called by the ActorManager on a
// sidecar fireTimer callback.
func (b *Base) FireTimer(ctx context.Context, name string) error {
	b.timersMu.Lock()
	td, ok := b.timers[name]
	cb := b.callbacks[name]
	b.timersMu.Unlock()

	if !ok || cb == nil {
		return fmt.Errorf("actor: no such timer %q", name)
	}

	log.DebugS(ctx, "firing timer", "actor_type", b.rc.TypeName, "actor_id", b.id.String(), "timer", name)

	return cb(ctx, td.State)
}
