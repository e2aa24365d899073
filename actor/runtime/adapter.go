package runtime

import "context"

// Adapter is the callback surface a host process's HTTP or gRPC transport
// layer binds to: the five callback entry points plus the configuration
// probe. spec.md §9 Design Notes call for "a thin
// adapter that forwards the five callback entry points to methods on this
// object; the sidecar integration layer instantiates and holds a
// reference" — binding Adapter to an actual mux/server is explicitly out of
// scope (spec.md §1's "HTTP/gRPC transport" exclusion), so only the
// interface and its direct Runtime implementation live here.
type Adapter interface {
	// Activate handles the sidecar's activate callback.
	Activate(ctx context.Context, actorType, actorID string) error

	// Deactivate handles the sidecar's deactivate callback.
	Deactivate(ctx context.Context, actorType, actorID string) error

	// Dispatch handles the sidecar's method-invocation callback,
	// returning the serialized method result. reentrancyID is the value
	// of the inbound Dapr-Reentrancy-Id header/metadata, empty when
	// absent.
	Dispatch(ctx context.Context, actorType, actorID, methodName string, body []byte, reentrancyID string) ([]byte, error)

	// FireTimer handles the sidecar's timer-fire callback.
	FireTimer(ctx context.Context, actorType, actorID, timerName string, body []byte) error

	// FireReminder handles the sidecar's reminder-fire callback.
	FireReminder(ctx context.Context, actorType, actorID, reminderName string, body []byte) error

	// GetConfig handles the sidecar's configuration probe, returning the
	// RuntimeConfig JSON bytes to serve.
	GetConfig(ctx context.Context) ([]byte, error)
}

// adapter forwards Adapter's five callback entry points, plus the
// configuration probe, directly onto a Runtime. It is the only Adapter
// implementation this package ships.
type adapter struct {
	rt *Runtime
}

// NewAdapter wraps rt as an Adapter, ready to be handed to whichever
// transport layer a host process already uses.
func NewAdapter(rt *Runtime) Adapter {
	return &adapter{rt: rt}
}

func (a *adapter) Activate(ctx context.Context, actorType, actorID string) error {
	return a.rt.Activate(ctx, actorType, actorID)
}

func (a *adapter) Deactivate(ctx context.Context, actorType, actorID string) error {
	return a.rt.Deactivate(ctx, actorType, actorID)
}

func (a *adapter) Dispatch(ctx context.Context, actorType, actorID, methodName string, body []byte, reentrancyID string) ([]byte, error) {
	return a.rt.Dispatch(ctx, actorType, actorID, methodName, body, reentrancyID)
}

func (a *adapter) FireTimer(ctx context.Context, actorType, actorID, timerName string, body []byte) error {
	return a.rt.FireTimer(ctx, actorType, actorID, timerName, body)
}

func (a *adapter) FireReminder(ctx context.Context, actorType, actorID, reminderName string, body []byte) error {
	return a.rt.FireReminder(ctx, actorType, actorID, reminderName, body)
}

func (a *adapter) GetConfig(ctx context.Context) ([]byte, error) {
	cfg := a.rt.Config()
	return cfg.MarshalJSON()
}
