// Package runtime implements the process-wide registry of ActorManagers and
// the five inbound callback entry points the sidecar drives, grounded on
// spec.md §4.7 and on original_source/dapr/actor/runtime.py's classmethod
// singleton, translated here into an owned object per spec.md §9 Design
// Notes ("systems implementations should encapsulate it as an owned
// object").
package runtime

import (
	"context"
	"reflect"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/daprkit/actorhost/actor"
	"github.com/daprkit/actorhost/actor/config"
	"github.com/daprkit/actorhost/actor/dispatch"
	"github.com/daprkit/actorhost/actor/manager"
	"github.com/daprkit/actorhost/actor/reentrancy"
)

// Runtime is the process-wide registry of ActorManagers keyed by actor type
// name. One Runtime is constructed per hosting process and shared across
// whatever transport adapter (HTTP, gRPC) the host wires in front of it.
type Runtime struct {
	mu       sync.Mutex
	managers map[string]*manager.ActorManager
	config   config.RuntimeConfig
}

// New builds an empty Runtime advertising config.DefaultRuntimeConfig until
// a type is registered or SetConfig is called.
func New() *Runtime {
	return &Runtime{
		managers: make(map[string]*manager.ActorManager),
		config:   config.DefaultRuntimeConfig(),
	}
}

// RegisterActor describes implType via the dispatch registry, builds an
// ActorManager for it, and installs it, overwriting any prior registration
// under the same type name. The advertised type name is always the one
// dispatch.Describe derives from implType itself (spec.md §3's "the type
// name is the constructor/class simple name" invariant) — it is never taken
// from rc, so the two can never diverge; rc.TypeName is overwritten with the
// derived name before it is handed to the ActorManager. The type name is
// added to the advertised RuntimeConfig entities (spec.md §3's "entities
// equals the union of registered actor type names" invariant). Registering
// the same type twice is idempotent from the caller's perspective:
// RegisteredTypes and the advertised entities still contain exactly one
// entry for it.
func (r *Runtime) RegisterActor(
	implType reflect.Type,
	factory manager.Factory,
	rc actor.RuntimeContext,
	reentrancy fn.Option[config.Reentrancy],
) error {

	reg, err := dispatch.Describe(implType)
	if err != nil {
		return err
	}

	typeName := reg.Info().TypeName
	rc.TypeName = typeName

	mgr := manager.New(typeName, reg, factory, rc, reentrancy)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.managers[typeName] = mgr
	r.config.AddEntity(typeName)

	log.InfoS(context.Background(), "actor type registered", "actor_type", typeName)

	return nil
}

// RegisteredTypes returns the actor type names currently registered.
func (r *Runtime) RegisteredTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.managers))
	for name := range r.managers {
		names = append(names, name)
	}

	return names
}

// Config returns the current RuntimeConfig, as served by the sidecar's
// getConfig probe.
func (r *Runtime) Config() config.RuntimeConfig {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.config
}

// SetConfig replaces the advertised RuntimeConfig wholesale. Callers that
// only want to adjust idle/scan intervals or reentrancy should read Config,
// mutate the copy, and pass it back; Entities populated by prior
// RegisterActor calls are not preserved automatically.
func (r *Runtime) SetConfig(cfg config.RuntimeConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.config = cfg
}

func (r *Runtime) manager(typeName string) (*manager.ActorManager, error) {
	r.mu.Lock()
	mgr, ok := r.managers[typeName]
	r.mu.Unlock()

	if !ok {
		return nil, actor.ErrUnknownActorType
	}

	return mgr, nil
}

// Activate constructs and activates an instance of typeName/idStr.
func (r *Runtime) Activate(ctx context.Context, typeName, idStr string) error {
	mgr, err := r.manager(typeName)
	if err != nil {
		return err
	}

	return mgr.Activate(ctx, idStr)
}

// Deactivate tears down the instance of typeName/idStr.
func (r *Runtime) Deactivate(ctx context.Context, typeName, idStr string) error {
	mgr, err := r.manager(typeName)
	if err != nil {
		return err
	}

	return mgr.Deactivate(ctx, idStr)
}

// FireReminder delivers a durable reminder callback to typeName/idStr.
func (r *Runtime) FireReminder(ctx context.Context, typeName, idStr, reminderName string, body []byte) error {
	mgr, err := r.manager(typeName)
	if err != nil {
		return err
	}

	return mgr.FireReminder(ctx, idStr, reminderName, body)
}

// FireTimer delivers a non-durable timer callback to typeName/idStr.
func (r *Runtime) FireTimer(ctx context.Context, typeName, idStr, timerName string, body []byte) error {
	mgr, err := r.manager(typeName)
	if err != nil {
		return err
	}

	return mgr.FireTimer(ctx, idStr, timerName, body)
}

// Dispatch decodes and invokes methodName on typeName/idStr, establishing a
// ReentrancyContext carrying reentrancyID for the scope of the call so that
// any outbound sidecar.Client.InvokeActorMethod issued from within the
// dispatched method body picks it up automatically (spec.md §4.8, §8's
// "Reentrancy propagation" testable property). An empty reentrancyID means
// the call was not entered reentrantly; no ambient value is set and no
// outbound header/metadata is produced.
func (r *Runtime) Dispatch(ctx context.Context, typeName, idStr, methodName string, body []byte, reentrancyID string) ([]byte, error) {
	mgr, err := r.manager(typeName)
	if err != nil {
		return nil, err
	}

	ctx = reentrancy.WithID(ctx, reentrancyID)

	return mgr.Dispatch(ctx, idStr, methodName, body, reentrancyID)
}
