// Package manager implements the per-actor-type dispatch core: activation,
// deactivation, serialized (and optionally reentrant) method dispatch, and
// timer/reminder fires, grounded on spec.md §4.6 and on
// vendor/dapr/go-sdk/actor/manager/manager.go for the Go-idiomatic
// reflection/invocation plumbing.
package manager

import (
	"context"
	"encoding/base64"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/daprkit/actorhost/actor"
	"github.com/daprkit/actorhost/actor/config"
	"github.com/daprkit/actorhost/actor/dispatch"
	"github.com/daprkit/actorhost/actor/state"
)

// Factory constructs a fresh actor instance for a newly activated id. Actor
// types implement this by calling actor.NewBase(id, rc) inside their own
// constructor, mirroring the original SDK's `actor_class(ctx, actor_id)`
// pattern.
type Factory func(id actor.ID, rc actor.RuntimeContext) actor.Actor

// ActorManager owns the live-instance table for one registered actor type.
type ActorManager struct {
	typeName   string
	reg        *dispatch.Registry
	dispatcher *dispatch.Dispatcher
	factory    Factory
	rc         actor.RuntimeContext
	reentrancy fn.Option[config.Reentrancy]

	mu     sync.Mutex
	active map[string]actor.Actor

	locks *keyedLock
}

// New builds an ActorManager for one registered actor type. reentrancy is
// fn.None when reentrancy is disabled for this type.
func New(typeName string, reg *dispatch.Registry, factory Factory, rc actor.RuntimeContext, reentrancy fn.Option[config.Reentrancy]) *ActorManager {
	return &ActorManager{
		typeName:   typeName,
		reg:        reg,
		dispatcher: dispatch.NewDispatcher(reg),
		factory:    factory,
		rc:         rc,
		reentrancy: reentrancy,
		active:     make(map[string]actor.Actor),
		locks:      newKeyedLock(),
	}
}

// Activate constructs an actor for idStr, runs its activation hook
// (clearCache -> OnActivate -> saveState), and installs it into the
// live-instance table. A duplicate activation simply overwrites the
// previous instance and re-runs the hook, matching spec.md §4.6.
func (m *ActorManager) Activate(ctx context.Context, idStr string) error {
	inst := m.factory(actor.NewID(idStr), m.rc)

	inst.StateManager().ClearCache()

	if hook, ok := inst.(actor.Activator); ok {
		if err := hook.OnActivate(ctx); err != nil {
			return err
		}
	}

	if err := state.SaveState(inst.StateManager(), ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.active[idStr] = inst
	m.mu.Unlock()

	log.DebugS(ctx, "actor activated", "actor_type", m.typeName, "actor_id", idStr)

	return nil
}

// Deactivate removes idStr from the live-instance table and runs its
// deactivation hook. Deactivating an id not currently active fails with
// actor.ErrNotActivated.
func (m *ActorManager) Deactivate(ctx context.Context, idStr string) error {
	m.mu.Lock()
	inst, ok := m.active[idStr]
	if ok {
		delete(m.active, idStr)
	}
	m.mu.Unlock()

	if !ok {
		return actor.ErrNotActivated
	}

	m.locks.remove(idStr)
	inst.StateManager().ClearCache()

	if hook, ok := inst.(actor.Deactivator); ok {
		return hook.OnDeactivate(ctx)
	}

	return nil
}

func (m *ActorManager) getOrActivate(ctx context.Context, idStr string) (actor.Actor, error) {
	m.mu.Lock()
	inst, ok := m.active[idStr]
	m.mu.Unlock()
	if ok {
		return inst, nil
	}

	if err := m.Activate(ctx, idStr); err != nil {
		return nil, err
	}

	m.mu.Lock()
	inst, ok = m.active[idStr]
	m.mu.Unlock()
	if !ok {
		return nil, actor.ErrNotActivated
	}

	return inst, nil
}

// dispatchInternal is the serialization envelope shared by Dispatch,
// FireReminder, and FireTimer (spec.md §4.6's _dispatchInternal).
func (m *ActorManager) dispatchInternal(ctx context.Context, idStr, reentrancyID, methodName string, action func(actor.Actor) (interface{}, error)) (interface{}, error) {
	inst, err := m.getOrActivate(ctx, idStr)
	if err != nil {
		return nil, err
	}

	reentrancyCfg, hasReentrancy := m.reentrancy.UnwrapOr(config.Reentrancy{}), m.reentrancy.IsSome()
	reentrancyEnabled := hasReentrancy && reentrancyCfg.Enabled
	maxDepth := reentrancyCfg.MaxStackDepth

	release, err := m.locks.acquire(idStr, reentrancyID, reentrancyEnabled, maxDepth)
	if err != nil {
		return nil, err
	}
	defer release()

	if reentrancyID != "" {
		inst.StateManager().SetStateContext(uuid.NewString())
	}
	defer inst.StateManager().ClearStateContext()

	if hook, ok := inst.(actor.PreMethodHook); ok {
		if err := hook.OnPreActorMethod(ctx, methodName); err != nil {
			inst.StateManager().ClearCache()
			return nil, err
		}
	}

	result, err := action(inst)
	if err != nil {
		inst.StateManager().ClearCache()
		return nil, err
	}

	if hook, ok := inst.(actor.PostMethodHook); ok {
		if err := hook.OnPostActorMethod(ctx, methodName); err != nil {
			inst.StateManager().ClearCache()
			return nil, err
		}
	}

	if err := state.SaveState(inst.StateManager(), ctx); err != nil {
		inst.StateManager().ClearCache()
		return nil, err
	}

	return result, nil
}

// Dispatch decodes bodyBytes as the method's argument type (when it has
// one), invokes it, and returns the serialized return value.
func (m *ActorManager) Dispatch(ctx context.Context, idStr, methodName string, bodyBytes []byte, reentrancyID string) ([]byte, error) {
	entry, ok := m.reg.Entry(methodName)
	if !ok {
		return nil, actor.ErrNoSuchMethod
	}

	var arg interface{}
	if entry.ArgType != nil {
		argPtr := reflect.New(entry.ArgType)
		if len(bodyBytes) > 0 {
			if err := m.rc.Codec.Unmarshal(bodyBytes, argPtr.Interface()); err != nil {
				return nil, err
			}
		}
		arg = argPtr.Elem().Interface()
	}

	result, err := m.dispatchInternal(ctx, idStr, reentrancyID, methodName, func(inst actor.Actor) (interface{}, error) {
		return m.dispatcher.Dispatch(ctx, inst, methodName, arg)
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	return m.rc.Codec.Marshal(result)
}

// FireReminder delivers a durable reminder callback. A body that does not
// decode to a JSON object is silently ignored (spec.md §7's documented
// malformed-reminder exception), not an error.
func (m *ActorManager) FireReminder(ctx context.Context, idStr, reminderName string, body []byte) error {
	if !m.reg.Info().IsReminderCapable {
		return actor.ErrNotRemindable
	}

	var raw map[string]interface{}
	if err := m.rc.Codec.Unmarshal(body, &raw); err != nil {
		return nil
	}

	stateBytes, dueTime, period := parseReminderFields(raw)

	_, err := m.dispatchInternal(ctx, idStr, "", "ReceiveReminder", func(inst actor.Actor) (interface{}, error) {
		r, ok := inst.(actor.Remindable)
		if !ok {
			return nil, actor.ErrNotRemindable
		}
		return nil, r.ReceiveReminder(ctx, reminderName, stateBytes, dueTime, period)
	})

	return err
}

// FireTimer delivers a non-durable timer callback: it looks up timerName in
// the actor's timer table and invokes its stored callback with its stored
// state, per spec.md §4.6.
func (m *ActorManager) FireTimer(ctx context.Context, idStr, timerName string, _ []byte) error {
	_, err := m.dispatchInternal(ctx, idStr, "", "fireTimer:"+timerName, func(inst actor.Actor) (interface{}, error) {
		firer, ok := inst.(interface {
			FireTimer(ctx context.Context, name string) error
		})
		if !ok {
			return nil, fmt.Errorf("actor: %s does not support timers", m.typeName)
		}
		return nil, firer.FireTimer(ctx, timerName)
	})

	return err
}

func parseReminderFields(raw map[string]interface{}) (stateBytes []byte, dueTime, period time.Duration) {
	if s, ok := raw["data"].(string); ok {
		stateBytes, _ = base64.StdEncoding.DecodeString(s)
	}
	if s, ok := raw["dueTime"].(string); ok {
		dueTime, _ = time.ParseDuration(s)
	}
	if s, ok := raw["period"].(string); ok {
		period, _ = time.ParseDuration(s)
	}

	return stateBytes, dueTime, period
}
