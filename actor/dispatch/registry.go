// Package dispatch reflects over a registered actor implementation type to
// build its dispatch map, generalizing the reflection walk used by
// dapr/go-sdk's actor/manager package (suitableMethods/suiteMethod) to Go's
// lack of a class-inheritance chain: instead of walking a method-resolution
// order and selecting members declared on an interface base, this package
// computes the impl type's own exported methods and subtracts the methods
// promoted by the embedded actor.Base, leaving exactly the methods the
// concrete type itself contributes.
package dispatch

import (
	"context"
	"reflect"

	"github.com/daprkit/actorhost/actor"
)

var (
	ctxType   = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType   = reflect.TypeOf((*error)(nil)).Elem()
	actorType = reflect.TypeOf((*actor.Actor)(nil)).Elem()
	remindType = reflect.TypeOf((*actor.Remindable)(nil)).Elem()
	baseType  = reflect.TypeOf(actor.Base{})
)

// reminderMethodName is excluded from the dispatch map: it is invoked only
// through the dedicated fireReminder pipeline, never via dispatch.
const reminderMethodName = "ReceiveReminder"

// Registry holds the built dispatch map for one registered actor type.
type Registry struct {
	info    actor.TypeInfo
	entries map[string]actor.DispatchEntry
}

// TypeName derives the advertised actor type name from implType: its
// constructor/class simple name, per spec.md §3 ("the type name is the
// constructor/class simple name"). implType may be the actor's concrete
// struct type or a pointer to it; pointers are dereferenced first.
func TypeName(implType reflect.Type) string {
	for implType.Kind() == reflect.Ptr {
		implType = implType.Elem()
	}

	return implType.Name()
}

// methodNameOverrides returns the override table an implType supplies via
// actor.MethodNameOverrides, if it implements that optional interface. It is
// safe to call on a zero-value instance: the hook is expected to return a
// static table, not depend on instance state.
func methodNameOverrides(implType reflect.Type) map[string]string {
	overrideType := reflect.TypeOf((*actor.MethodNameOverrides)(nil)).Elem()
	if !implType.Implements(overrideType) {
		return nil
	}

	zero := reflect.New(implType.Elem()).Interface().(actor.MethodNameOverrides)

	return zero.ActorMethodNames()
}

// Describe reflects over implType (a pointer type whose element embeds
// actor.Base) and builds its Registry. The advertised type name is derived
// from implType itself via TypeName, never supplied by the caller, so it can
// never diverge from the concrete implementation (spec.md §3's invariant).
// Describe fails with actor.ErrNotAnActor if implType does not satisfy the
// actor.Actor contract, and with actor.ErrNoInterfaces if no dispatchable
// methods are found.
func Describe(implType reflect.Type) (*Registry, error) {
	if implType.Kind() != reflect.Ptr {
		return nil, actor.ErrNotAnActor
	}

	if !implType.Implements(actorType) {
		return nil, actor.ErrNotAnActor
	}

	typeName := TypeName(implType)
	overrides := methodNameOverrides(implType)

	baseNames := methodNameSet(reflect.PointerTo(baseType))
	baseNames[reminderMethodName] = struct{}{}

	entries := make(map[string]actor.DispatchEntry)
	for i := 0; i < implType.NumMethod(); i++ {
		m := implType.Method(i)
		if _, isBase := baseNames[m.Name]; isBase {
			continue
		}
		if !isExported(m.Name) {
			continue
		}

		argType, returnType, ok := validateMethod(m)
		if !ok {
			log.DebugS(context.Background(), "skipping non-dispatchable method",
				"actor_type", typeName, "method", m.Name)
			continue
		}

		actorMethodName := m.Name
		if override, ok := overrides[m.Name]; ok && override != "" {
			actorMethodName = override
		}

		entries[actorMethodName] = actor.DispatchEntry{
			ActorMethodName: actorMethodName,
			Method:          m,
			ArgType:         argType,
			ReturnType:      returnType,
		}
	}

	if len(entries) == 0 {
		return nil, actor.ErrNoInterfaces
	}

	info := actor.TypeInfo{
		TypeName:          typeName,
		ImplType:          implType,
		IsReminderCapable: implType.Implements(remindType),
	}

	return &Registry{info: info, entries: entries}, nil
}

// Info returns the TypeInfo this Registry was built for.
func (r *Registry) Info() actor.TypeInfo {
	return r.info
}

// Entries returns the dispatch map: actorMethodName -> DispatchEntry.
func (r *Registry) Entries() map[string]actor.DispatchEntry {
	return r.entries
}

// Entry looks up a single dispatch entry by name.
func (r *Registry) Entry(name string) (actor.DispatchEntry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

func methodNameSet(t reflect.Type) map[string]struct{} {
	names := make(map[string]struct{}, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		names[t.Method(i).Name] = struct{}{}
	}
	return names
}

func isExported(name string) bool {
	if name == "" {
		return false
	}
	r := rune(name[0])
	return r >= 'A' && r <= 'Z'
}

// validateMethod checks that m has the dispatchable shape
// func(ctx context.Context[, arg T]) ([R, ]error) and returns the argument
// and return types (nil when absent).
func validateMethod(m reflect.Method) (argType, returnType reflect.Type, ok bool) {
	t := m.Type

	if t.NumIn() < 2 || t.In(1) != ctxType {
		return nil, nil, false
	}

	switch t.NumIn() {
	case 2:
		argType = nil
	case 3:
		argType = t.In(2)
	default:
		return nil, nil, false
	}

	switch t.NumOut() {
	case 1:
		if t.Out(0) != errType {
			return nil, nil, false
		}
		returnType = nil
	case 2:
		if t.Out(1) != errType {
			return nil, nil, false
		}
		returnType = t.Out(0)
	default:
		return nil, nil, false
	}

	return argType, returnType, true
}
