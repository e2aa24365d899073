package dispatch

import (
	"context"
	"reflect"

	"github.com/daprkit/actorhost/actor"
)

// Dispatcher resolves a dispatch entry by name and invokes the bound method
// on a concrete actor instance, per spec.md §4.5.
type Dispatcher struct {
	reg *Registry
}

// NewDispatcher builds a Dispatcher from an already-described Registry.
func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// ArgType returns the argument type for methodName, nil if it takes none.
func (d *Dispatcher) ArgType(methodName string) (reflect.Type, error) {
	e, ok := d.reg.Entry(methodName)
	if !ok {
		return nil, actor.ErrNoSuchMethod
	}
	return e.ArgType, nil
}

// ReturnType returns the return type for methodName, nil if it returns only
// an error.
func (d *Dispatcher) ReturnType(methodName string) (reflect.Type, error) {
	e, ok := d.reg.Entry(methodName)
	if !ok {
		return nil, actor.ErrNoSuchMethod
	}
	return e.ReturnType, nil
}

// Dispatch invokes methodName on inst with the given argument (nil when the
// method takes none), returning its result raw, not yet serialized.
func (d *Dispatcher) Dispatch(ctx context.Context, inst actor.Actor, methodName string, arg interface{}) (interface{}, error) {
	e, ok := d.reg.Entry(methodName)
	if !ok {
		return nil, actor.ErrNoSuchMethod
	}

	recv := reflect.ValueOf(inst)
	args := make([]reflect.Value, 0, 3)
	args = append(args, recv, reflect.ValueOf(ctx))

	if e.ArgType != nil {
		if arg == nil {
			args = append(args, reflect.Zero(e.ArgType))
		} else {
			args = append(args, reflect.ValueOf(arg))
		}
	}

	results := e.Method.Func.Call(args)

	var (
		retVal interface{}
		retErr error
	)
	switch len(results) {
	case 1:
		if !results[0].IsNil() {
			retErr = results[0].Interface().(error)
		}
	case 2:
		retVal = results[0].Interface()
		if !results[1].IsNil() {
			retErr = results[1].Interface().(error)
		}
	}

	return retVal, retErr
}
