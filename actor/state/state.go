// Package state implements the per-actor staged state cache: a tracker of
// pending reads and writes that is flushed to the sidecar as one
// transactional batch on save. Values are kept internally as the codec's
// raw serialized bytes (Design Notes' "sum type StateValue = Bytes |
// Tombstone" resolved here as plain []byte plus a Kind tag), with
// type-safe access exposed through generic helper functions.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/daprkit/actorhost/actor/codec"
	"github.com/daprkit/actorhost/actor/sidecar"
)

// ErrAlreadyExists is returned by Add when the key is already tracked or
// already present in the sidecar.
var ErrAlreadyExists = errors.New("state: key already exists")

// ErrStateNotFound is returned by Get/Remove when the key is absent from
// both the tracker and the sidecar.
var ErrStateNotFound = errors.New("state: key not found")

// Kind classifies how a tracked key will be reconciled against the sidecar
// on the next save.
type Kind int

const (
	KindNone Kind = iota
	KindAdd
	KindUpdate
	KindRemove
)

type entry struct {
	raw []byte
	kind Kind
	ttl  fn.Option[int]
}

// Change is one staged write emitted by a completed save: the abstract form
// of spec.md §3's StateChange, before translation to the sidecar's wire
// operations.
type Change struct {
	Name  string
	Raw   []byte
	Kind  Kind
	TTL   fn.Option[int]
}

// Manager is the per-actor-instance state cache. A Manager is not safe for
// use by more than one dispatch at a time unless reentrancy is enabled for
// the owning actor, in which case concurrent frames sharing a reentrancy id
// may observe and mutate the same contextual tracker; the internal mutex
// exists to make that sharing safe, not to serialize unrelated instances.
type Manager struct {
	actorType string
	actorID   string
	codec     codec.Codec
	client    sidecar.Client

	mu       sync.Mutex
	tracker  map[string]*entry
	order    []string
	contexts map[string]*trackerScope

	stateContext string
}

type trackerScope struct {
	tracker map[string]*entry
	order   []string
}

// New creates a state Manager for one actor instance.
func New(actorType, actorID string, cdc codec.Codec, client sidecar.Client) *Manager {
	return &Manager{
		actorType: actorType,
		actorID:   actorID,
		codec:     cdc,
		client:    client,
		tracker:   make(map[string]*entry),
		contexts:  make(map[string]*trackerScope),
	}
}

// SetStateContext scopes subsequent operations to a per-call tracker keyed
// by id, used during reentrant dispatch so that each entered call chain
// observes its own staged writes (spec.md §4.6 dispatchInternal step 2).
func (m *Manager) SetStateContext(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stateContext = id
	if id != "" {
		if _, ok := m.contexts[id]; !ok {
			m.contexts[id] = &trackerScope{tracker: make(map[string]*entry)}
		}
	}
}

// ClearStateContext reverts to the default tracker. Must always run, even
// on failure, matching spec.md §4.6 step 7's finally-clause requirement.
func (m *Manager) ClearStateContext() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stateContext = ""
}

// current returns the active tracker and its insertion-order slice pointer,
// holding m.mu. Callers must already hold m.mu.
func (m *Manager) current() (map[string]*entry, *[]string) {
	if m.stateContext == "" {
		return m.tracker, &m.order
	}

	scope := m.contexts[m.stateContext]
	return scope.tracker, &scope.order
}

func (m *Manager) encode(value interface{}) ([]byte, error) {
	return m.codec.Marshal(value)
}

func (m *Manager) decode(raw []byte, out interface{}) error {
	return m.codec.Unmarshal(raw, out)
}

// containsInSidecar reports whether name is present in the sidecar's state
// store, without staging anything.
func (m *Manager) containsInSidecar(ctx context.Context, name string) (bool, error) {
	_, ok, err := m.client.GetState(ctx, m.actorType, m.actorID, name)
	return ok, err
}

func insertOrdered(t map[string]*entry, order *[]string, name string, e *entry) {
	if _, exists := t[name]; !exists {
		*order = append(*order, name)
	}
	t[name] = e
}

// TryAdd stages name=value as a new key. Returns false without staging
// anything if the key is already tracked as add/update/none, or already
// present in the sidecar.
func TryAdd[T any](m *Manager, ctx context.Context, name string, value T) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, order := m.current()

	if e, ok := t[name]; ok {
		switch e.kind {
		case KindAdd, KindUpdate, KindNone:
			return false, nil
		case KindRemove:
			raw, err := m.encode(value)
			if err != nil {
				return false, err
			}
			e.raw = raw
			e.kind = KindUpdate
			e.ttl = fn.None[int]()
			return true, nil
		}
	}

	present, err := m.containsInSidecar(ctx, name)
	if err != nil {
		return false, err
	}
	if present {
		return false, nil
	}

	raw, err := m.encode(value)
	if err != nil {
		return false, err
	}
	insertOrdered(t, order, name, &entry{raw: raw, kind: KindAdd})
	return true, nil
}

// Add stages name=value as a new key, failing with ErrAlreadyExists if it
// is already tracked or already present in the sidecar.
func Add[T any](m *Manager, ctx context.Context, name string, value T) error {
	ok, err := TryAdd(m, ctx, name, value)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

// TryGet returns the staged or sidecar-loaded value for name. ok is false
// when the key is staged for removal or absent everywhere.
func TryGet[T any](m *Manager, ctx context.Context, name string) (ok bool, value T, err error) {
	m.mu.Lock()

	t, order := m.current()

	if e, tracked := t[name]; tracked {
		if e.kind == KindRemove {
			m.mu.Unlock()
			return false, value, nil
		}
		raw := e.raw
		m.mu.Unlock()

		if err := m.decode(raw, &value); err != nil {
			return false, value, err
		}
		return true, value, nil
	}
	m.mu.Unlock()

	raw, present, err := m.client.GetState(ctx, m.actorType, m.actorID, name)
	if err != nil {
		return false, value, err
	}
	if !present {
		return false, value, nil
	}

	m.mu.Lock()
	insertOrdered(t, order, name, &entry{raw: raw, kind: KindNone})
	m.mu.Unlock()

	if err := m.decode(raw, &value); err != nil {
		return false, value, err
	}
	return true, value, nil
}

// Get returns the value for name, failing with ErrStateNotFound if absent.
func Get[T any](m *Manager, ctx context.Context, name string) (T, error) {
	ok, value, err := TryGet[T](m, ctx, name)
	if err != nil {
		return value, err
	}
	if !ok {
		return value, ErrStateNotFound
	}
	return value, nil
}

// Set stages name=value, replacing any existing value and clearing any
// previously staged TTL. An untracked key not present in the sidecar is
// staged as add; an untracked key present in the sidecar is staged as
// update. This is the normative rule from spec.md §4.3, not the
// inconsistent "always add" behavior found in some source variants.
func Set[T any](m *Manager, ctx context.Context, name string, value T) error {
	return setWithOptionalTTL(m, ctx, name, value, fn.None[int]())
}

// SetWithTTL behaves like Set but additionally stages a TTL in seconds. A
// negative ttlSeconds is a no-op that leaves the tracker unchanged.
func SetWithTTL[T any](m *Manager, ctx context.Context, name string, value T, ttlSeconds int) error {
	if ttlSeconds < 0 {
		return nil
	}
	return setWithOptionalTTL(m, ctx, name, value, fn.Some(ttlSeconds))
}

func setWithOptionalTTL[T any](m *Manager, ctx context.Context, name string, value T, ttl fn.Option[int]) error {
	raw, err := m.encode(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	t, order := m.current()

	if e, ok := t[name]; ok {
		e.raw = raw
		e.ttl = ttl
		switch e.kind {
		case KindNone, KindUpdate, KindRemove:
			e.kind = KindUpdate
		case KindAdd:
			e.kind = KindAdd
		}
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	present, err := m.containsInSidecar(ctx, name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, order = m.current()
	kind := KindAdd
	if present {
		kind = KindUpdate
	}
	insertOrdered(t, order, name, &entry{raw: raw, kind: kind, ttl: ttl})
	return nil
}

// TryRemove stages name for removal. Returns false if the key is already
// staged for removal, or absent from both the tracker and the sidecar.
func TryRemove(m *Manager, ctx context.Context, name string) (bool, error) {
	m.mu.Lock()

	t, order := m.current()

	if e, ok := t[name]; ok {
		switch e.kind {
		case KindRemove:
			m.mu.Unlock()
			return false, nil
		case KindAdd:
			delete(t, name)
			removeFromOrder(order, name)
			m.mu.Unlock()
			return true, nil
		default:
			e.kind = KindRemove
			e.ttl = fn.None[int]()
			m.mu.Unlock()
			return true, nil
		}
	}
	m.mu.Unlock()

	present, err := m.containsInSidecar(ctx, name)
	if err != nil {
		return false, err
	}
	if !present {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, order = m.current()
	insertOrdered(t, order, name, &entry{kind: KindRemove})
	return true, nil
}

// Remove stages name for removal, failing with ErrStateNotFound if TryRemove
// returns false.
func Remove(m *Manager, ctx context.Context, name string) error {
	ok, err := TryRemove(m, ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStateNotFound
	}
	return nil
}

// Contains reports whether name is present, treating a staged removal as
// absent.
func Contains(m *Manager, ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	t, _ := m.current()
	if e, ok := t[name]; ok {
		m.mu.Unlock()
		return e.kind != KindRemove, nil
	}
	m.mu.Unlock()

	return m.containsInSidecar(ctx, name)
}

// GetOrAdd returns the existing value for name, staging def as a new entry
// if name was absent (or previously staged for removal).
func GetOrAdd[T any](m *Manager, ctx context.Context, name string, def T) (T, error) {
	ok, value, err := TryGet[T](m, ctx, name)
	if err != nil {
		return value, err
	}
	if ok {
		return value, nil
	}

	raw, err := m.encode(def)
	if err != nil {
		return value, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, order := m.current()

	kind := KindAdd
	if e, tracked := t[name]; tracked && e.kind == KindRemove {
		kind = KindUpdate
	}
	insertOrdered(t, order, name, &entry{raw: raw, kind: kind})
	return def, nil
}

// AddOrUpdate applies factory to the existing value (loaded via TryGet) when
// name is present, staging the result as update; otherwise it stages value
// as a new add.
func AddOrUpdate[T any](m *Manager, ctx context.Context, name string, value T, factory func(name string, existing T) T) error {
	ok, existing, err := TryGet[T](m, ctx, name)
	if err != nil {
		return err
	}

	var raw []byte
	kind := KindAdd
	if ok {
		updated := factory(name, existing)
		raw, err = m.encode(updated)
		kind = KindUpdate
	} else {
		raw, err = m.encode(value)
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, order := m.current()
	insertOrdered(t, order, name, &entry{raw: raw, kind: kind})
	return nil
}

// StateNames returns the tracked keys not staged for removal, in staging
// order. The sidecar is not consulted: names stored only in the sidecar and
// not yet loaded into the tracker are not included.
func StateNames(m *Manager) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, order := m.current()
	names := make([]string, 0, len(t))
	for _, name := range *order {
		if e, ok := t[name]; ok && e.kind != KindRemove {
			names = append(names, name)
		}
	}
	return names
}

// ClearCache drops every tracked entry in the default tracker.
func (m *Manager) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tracker = make(map[string]*entry)
	m.order = nil
}

// SaveState builds the change batch for every tracked entry whose kind is
// not KindNone, in staging order, and commits it via the sidecar's
// transactional save. On success, surviving entries are marked KindNone and
// entries staged for removal are dropped. An empty batch is a no-op: nothing
// is sent to the sidecar and the tracker is left as it is (loaded entries
// remain cached).
func SaveState(m *Manager, ctx context.Context) error {
	m.mu.Lock()
	t, order := m.current()

	changes := make([]Change, 0, len(*order))
	for _, name := range *order {
		e, ok := t[name]
		if !ok || e.kind == KindNone {
			continue
		}
		changes = append(changes, Change{Name: name, Raw: e.raw, Kind: e.kind, TTL: e.ttl})
	}
	m.mu.Unlock()

	if len(changes) == 0 {
		return nil
	}

	ops := make([]sidecar.StateOperationRequest, 0, len(changes))
	for _, c := range changes {
		ops = append(ops, toWireOp(c))
	}

	if err := m.client.SaveStateTransactionally(ctx, m.actorType, m.actorID, ops); err != nil {
		return err
	}

	log.DebugS(ctx, "state saved", "actor_type", m.actorType, "actor_id", m.actorID, "changes", len(changes))

	m.mu.Lock()
	defer m.mu.Unlock()
	t, order = m.current()
	for _, name := range *order {
		e, ok := t[name]
		if !ok {
			continue
		}
		if e.kind == KindRemove {
			delete(t, name)
			continue
		}
		e.kind = KindNone
	}
	*order = compactOrder(t, *order)

	return nil
}

func toWireOp(c Change) sidecar.StateOperationRequest {
	if c.Kind == KindRemove {
		return sidecar.StateOperationRequest{
			Operation: sidecar.OpDelete,
			Request:   sidecar.StateChangeRequest{Key: c.Name},
		}
	}

	req := sidecar.StateChangeRequest{Key: c.Name, Value: rawMessage(c.Raw)}
	c.TTL.WhenSome(func(ttl int) {
		req.Metadata = &sidecar.StateTTLMetadata{TTLSeconds: itoa(ttl)}
	})
	return sidecar.StateOperationRequest{Operation: sidecar.OpUpsert, Request: req}
}

func rawMessage(b []byte) json.RawMessage {
	return json.RawMessage(b)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func removeFromOrder(order *[]string, name string) {
	*order = compactOrderNames(*order, name)
}

func compactOrder(t map[string]*entry, order []string) []string {
	out := order[:0]
	for _, name := range order {
		if _, ok := t[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func compactOrderNames(order []string, drop string) []string {
	out := order[:0]
	for _, name := range order {
		if name != drop {
			out = append(out, name)
		}
	}
	return out
}
