package manager

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"

	"github.com/daprkit/actorhost/actor"
	"github.com/daprkit/actorhost/actor/codec"
	"github.com/daprkit/actorhost/actor/config"
	"github.com/daprkit/actorhost/actor/dispatch"
	"github.com/daprkit/actorhost/actor/sidecar"
)

// fakeClient is a sidecar.Client stand-in shared across this package's
// tests: it serves GetState from an in-memory map, counts transactional
// saves, and treats every other call as a successful no-op.
type fakeClient struct {
	mu    sync.Mutex
	state map[string][]byte
	saves int
}

func newFakeClient() *fakeClient {
	return &fakeClient{state: make(map[string][]byte)}
}

func (f *fakeClient) GetState(ctx context.Context, actorType, actorID, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.state[key]
	return v, ok, nil
}

func (f *fakeClient) SaveStateTransactionally(ctx context.Context, actorType, actorID string, ops []sidecar.StateOperationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	return nil
}

func (f *fakeClient) RegisterReminder(ctx context.Context, actorType, actorID, name string, body []byte) error {
	return nil
}
func (f *fakeClient) UnregisterReminder(ctx context.Context, actorType, actorID, name string) error {
	return nil
}
func (f *fakeClient) RegisterTimer(ctx context.Context, actorType, actorID, name string, body []byte) error {
	return nil
}
func (f *fakeClient) UnregisterTimer(ctx context.Context, actorType, actorID, name string) error {
	return nil
}
func (f *fakeClient) InvokeActorMethod(ctx context.Context, actorType, actorID, methodName string, data []byte, reentrancyID string) ([]byte, error) {
	return nil, nil
}

// simpleActor implements spec.md §8 scenario 1's FakeSimpleActor.
type simpleActor struct {
	actor.Base
}

func newSimpleActor(id actor.ID, rc actor.RuntimeContext) actor.Actor {
	return &simpleActor{Base: actor.NewBase(id, rc)}
}

func (a *simpleActor) ActorMethod(ctx context.Context, n int) (map[string]string, error) {
	return map[string]string{"name": "actor_method"}, nil
}

func newSimpleManager(t *testing.T, client *fakeClient) *ActorManager {
	t.Helper()

	reg, err := dispatch.Describe(reflect.TypeOf(&simpleActor{}))
	require.NoError(t, err)

	rc := actor.RuntimeContext{TypeName: "FakeSimpleActor", Codec: codec.JSON, Sidecar: client}
	return New("FakeSimpleActor", reg, newSimpleActor, rc, fn.None[config.Reentrancy]())
}

// TestDispatchSimpleActor covers spec.md §8 scenario 1.
func TestDispatchSimpleActor(t *testing.T) {
	t.Parallel()

	mgr := newSimpleManager(t, newFakeClient())
	ctx := context.Background()

	out, err := mgr.Dispatch(ctx, "id-1", "ActorMethod", []byte("5"), "")
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"actor_method"}`, string(out))
}

// TestDeactivateEnforcement covers spec.md §8 scenario 6: dispatch then
// deactivate twice; the first succeeds, the second fails NotActivated.
func TestDeactivateEnforcement(t *testing.T) {
	t.Parallel()

	mgr := newSimpleManager(t, newFakeClient())
	ctx := context.Background()

	_, err := mgr.Dispatch(ctx, "id-1", "ActorMethod", []byte("5"), "")
	require.NoError(t, err)

	require.NoError(t, mgr.Deactivate(ctx, "id-1"))
	require.ErrorIs(t, mgr.Deactivate(ctx, "id-1"), actor.ErrNotActivated)
}

func TestDeactivateUnknownID(t *testing.T) {
	t.Parallel()

	mgr := newSimpleManager(t, newFakeClient())
	require.ErrorIs(t, mgr.Deactivate(context.Background(), "never-activated"), actor.ErrNotActivated)
}

func TestDispatchNoSuchMethod(t *testing.T) {
	t.Parallel()

	mgr := newSimpleManager(t, newFakeClient())
	_, err := mgr.Dispatch(context.Background(), "id-1", "NoSuchMethod", nil, "")
	require.ErrorIs(t, err, actor.ErrNoSuchMethod)
}

// slowActor sleeps inside its method body so concurrency tests can observe
// overlapping or non-overlapping execution windows.
type slowActor struct {
	actor.Base

	mu       *sync.Mutex
	active   *int
	overlaps *int32
}

func (a *slowActor) Slow(ctx context.Context, ms int) (int, error) {
	a.mu.Lock()
	*a.active++
	if *a.active > 1 {
		atomic.AddInt32(a.overlaps, 1)
	}
	a.mu.Unlock()

	time.Sleep(time.Duration(ms) * time.Millisecond)

	a.mu.Lock()
	*a.active--
	a.mu.Unlock()

	return ms, nil
}

// TestPerInstanceMutualExclusion covers spec.md §8's per-instance mutual
// exclusion property: concurrent dispatches against the same (type,id)
// never overlap when reentrancy is disabled.
func TestPerInstanceMutualExclusion(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	active := 0
	var overlaps int32

	client := newFakeClient()
	reg, err := dispatch.Describe(reflect.TypeOf(&slowActor{}))
	require.NoError(t, err)

	rc := actor.RuntimeContext{TypeName: "FakeSlowActor", Codec: codec.JSON, Sidecar: client}
	factory := func(id actor.ID, rc actor.RuntimeContext) actor.Actor {
		return &slowActor{Base: actor.NewBase(id, rc), mu: &mu, active: &active, overlaps: &overlaps}
	}
	mgr := New("FakeSlowActor", reg, factory, rc, fn.None[config.Reentrancy]())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, _ := json.Marshal(5)
			_, err := mgr.Dispatch(context.Background(), "same-id", "Slow", body, "")
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Zero(t, atomic.LoadInt32(&overlaps), "method bodies on the same (type,id) must never overlap")
}
