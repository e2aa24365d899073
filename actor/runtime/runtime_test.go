package runtime

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"

	"github.com/daprkit/actorhost/actor"
	"github.com/daprkit/actorhost/actor/codec"
	"github.com/daprkit/actorhost/actor/config"
	"github.com/daprkit/actorhost/actor/sidecar"
)

// capturingClient records the reentrancy id observed on every
// InvokeActorMethod call, so tests can assert on reentrancy propagation
// across a Dispatch boundary.
type capturingClient struct {
	mu   sync.Mutex
	seen []string
}

func (c *capturingClient) GetState(ctx context.Context, actorType, actorID, key string) ([]byte, bool, error) {
	return nil, false, nil
}
func (c *capturingClient) SaveStateTransactionally(ctx context.Context, actorType, actorID string, ops []sidecar.StateOperationRequest) error {
	return nil
}
func (c *capturingClient) RegisterReminder(ctx context.Context, actorType, actorID, name string, body []byte) error {
	return nil
}
func (c *capturingClient) UnregisterReminder(ctx context.Context, actorType, actorID, name string) error {
	return nil
}
func (c *capturingClient) RegisterTimer(ctx context.Context, actorType, actorID, name string, body []byte) error {
	return nil
}
func (c *capturingClient) UnregisterTimer(ctx context.Context, actorType, actorID, name string) error {
	return nil
}
func (c *capturingClient) InvokeActorMethod(ctx context.Context, actorType, actorID, methodName string, data []byte, reentrancyID string) ([]byte, error) {
	c.mu.Lock()
	c.seen = append(c.seen, reentrancyID)
	c.mu.Unlock()

	return []byte(reentrancyID), nil
}

// echoActor calls back out through sidecar.InvokeActorMethod so the active
// reentrancy id on ctx can be observed by the capturingClient.
type echoActor struct {
	actor.Base

	client sidecar.Client
}

func (a *echoActor) Echo(ctx context.Context, _ struct{}) (string, error) {
	out, err := sidecar.InvokeActorMethod(ctx, a.client, "Other", "id-2", "Noop", nil)
	return string(out), err
}

func newRuntimeWithEcho(t *testing.T, client sidecar.Client, reentrant fn.Option[config.Reentrancy]) *Runtime {
	t.Helper()

	rt := New()
	rc := actor.RuntimeContext{Codec: codec.JSON, Sidecar: client}
	factory := func(id actor.ID, rc actor.RuntimeContext) actor.Actor {
		return &echoActor{Base: actor.NewBase(id, rc), client: client}
	}

	err := rt.RegisterActor(reflect.TypeOf(&echoActor{}), factory, rc, reentrant)
	require.NoError(t, err)

	return rt
}

// echoActorTypeName is the type name dispatch.TypeName derives from
// echoActor's own struct name — the same value RegisterActor advertises,
// used here to address it through Runtime.Dispatch.
const echoActorTypeName = "echoActor"

func TestRegisterActorIdempotent(t *testing.T) {
	t.Parallel()

	rt := newRuntimeWithEcho(t, &capturingClient{}, fn.None[config.Reentrancy]())
	rc := actor.RuntimeContext{Codec: codec.JSON, Sidecar: &capturingClient{}}
	factory := func(id actor.ID, rc actor.RuntimeContext) actor.Actor {
		return &echoActor{Base: actor.NewBase(id, rc), client: &capturingClient{}}
	}

	require.NoError(t, rt.RegisterActor(reflect.TypeOf(&echoActor{}), factory, rc, fn.None[config.Reentrancy]()))

	require.Len(t, rt.RegisteredTypes(), 1)
	require.Len(t, rt.Config().Entities, 1)
}

func TestDispatchUnknownActorType(t *testing.T) {
	t.Parallel()

	rt := New()
	_, err := rt.Dispatch(context.Background(), "NoSuchType", "id-1", "Anything", nil, "")
	require.ErrorIs(t, err, actor.ErrUnknownActorType)
}

// TestReentrancyHeaderPassthrough covers the reentrancy-enabled half of
// spec.md §8 scenario 4: the id supplied to Dispatch rides the context all
// the way to the outbound InvokeActorMethod call.
func TestReentrancyHeaderPassthrough(t *testing.T) {
	t.Parallel()

	client := &capturingClient{}
	rt := newRuntimeWithEcho(t, client, fn.Some(config.Reentrancy{Enabled: true, MaxStackDepth: 32}))

	out, err := rt.Dispatch(context.Background(), echoActorTypeName, "id-1", "Echo", []byte("{}"), "reentrancy-xyz")
	require.NoError(t, err)
	require.JSONEq(t, `"reentrancy-xyz"`, string(out))

	require.Equal(t, []string{"reentrancy-xyz"}, client.seen)
}

func TestReentrancyAbsentWhenNoIDSupplied(t *testing.T) {
	t.Parallel()

	client := &capturingClient{}
	rt := newRuntimeWithEcho(t, client, fn.None[config.Reentrancy]())

	out, err := rt.Dispatch(context.Background(), echoActorTypeName, "id-1", "Echo", []byte("{}"), "")
	require.NoError(t, err)
	require.JSONEq(t, `""`, string(out))

	require.Equal(t, []string{""}, client.seen)
}

// TestInterleavedReentrantDispatches covers spec.md §8 scenario 5: two
// concurrent dispatches against two separate runtimes hosting the echo actor
// type, each carrying its own reentrancy id, observe no cross-contamination
// of the other's id.
func TestInterleavedReentrantDispatches(t *testing.T) {
	t.Parallel()

	clientA := &capturingClient{}
	clientB := &capturingClient{}

	rtA := newRuntimeWithEcho(t, clientA, fn.Some(config.Reentrancy{Enabled: true, MaxStackDepth: 32}))
	rtB := newRuntimeWithEcho(t, clientB, fn.Some(config.Reentrancy{Enabled: true, MaxStackDepth: 32}))

	var wg sync.WaitGroup
	results := make([]string, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		out, err := rtA.Dispatch(context.Background(), echoActorTypeName, "id-a", "Echo", []byte("{}"), "id-for-a")
		require.NoError(t, err)
		results[0] = string(out)
	}()
	go func() {
		defer wg.Done()
		out, err := rtB.Dispatch(context.Background(), echoActorTypeName, "id-b", "Echo", []byte("{}"), "id-for-b")
		require.NoError(t, err)
		results[1] = string(out)
	}()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("interleaved dispatches did not complete")
	}

	require.JSONEq(t, `"id-for-a"`, results[0])
	require.JSONEq(t, `"id-for-b"`, results[1])
	require.Equal(t, []string{"id-for-a"}, clientA.seen)
	require.Equal(t, []string{"id-for-b"}, clientB.seen)
}
