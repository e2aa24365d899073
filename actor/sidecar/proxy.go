package sidecar

import (
	"context"

	"github.com/daprkit/actorhost/actor/reentrancy"
)

// InvokeActorMethod is a small helper actor method bodies can call to invoke
// another actor through the same sidecar client, automatically carrying
// whatever reentrancy id is active on ctx. It exists so actor-to-actor calls
// never have to thread the reentrancy id through by hand; a caller that is
// not inside a reentrant dispatch simply sends no id, matching the original
// SDK's proxy helper (dapr/actor/client/proxy.py) generalized for Go.
func InvokeActorMethod(ctx context.Context, client Client, actorType, actorID, methodName string, data []byte) ([]byte, error) {
	id, _ := reentrancy.IDFromContext(ctx)

	return client.InvokeActorMethod(ctx, actorType, actorID, methodName, data, id)
}
