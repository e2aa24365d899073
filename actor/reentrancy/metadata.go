package reentrancy

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// HeaderName is the literal HTTP header name the sidecar uses to propagate
// a reentrancy id on an outbound actor-to-actor invocation.
const HeaderName = "Dapr-Reentrancy-Id"

// OutgoingMetadata returns the gRPC metadata a SidecarClient should attach to
// an outbound InvokeActorMethod call for ctx. When ctx carries no reentrancy
// id, the returned metadata is empty and no header/key is set at all, so a
// gRPC transport built on top of it never emits the key.
func OutgoingMetadata(ctx context.Context) metadata.MD {
	id, ok := IDFromContext(ctx)
	if !ok {
		return metadata.MD{}
	}

	return metadata.Pairs(HeaderName, id)
}
