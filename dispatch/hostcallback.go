package dispatch

import (
	"context"

	wapc "github.com/wapc-sdk/wapc-go"
)

// AsHostCallHandler adapts the registry into a wapc.HostCallHandler, so a
// guest's __host_call actually dispatches through the registry's handler
// lookup and middleware chain (PanicRecoveryMiddleware, LoggingMiddleware,
// LimitResponseMiddleware, ...) by operation name, instead of the embedder
// wiring a bare function that bypasses it. Pass the result straight to
// wapc.WithHostCallback:
//
//	reg, _ := dispatch.NewRegistry(dispatch.WithHandler("lookup", lookupFunc))
//	host, _ := wapc.NewHost(ctx, engine, guest, wapc.WithHostCallback(reg.AsHostCallHandler()))
//
// binding and namespace are the guest's own routing tags (see the waPC
// glossary); Invoke still selects purely by operation name, but both are
// attached to the HostContext passed down so a handler or middleware can
// read them via HostContext.Binding/Namespace if it needs to route or log
// on them.
func (r *HandlerRegistry) AsHostCallHandler() wapc.HostCallHandler {
	return func(ctx context.Context, hostID wapc.HostID, binding, namespace, operation string, payload []byte) ([]byte, error) {
		hctx := newGuestHostContext(ctx, hostID, binding, namespace, operation)
		return r.Invoke(hctx, operation, payload)
	}
}
