package dispatch

import (
	"context"

	wapc "github.com/wapc-sdk/wapc-go"
)

// HostContext wraps a standard context.Context with the waPC metadata a host
// callback runs with: the operation name, the HostID of the Host servicing
// the call, and — when the call originated from a guest's __host_call rather
// than a direct Invoke — the binding and namespace routing tags the guest
// attached to it. It also lets middleware stash request-scoped values
// without polluting the standard context.
type HostContext interface {
	context.Context

	// FunctionName returns the name of the operation being invoked.
	FunctionName() string

	// Binding returns the guest-supplied binding tag for this call, or the
	// empty string if the call did not arrive via AsHostCallHandler (e.g. a
	// handler invoked directly through Registry.Invoke in a test).
	Binding() string

	// Namespace returns the guest-supplied namespace tag for this call, or
	// the empty string outside AsHostCallHandler.
	Namespace() string

	// HostID returns the HostID of the Host servicing this call, or 0
	// outside AsHostCallHandler.
	HostID() wapc.HostID

	// SetValue stores a request-scoped value. Unlike context.WithValue,
	// this mutates the existing HostContext for performance.
	SetValue(key, value any)

	// GetValue retrieves a request-scoped value set by SetValue.
	GetValue(key any) (value any, ok bool)
}

// hostContext is the concrete implementation of HostContext.
type hostContext struct {
	context.Context
	values    map[any]any
	funcName  string
	binding   string
	namespace string
	hostID    wapc.HostID
}

// NewHostContext creates a new HostContext wrapping the given context for a
// direct Registry.Invoke call; Binding, Namespace, and HostID read as zero
// values since no guest __host_call produced this context. Use
// AsHostCallHandler to wire a registry so those fields are populated from
// the guest's actual routing tags.
func NewHostContext(ctx context.Context, funcName string) HostContext {
	return &hostContext{
		Context:  ctx,
		funcName: funcName,
		values:   make(map[any]any),
	}
}

// newGuestHostContext creates a HostContext carrying the binding, namespace,
// and HostID a guest's __host_call supplied, for AsHostCallHandler.
func newGuestHostContext(ctx context.Context, hostID wapc.HostID, binding, namespace, operation string) HostContext {
	return &hostContext{
		Context:   ctx,
		funcName:  operation,
		binding:   binding,
		namespace: namespace,
		hostID:    hostID,
		values:    make(map[any]any),
	}
}

// FunctionName returns the name of the operation being invoked.
func (c *hostContext) FunctionName() string {
	return c.funcName
}

// Binding returns the guest-supplied binding tag for this call.
func (c *hostContext) Binding() string {
	return c.binding
}

// Namespace returns the guest-supplied namespace tag for this call.
func (c *hostContext) Namespace() string {
	return c.namespace
}

// HostID returns the HostID of the Host servicing this call.
func (c *hostContext) HostID() wapc.HostID {
	return c.hostID
}

// SetValue stores a request-scoped value.
func (c *hostContext) SetValue(key, value any) {
	c.values[key] = value
}

// GetValue retrieves a request-scoped value.
func (c *hostContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// HostContextFrom extracts a HostContext from a context.Context.
// If the context is already a HostContext, it is returned directly.
// Otherwise, a new HostContext is created wrapping the given context.
func HostContextFrom(ctx context.Context, funcName string) HostContext {
	if hc, ok := ctx.(HostContext); ok {
		return hc
	}
	return NewHostContext(ctx, funcName)
}
