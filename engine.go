package wapc

import "context"

// Logger receives messages the guest writes via the __console_log import.
type Logger func(hostID HostID, msg string)

// HostCallHandler is invoked synchronously when the guest issues a
// __host_call. The guest is suspended until it returns. binding and
// namespace are opaque routing tags the guest attaches to the call;
// operation names the method being invoked; payload is an opaque byte
// sequence the core does not interpret.
type HostCallHandler func(ctx context.Context, hostID HostID, binding, namespace, operation string, payload []byte) ([]byte, error)

// NoOpHostCallHandler rejects every host call. Suitable for a Host that
// never expects the guest to call back into it.
func NoOpHostCallHandler(_ context.Context, _ HostID, _, _, _ string, _ []byte) ([]byte, error) {
	return nil, errHostCallbackNotRegistered
}

// HostImports is the bundle of callback hooks an Engine must link into the
// guest module's import namespace (conventionally named "wapc") before the
// first invoke. Each field corresponds to one of the nine required host
// imports in the protocol's external interface; engines are responsible
// only for plumbing pointers and lengths into and out of guest linear
// memory around these calls.
type HostImports struct {
	// GuestRequest is invoked for __guest_request(op_ptr, req_ptr): the
	// engine must write op and request into guest memory at the given
	// pointers and return them so it can do so.
	GuestRequest func(ctx *CallContext) (op, request []byte)

	// GuestResponse is invoked for __guest_response(ptr, len) once the
	// engine has read len bytes from ptr.
	GuestResponse func(ctx *CallContext, response []byte)

	// GuestError is invoked for __guest_error(ptr, len) once the engine
	// has read len bytes from ptr.
	GuestError func(ctx *CallContext, message string)

	// ConsoleLog is invoked for __console_log(ptr, len) once the engine
	// has read len raw bytes from ptr. Decoding — including the protocol's
	// lossy-replacement policy for invalid UTF-8 — is the core's job, not
	// the engine's; see DecodeConsoleLog.
	ConsoleLog func(ctx *CallContext, raw []byte)

	// HostCall is invoked for __host_call(...) once the engine has read
	// the binding, namespace, operation, and payload slices from guest
	// memory. The int32 return value is exactly what the guest's
	// __host_call import should return: 1 on success, 0 on failure.
	HostCall func(ctx *CallContext, binding, namespace, operation string, payload []byte) int32

	// HostResponse is invoked for __host_response(ptr): the engine must
	// copy the returned bytes to ptr in guest memory.
	HostResponse func(ctx *CallContext) []byte

	// HostResponseLen is invoked for __host_response_len() → i32.
	HostResponseLen func(ctx *CallContext) int32

	// HostError is invoked for __host_error(ptr): the engine must copy
	// the returned bytes to ptr in guest memory.
	HostError func(ctx *CallContext) []byte

	// HostErrorLen is invoked for __host_error_len() → i32.
	HostErrorLen func(ctx *CallContext) int32
}

// Engine is the abstract interface a WebAssembly execution engine must
// satisfy to be driven by the protocol core. Implementations are not
// required to be thread-safe; the Host Runtime guarantees serialized
// access to a given Engine instance.
type Engine interface {
	// Init prepares the engine to invoke the given guest module, linking
	// imports into the "wapc" host-import namespace. Called exactly once
	// before any Invoke. Must fail with an InitFailedError (see waerrors)
	// if the guest module is malformed, missing a required export, or
	// otherwise rejected by the engine, and with an InvalidModuleError if
	// the module lacks the required __guest_call export or required
	// imports.
	Init(ctx context.Context, cctx *CallContext, imports HostImports, guest []byte) error

	// Invoke triggers the guest's __guest_call(op_len, msg_len) export and
	// returns its integer status: 0 means guest failure, non-zero means
	// success. Blocks the calling goroutine until the guest returns.
	// Engine-level failures (trap, OOM, ABI mismatch) are returned as an
	// error carrying an engine-supplied message; Host.Call wraps it in a
	// GuestCallFailureError.
	Invoke(ctx context.Context, opLen, msgLen int32) (int32, error)

	// Replace hot-swaps the guest module with a new one, preserving the
	// engine's linked host imports. Must fail with InvalidModuleError if
	// the replacement does not export __guest_call.
	Replace(ctx context.Context, guest []byte) error

	// Close releases any resources held by the engine.
	Close(ctx context.Context) error
}
