package wazero

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	wapc "github.com/wapc-sdk/wapc-go"
	"github.com/wapc-sdk/wapc-go/waerrors"
)

// Namespace is the wazero host module name the nine waPC host imports are
// registered under.
const Namespace = "wapc"

// guestCallExport is the guest export the protocol core requires at Init
// time; its absence is fatal.
const guestCallExport = "__guest_call"

type config struct {
	namespace  string
	enableWASI bool
}

func defaultConfig() config {
	return config{namespace: Namespace}
}

// Option configures an Adapter at construction.
type Option func(*config)

// WithNamespace overrides the default "wapc" host-import module name.
func WithNamespace(name string) Option {
	return func(c *config) { c.namespace = name }
}

// WithWASI instantiates wasi_snapshot_preview1 into the Adapter's Runtime
// alongside the waPC host module, for guest modules compiled against a
// WASI libc (e.g. TinyGo or Rust's wasm32-wasip1 target).
func WithWASI(enabled bool) Option {
	return func(c *config) { c.enableWASI = enabled }
}

// Adapter is a wapc.Engine backed by a wazero wazero.Runtime. It owns the
// api.Module currently linked to the waPC host imports and the host module
// exporting those imports, and supports hot-swapping the guest module via
// Replace while preserving both.
//
// An Adapter is not safe for concurrent use, matching the Engine contract's
// requirement: the Host Runtime serializes all access via its call mutex.
type Adapter struct {
	cfg     config
	runtime wazero.Runtime

	cctx    *wapc.CallContext
	imports wapc.HostImports

	mu         sync.Mutex
	hostModule api.Module
	wasiCloser api.Closer
	guest      api.Module
	guestCall  api.Function
}

// New constructs an Adapter around a caller-supplied wazero.Runtime. The
// caller retains ownership of the Runtime's lifecycle; Adapter.Close only
// closes the modules this Adapter instantiated (the waPC host module, the
// guest module, and WASI if enabled), so the same Runtime may host other
// modules alongside the waPC guest.
func New(runtime wazero.Runtime, opts ...Option) *Adapter {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Adapter{cfg: cfg, runtime: runtime}
}

// Init implements wapc.Engine. It links the nine host imports into a host
// module under the configured namespace, then compiles and instantiates
// the guest module, validating that it exports __guest_call.
func (a *Adapter) Init(ctx context.Context, cctx *wapc.CallContext, imports wapc.HostImports, guest []byte) error {
	a.cctx = cctx
	a.imports = imports

	if a.cfg.enableWASI {
		closer, err := wasi_snapshot_preview1.Instantiate(ctx, a.runtime)
		if err != nil {
			return &waerrors.InitFailedError{Err: fmt.Errorf("instantiate wasi_snapshot_preview1: %w", err)}
		}
		a.wasiCloser = closer
	}

	hostModule, err := a.buildHostModule(ctx)
	if err != nil {
		return &waerrors.InitFailedError{Err: err}
	}
	a.hostModule = hostModule

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.instantiateGuestLocked(ctx, guest)
}

// buildHostModule registers the nine required host imports under the
// Adapter's namespace. Each is a plain typed Go function; wazero infers
// the WASM value types (uint32 → i32) from the Go signature, so no manual
// ValueType plumbing is needed.
func (a *Adapter) buildHostModule(ctx context.Context) (api.Module, error) {
	builder := a.runtime.NewHostModuleBuilder(a.cfg.namespace)

	builder.NewFunctionBuilder().WithFunc(a.guestRequest).Export("__guest_request")
	builder.NewFunctionBuilder().WithFunc(a.guestResponse).Export("__guest_response")
	builder.NewFunctionBuilder().WithFunc(a.guestError).Export("__guest_error")
	builder.NewFunctionBuilder().WithFunc(a.consoleLog).Export("__console_log")
	builder.NewFunctionBuilder().WithFunc(a.hostCall).Export("__host_call")
	builder.NewFunctionBuilder().WithFunc(a.hostResponse).Export("__host_response")
	builder.NewFunctionBuilder().WithFunc(a.hostResponseLen).Export("__host_response_len")
	builder.NewFunctionBuilder().WithFunc(a.hostError).Export("__host_error")
	builder.NewFunctionBuilder().WithFunc(a.hostErrorLen).Export("__host_error_len")

	return builder.Instantiate(ctx)
}

// Invoke implements wapc.Engine: it calls the guest's __guest_call export
// and returns its integer status, blocking until the guest returns.
func (a *Adapter) Invoke(ctx context.Context, opLen, msgLen int32) (int32, error) {
	results, err := a.guestCall.Call(ctx, uint64(uint32(opLen)), uint64(uint32(msgLen)))
	if err != nil {
		return 0, err
	}
	return int32(uint32(results[0])), nil
}

// Replace implements wapc.Engine: it compiles and instantiates the new
// guest module against the same host imports, closing the previous guest
// instance only after the replacement succeeds so a failed swap leaves the
// Host fully operational on the old module.
func (a *Adapter) Replace(ctx context.Context, guest []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	previous := a.guest
	if err := a.instantiateGuestLocked(ctx, guest); err != nil {
		return err
	}
	if previous != nil {
		_ = previous.Close(ctx)
	}
	return nil
}

// instantiateGuestLocked compiles guest, validates it exports
// __guest_call, and instantiates it against the Adapter's host imports.
// Callers must hold a.mu.
func (a *Adapter) instantiateGuestLocked(ctx context.Context, guest []byte) error {
	compiled, err := a.runtime.CompileModule(ctx, guest)
	if err != nil {
		return &waerrors.InvalidModuleError{Reason: err.Error()}
	}

	if _, ok := compiled.ExportedFunctions()[guestCallExport]; !ok {
		_ = compiled.Close(ctx)
		return &waerrors.InvalidModuleError{Reason: fmt.Sprintf("guest module does not export %q", guestCallExport)}
	}

	mod, err := a.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		return &waerrors.InvalidModuleError{Reason: err.Error()}
	}

	fn := mod.ExportedFunction(guestCallExport)
	if fn == nil {
		_ = mod.Close(ctx)
		return &waerrors.InvalidModuleError{Reason: fmt.Sprintf("guest module does not export %q", guestCallExport)}
	}

	a.guest = mod
	a.guestCall = fn
	return nil
}

// Close releases the guest module, the waPC host module, and WASI (if
// enabled). It does not close the underlying Runtime, which the caller
// constructed and owns.
func (a *Adapter) Close(ctx context.Context) error {
	var errs []error
	if a.guest != nil {
		if err := a.guest.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.hostModule != nil {
		if err := a.hostModule.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.wasiCloser != nil {
		if err := a.wasiCloser.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// The functions below implement the nine host imports, plumbing pointers
// and lengths into and out of the guest's linear memory around the
// wapc.HostImports hooks the core supplies. None of them interpret payload
// bytes; that is the core's job.

func (a *Adapter) guestRequest(_ context.Context, m api.Module, opPtr, reqPtr uint32) {
	op, request := a.imports.GuestRequest(a.cctx)
	writeMemory(m, opPtr, op)
	writeMemory(m, reqPtr, request)
}

func (a *Adapter) guestResponse(_ context.Context, m api.Module, ptr, length uint32) {
	a.imports.GuestResponse(a.cctx, readMemory(m, ptr, length))
}

func (a *Adapter) guestError(_ context.Context, m api.Module, ptr, length uint32) {
	a.imports.GuestError(a.cctx, string(readMemory(m, ptr, length)))
}

func (a *Adapter) consoleLog(_ context.Context, m api.Module, ptr, length uint32) {
	a.imports.ConsoleLog(a.cctx, readMemory(m, ptr, length))
}

func (a *Adapter) hostCall(_ context.Context, m api.Module, bdPtr, bdLen, nsPtr, nsLen, opPtr, opLen, plPtr, plLen uint32) uint32 {
	binding := string(readMemory(m, bdPtr, bdLen))
	namespace := string(readMemory(m, nsPtr, nsLen))
	operation := string(readMemory(m, opPtr, opLen))
	payload := readMemory(m, plPtr, plLen)
	//nolint:gosec // G115: the HostImports contract returns the ABI's in-band 0/1 signal
	return uint32(a.imports.HostCall(a.cctx, binding, namespace, operation, payload))
}

func (a *Adapter) hostResponse(_ context.Context, m api.Module, ptr uint32) {
	writeMemory(m, ptr, a.imports.HostResponse(a.cctx))
}

func (a *Adapter) hostResponseLen(_ context.Context, _ api.Module) uint32 {
	return uint32(a.imports.HostResponseLen(a.cctx))
}

func (a *Adapter) hostError(_ context.Context, m api.Module, ptr uint32) {
	writeMemory(m, ptr, a.imports.HostError(a.cctx))
}

func (a *Adapter) hostErrorLen(_ context.Context, _ api.Module) uint32 {
	return uint32(a.imports.HostErrorLen(a.cctx))
}

// readMemory copies length bytes out of guest linear memory at ptr. The
// slice wazero's Memory.Read returns is a view directly over the guest's
// memory, which can be invalidated by a subsequent memory.grow or mutated
// by the guest itself; the core's CallContext slots must outlive the call,
// so every read is copied.
func readMemory(m api.Module, ptr, length uint32) []byte {
	if length == 0 {
		return nil
	}
	buf, ok := m.Memory().Read(ptr, length)
	if !ok {
		panic(fmt.Sprintf("wapc: out-of-bounds guest memory read at %d, length %d (memory size %d)", ptr, length, m.Memory().Size()))
	}
	out := make([]byte, length)
	copy(out, buf)
	return out
}

// writeMemory copies data into guest linear memory at ptr. The guest must
// have already reserved a buffer of the right size at ptr, per the ABI's
// guest-allocates-everything discipline.
func writeMemory(m api.Module, ptr uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	if !m.Memory().Write(ptr, data) {
		panic(fmt.Sprintf("wapc: out-of-bounds guest memory write at %d, length %d (memory size %d)", ptr, len(data), m.Memory().Size()))
	}
}
