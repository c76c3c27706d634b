package wapc

import (
	"context"
	"log/slog"
	"sync"

	wapclog "github.com/wapc-sdk/wapc-go/log"
	"github.com/wapc-sdk/wapc-go/waerrors"
)

// DefaultMaxPayloadSize bounds both outbound call payloads and inbound
// host-callback payloads (1 MiB). Exceeding it fails with
// InvalidPayloadError instead of letting an oversized payload reach the
// engine and trigger an OOM or trap there.
const DefaultMaxPayloadSize = 1 * 1024 * 1024

// Host is the ownership root for one RPC conversation with a guest module:
// an Engine instance, a CallContext, a HostID, and an optional
// HostCallHandler. A Host is not safe for concurrent Call invocations — at
// most one call may be in progress on a given Host at a time; concurrent
// attempts observe a BusyError rather than blocking.
type Host struct {
	id       HostID
	engine   Engine
	ctx      *CallContext
	callback HostCallHandler
	logger   *slog.Logger
	console  *slog.Logger

	maxPayloadSize int

	mu sync.Mutex
}

// Option configures a Host at construction time.
type Option func(*Host)

// WithHostCallback registers the function invoked when the guest issues
// __host_call. If omitted, every __host_call fails with "Host callback not
// registered", per the protocol's default.
func WithHostCallback(cb HostCallHandler) Option {
	return func(h *Host) {
		h.callback = cb
	}
}

// WithLogger sets the structured logger used for Host lifecycle and
// __console_log events. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithMaxPayloadSize overrides DefaultMaxPayloadSize.
func WithMaxPayloadSize(size int) Option {
	return func(h *Host) {
		h.maxPayloadSize = size
	}
}

// NewHost constructs a Host around engine, initializing it with the guest
// module bytes and the protocol's host imports. The HostID is assigned
// from the process-wide counter before Init runs, so it is stable even if
// Init fails.
func NewHost(ctx context.Context, engine Engine, guest []byte, opts ...Option) (*Host, error) {
	h := &Host{
		id:             nextHostID(),
		engine:         engine,
		callback:       NoOpHostCallHandler,
		logger:         slog.Default(),
		maxPayloadSize: DefaultMaxPayloadSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.console = slog.New(wapclog.NewHandler(h.logger.Handler(), wapclog.WithHostID(uint64(h.id))))
	h.ctx = newCallContext(h.id)

	if err := engine.Init(ctx, h.ctx, h.imports(), guest); err != nil {
		return nil, &waerrors.InitFailedError{Err: err}
	}
	return h, nil
}

// ID returns the Host's process-unique identifier.
func (h *Host) ID() HostID {
	return h.id
}

// Call invokes operation op on the guest with payload, blocking until the
// guest returns or an error terminates the call. Implements the Host
// Runtime's state machine: acquire the call mutex (or fail Busy), reset the
// context, invoke the engine, and interpret the termination per the
// protocol's table.
func (h *Host) Call(ctx context.Context, op string, payload []byte) ([]byte, error) {
	if len(payload) > h.maxPayloadSize {
		return nil, &waerrors.InvalidPayloadError{Size: len(payload), Limit: h.maxPayloadSize}
	}

	if !h.mu.TryLock() {
		return nil, &waerrors.BusyError{HostID: uint64(h.id)}
	}
	defer h.mu.Unlock()

	h.ctx.setRequest(op, payload)

	status, err := h.engine.Invoke(ctx, int32(len(op)), int32(len(payload)))
	if err != nil {
		return nil, &waerrors.GuestCallFailureError{Err: err}
	}

	guestError := h.ctx.takeGuestError()
	guestResponse := h.ctx.takeGuestResponse()

	if status == 0 {
		if guestError != nil {
			return nil, &waerrors.GuestErrorError{Message: *guestError}
		}
		return nil, &waerrors.GuestErrorError{Message: waerrors.DefaultGuestErrorMessage}
	}
	return guestResponse, nil
}

// ReplaceModule hot-swaps the guest module, preserving the Host's identity
// and HostCallHandler. Acquires the call mutex for the duration of the
// swap, waiting for an in-flight Call to finish rather than failing with
// BusyError; a Call issued during the swap observes BusyError.
func (h *Host) ReplaceModule(ctx context.Context, guest []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.engine.Replace(ctx, guest); err != nil {
		return &waerrors.InvalidModuleError{Reason: err.Error()}
	}
	h.ctx.setRequest("", nil)
	return nil
}

// Close releases the Host's engine resources. The Host must not be used
// afterward.
func (h *Host) Close(ctx context.Context) error {
	return h.engine.Close(ctx)
}

// imports binds the CallContext and HostCallHandler into the HostImports
// bundle the Engine links into the guest's "wapc" import namespace.
func (h *Host) imports() HostImports {
	return HostImports{
		GuestRequest: func(cctx *CallContext) (op, request []byte) {
			return []byte(cctx.Op()), cctx.Request()
		},
		GuestResponse: func(cctx *CallContext, response []byte) {
			cctx.SetGuestResponse(response)
		},
		GuestError: func(cctx *CallContext, message string) {
			cctx.SetGuestError(message)
		},
		ConsoleLog: func(cctx *CallContext, raw []byte) {
			message, lossy := DecodeConsoleLog(raw)
			if lossy {
				h.console.Warn("console log payload was not valid UTF-8; replaced invalid sequences", "byte_len", len(raw))
			}
			h.console.Debug(message)
		},
		HostCall: h.handleHostCall,
		HostResponse: func(cctx *CallContext) []byte {
			return cctx.GetHostResponse()
		},
		HostResponseLen: func(cctx *CallContext) int32 {
			return cctx.HostResponseLen()
		},
		HostError: func(cctx *CallContext) []byte {
			return []byte(cctx.GetHostError())
		},
		HostErrorLen: func(cctx *CallContext) int32 {
			return cctx.HostErrorLen()
		},
	}
}

// handleHostCall services a __host_call issued by the guest: it clears the
// prior host_response/host_error slots, dispatches to the configured
// HostCallHandler, and records the outcome. Returns 1 on success, 0 on
// failure, matching the ABI's in-band signal.
func (h *Host) handleHostCall(cctx *CallContext, binding, namespace, operation string, payload []byte) int32 {
	cctx.clearHostCallbackSlots()

	if len(payload) > h.maxPayloadSize {
		cctx.SetHostError((&waerrors.InvalidPayloadError{Size: len(payload), Limit: h.maxPayloadSize}).Error())
		return 0
	}

	response, err := h.callback(context.Background(), h.id, binding, namespace, operation, payload)
	if err != nil {
		h.logger.Warn("host callback failed", "host_id", uint64(h.id), "binding", binding, "namespace", namespace, "operation", operation, "error", err)
		cctx.SetHostError(err.Error())
		return 0
	}
	cctx.SetHostResponse(response)
	return 1
}
