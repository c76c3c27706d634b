package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wapc "github.com/wapc-sdk/wapc-go"
)

// pingEngine is a minimal wapc.Engine fake: its one guest behavior issues a
// single __host_call with a fixed binding/namespace/operation and re-emits
// the outcome as the guest's own response or error, exactly like a compiled
// guest module relaying a host callback result back to its caller.
type pingEngine struct {
	binding, namespace, operation string
	request                       []byte

	cctx    *wapc.CallContext
	imports wapc.HostImports
}

func (e *pingEngine) Init(_ context.Context, cctx *wapc.CallContext, imports wapc.HostImports, _ []byte) error {
	e.cctx = cctx
	e.imports = imports
	return nil
}

func (e *pingEngine) Invoke(_ context.Context, _, _ int32) (int32, error) {
	status := e.imports.HostCall(e.cctx, e.binding, e.namespace, e.operation, e.request)
	if status == 1 {
		e.imports.GuestResponse(e.cctx, e.imports.HostResponse(e.cctx))
		return 1, nil
	}
	e.imports.GuestError(e.cctx, string(e.imports.HostError(e.cctx)))
	return 0, nil
}

func (e *pingEngine) Replace(_ context.Context, _ []byte) error { return nil }
func (e *pingEngine) Close(_ context.Context) error             { return nil }

type lookupRequest struct {
	Key string `json:"key"`
}

type lookupResponse struct {
	Value string `json:"value"`
}

func TestAsHostCallHandler_DispatchesThroughRegistry(t *testing.T) {
	reg, err := NewRegistry(
		WithHandler("lookup", func(_ context.Context, req lookupRequest) lookupResponse {
			return lookupResponse{Value: "resolved:" + req.Key}
		}),
	)
	require.NoError(t, err)

	reqBytes, err := json.Marshal(lookupRequest{Key: "host"})
	require.NoError(t, err)

	engine := &pingEngine{binding: "b", namespace: "n", operation: "lookup", request: reqBytes}
	host, err := wapc.NewHost(context.Background(), engine, nil, wapc.WithHostCallback(reg.AsHostCallHandler()))
	require.NoError(t, err)
	defer host.Close(context.Background())

	resp, err := host.Call(context.Background(), "guest_op", nil)
	require.NoError(t, err)

	var out lookupResponse
	require.NoError(t, json.Unmarshal(resp, &out))
	assert.Equal(t, "resolved:host", out.Value)
}

func TestAsHostCallHandler_UnregisteredOperationReachesGuestAsData(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	engine := &pingEngine{binding: "b", namespace: "n", operation: "missing", request: nil}
	host, err := wapc.NewHost(context.Background(), engine, nil, wapc.WithHostCallback(reg.AsHostCallHandler()))
	require.NoError(t, err)
	defer host.Close(context.Background())

	// NewNotFoundError's JSON still counts as a successful __host_call from
	// the engine's point of view: the guest gets data to parse, not a Go
	// error crossing as __host_error.
	resp, err := host.Call(context.Background(), "guest_op", nil)
	require.NoError(t, err)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp, &errResp))
	assert.Equal(t, "NOT_FOUND", errResp.Error)
	assert.Equal(t, "unknown operation: missing", errResp.Message)
}

func TestAsHostCallHandler_LimitResponseMiddlewareAppliesToGuestCalls(t *testing.T) {
	reg, err := NewRegistry(
		WithMiddleware(LimitResponseMiddleware(8)),
		WithByteHandler("big", func(_ context.Context, _ []byte) ([]byte, error) {
			return []byte(`"this response is far longer than the limit allows"`), nil
		}),
	)
	require.NoError(t, err)

	engine := &pingEngine{binding: "b", namespace: "n", operation: "big", request: nil}
	host, err := wapc.NewHost(context.Background(), engine, nil, wapc.WithHostCallback(reg.AsHostCallHandler()))
	require.NoError(t, err)
	defer host.Close(context.Background())

	resp, err := host.Call(context.Background(), "guest_op", nil)
	require.NoError(t, err)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp, &errResp))
	assert.Equal(t, "INTERNAL_ERROR", errResp.Error)
	assert.Contains(t, errResp.Message, "exceeds")
}

func TestAsHostCallHandler_AttachesBindingAndNamespaceToContext(t *testing.T) {
	var gotBinding, gotNamespace string
	var gotHostID wapc.HostID

	reg, err := NewRegistry(
		WithByteHandler("whoami", func(ctx context.Context, _ []byte) ([]byte, error) {
			hc := HostContextFrom(ctx, "whoami")
			gotBinding = hc.Binding()
			gotNamespace = hc.Namespace()
			gotHostID = hc.HostID()
			return []byte("ok"), nil
		}),
	)
	require.NoError(t, err)

	engine := &pingEngine{binding: "my-binding", namespace: "my-namespace", operation: "whoami", request: nil}
	host, err := wapc.NewHost(context.Background(), engine, nil, wapc.WithHostCallback(reg.AsHostCallHandler()))
	require.NoError(t, err)
	defer host.Close(context.Background())

	_, err = host.Call(context.Background(), "guest_op", nil)
	require.NoError(t, err)

	assert.Equal(t, "my-binding", gotBinding)
	assert.Equal(t, "my-namespace", gotNamespace)
	assert.Equal(t, host.ID(), gotHostID)
}
