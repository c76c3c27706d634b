// Package wazero provides a wapc.Engine implementation backed by
// github.com/tetratelabs/wazero.
//
// It bridges the core's Engine contract to a wazero wazero.Runtime: Init
// registers the nine required host imports as a "wapc" host module,
// compiles and instantiates the guest, and validates that it exports
// __guest_call; Invoke calls that export and returns its status; Replace
// hot-swaps the guest module without disturbing the host imports.
//
// # Basic usage
//
//	runtime := wazero.NewRuntime(ctx)
//	defer runtime.Close(ctx)
//
//	host, err := wapc.NewHost(ctx, waengine.New(runtime), guestWasm,
//	    wapc.WithHostCallback(myCallback),
//	)
//	if err != nil {
//	    return err
//	}
//	defer host.Close(ctx)
//
//	response, err := host.Call(ctx, "echo", []byte("hello"))
//
// # WASI guests
//
// Guests compiled against a WASI libc (TinyGo, Rust's wasm32-wasip1
// target) additionally need wasi_snapshot_preview1 instantiated in the
// same Runtime; pass WithWASI(true) to have the Adapter do that before
// linking the guest.
package wazero
