// Package wapc implements the core of the waPC (WebAssembly Procedure Calls)
// protocol: a bidirectional, synchronous RPC exchange between a host process
// and a sandboxed WebAssembly guest module over linear memory.
//
// The package defines the protocol's engine-agnostic pieces — the Engine
// contract a WebAssembly runtime must satisfy (Engine), the per-invocation
// state a call exchanges across the host/guest boundary (CallContext), the
// process-wide host identity scheme (HostID), and the Host type that drives
// a single guest module through that contract (Call, ReplaceModule, Close).
// Multiplexing many Hosts across a worker population is left to the pool
// subpackage. A concrete Engine backed by wazero lives in engine/wazero;
// embedders may supply their own.
package wapc
