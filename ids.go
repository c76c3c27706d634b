package wapc

import "sync/atomic"

// HostID uniquely identifies a Host instance for the lifetime of the
// process. Assigned from a single, process-wide, monotonically increasing
// counter; values are never reused.
type HostID uint64

// hostIDCounter is the one piece of global shared mutable state in the
// protocol core. The first HostID issued is 1.
var hostIDCounter atomic.Uint64

func init() {
	hostIDCounter.Store(0)
}

// nextHostID atomically issues the next HostID.
func nextHostID() HostID {
	return HostID(hostIDCounter.Add(1))
}
