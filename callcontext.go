package wapc

import "sync"

// errHostCallbackNotRegistered is the message the protocol mandates when the
// guest issues __host_call but the Host has no HostCallHandler configured.
var errHostCallbackNotRegistered = errNotRegistered{}

type errNotRegistered struct{}

func (errNotRegistered) Error() string { return "Host callback not registered" }

// CallContext is the per-invocation mutable state exchanged between the
// Host Runtime, the Engine, and the guest's import calls during a single
// waPC call. At most one CallContext is active per Host at any moment; it
// is reset at the start of each call and its guest_response/guest_error
// slots are read and cleared at call end. host_response/host_error are
// single slots that nested host-callbacks overwrite — only the most recent
// result is ever visible to the guest.
type CallContext struct {
	mu sync.RWMutex

	hostID HostID

	op      string
	request []byte

	guestResponse []byte
	guestError    *string

	hostResponse []byte
	hostError    *string
}

// newCallContext creates a CallContext bound to the given HostID. A Host
// owns exactly one CallContext for its lifetime and resets it between
// calls rather than reallocating it.
func newCallContext(hostID HostID) *CallContext {
	return &CallContext{hostID: hostID}
}

// HostID returns the HostID of the Host that owns this context.
func (c *CallContext) HostID() HostID {
	return c.hostID
}

// setRequest initializes the context for a fresh call, clearing every
// other field.
func (c *CallContext) setRequest(op string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.op = op
	c.request = payload
	c.guestResponse = nil
	c.guestError = nil
	c.hostResponse = nil
	c.hostError = nil
}

// Op returns the operation name of the current guest-directed call.
func (c *CallContext) Op() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.op
}

// Request returns the payload sent to the guest for the current call.
func (c *CallContext) Request() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.request
}

// SetGuestResponse records the payload the guest wrote via
// __guest_response. Populated by an Engine's import handler.
func (c *CallContext) SetGuestResponse(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guestResponse = payload
}

// SetGuestError records the error message the guest wrote via
// __guest_error. Populated by an Engine's import handler.
func (c *CallContext) SetGuestError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guestError = &message
}

// takeGuestResponse returns and resets the guest_response slot. Called by
// the Host Runtime at call end.
func (c *CallContext) takeGuestResponse() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.guestResponse
	c.guestResponse = nil
	return v
}

// takeGuestError returns and resets the guest_error slot. Called by the
// Host Runtime at call end.
func (c *CallContext) takeGuestError() *string {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.guestError
	c.guestError = nil
	return v
}

// SetHostResponse records the payload from the most recent host callback,
// replacing any prior value. Populated by the Host Runtime when a
// __host_call completes successfully.
func (c *CallContext) SetHostResponse(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostResponse = payload
	c.hostError = nil
}

// SetHostError records the error message from the most recent host
// callback, replacing any prior value. Populated by the Host Runtime when
// a __host_call fails.
func (c *CallContext) SetHostError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostError = &message
	c.hostResponse = nil
}

// GetHostResponse returns the current host_response slot, for the guest's
// __host_response/__host_response_len imports.
func (c *CallContext) GetHostResponse() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hostResponse
}

// HostResponseLen returns the length of the current host_response slot.
func (c *CallContext) HostResponseLen() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int32(len(c.hostResponse))
}

// GetHostError returns the current host_error slot, for the guest's
// __host_error/__host_error_len imports. Returns the empty string if no
// error is set.
func (c *CallContext) GetHostError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.hostError == nil {
		return ""
	}
	return *c.hostError
}

// HostErrorLen returns the length of the current host_error slot, 0 if
// none is set.
func (c *CallContext) HostErrorLen() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.hostError == nil {
		return 0
	}
	return int32(len(*c.hostError))
}

// clearHostCallbackSlots resets host_response/host_error ahead of
// dispatching a new __host_call, mirroring the protocol's requirement that
// each outbound call starts with a clean slate before the Host Callback
// runs.
func (c *CallContext) clearHostCallbackSlots() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostResponse = nil
	c.hostError = nil
}
