// Package dispatch provides a registry for typed host callbacks, routed by
// operation name through a middleware chain. A HandlerRegistry is built
// standalone with NewRegistry and exercised directly via Invoke, or wired
// into a wapc.Host via AsHostCallHandler so a guest's __host_call dispatches
// through the same registry and middleware.
package dispatch
