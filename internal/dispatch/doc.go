// Package dispatch routes decoded realtime events and connection lifecycle
// notifications to the caller's registered callbacks.
//
// Every callback slot is optional. Routing checks for the presence of the
// handler matching the event kind and silently skips absent ones. The
// dispatcher neither reorders nor batches; callers invoke it in arrival
// order from a single goroutine.
package dispatch
