// Package orgkernel is the root of a deterministic, event-sourced
// organizational-simulation kernel: a frozen transition engine
// (arithmetic, domain, graphutil, invariant, kernel, canon, engine)
// plus the runtime layer that operates it (codec, eventstore, schema,
// snapshot, session, replay, drift) and the orgctl operator CLI.
//
// The kernel's transition handlers are pure and panic on malformed
// input; the engine recovers those panics and returns them as errors,
// while a failed invariant check after a transition still panics. The
// runtime layer is where untrusted input, persistence, and recovery
// live.
package orgkernel
