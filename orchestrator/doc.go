// Package orchestrator ties the registry, state machine, timeout policy and
// external collaborators together. It receives transport events, loads and
// locks the session, applies the phase transition function, consults the
// reasoning oracle when a new question or guess is needed, persists the
// result and emits outbound events.
//
// Concurrency model: every operation runs under the registry's per-session
// lock, so operations on a single session are fully serialized while
// unrelated sessions proceed concurrently. Oracle and analyzer calls are slow
// network operations issued while holding the lock, so a slow call delays
// only that one session, never others. Cancel is always accepted, even while an
// oracle call is outstanding: the in-flight call's context is cancelled and
// its result, should it still arrive, is discarded.
//
// Failure model: oracle and analyzer failures never corrupt session state.
// Operations that consult the oracle mutate the session only after the call
// succeeds; on failure every staged change (including lastActivityAt) is
// rolled back so the caller can retry within the timeout window. There is no
// automatic oracle retry at this layer.
package orchestrator
