// Package core provides the foundational domain types, interfaces and pure
// game logic used by guesswho. It defines the core abstractions for:
//
//   - Sessions (one in-progress game, its candidates and question history)
//   - Phases (the closed set of protocol stages and their transition table)
//   - Events (immutable outbound notifications for the transport layer)
//   - Timeout policy (pure inactivity predicates driving lazy expiry)
//   - Pluggable registry, clock and event sink contracts
//
// The package intentionally keeps implementation concerns (registry storage,
// orchestration, concrete oracle/analyzer adapters) out of scope, exposing
// small interfaces to enable custom backends and extensions.
package core
