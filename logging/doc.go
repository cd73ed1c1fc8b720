// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer GameLogger with contextual
// helpers (session, component) and domain specific logging helpers for
// oracle calls, analyzer calls and sweep runs.
package logging
