// Package client implements the file manager front end state machine.
//
// The client is split the same way the server is:
//
//   - Fetcher talks HTTP to the server and decodes bodies into Content.
//   - Reducer turns (State, Action) into a new State plus the Commands the
//     new state implies (PUT, MKCOL, DELETE).
//   - Controls render themselves from a State and turn user events into
//     Actions.
//   - App owns the one authoritative State and glues the rest together.
//
// App has no rendering of its own. The terminal UI in internal/tui drives
// it, and tests drive it directly.
package client
