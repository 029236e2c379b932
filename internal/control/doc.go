// Package control models the panel control surface: the sliders,
// switches, buttons and labels a panel renders and the values behind
// them.
//
// Controls are persisted in SQLite so values survive restarts, with an
// in-memory registry cache in front for fast lookups on the hot path
// (every WebSocket frame resolves a control). The Registry is the
// package's public face; the Repository interface underneath allows
// mock-backed tests.
//
// Value semantics per type:
//   - slider: numeric, clamped to [Min, Max] (0-100 by default)
//   - switch: 0 or 1
//   - button: momentary, value records the last press (1) or release (0)
//   - label:  display only, value unused
package control
