// Package transfer walks a mapping configuration and replays it against a
// target server through a Gateway, one step at a time. A run is linear and
// keeps going on per-item failures; only the clear and server steps abort it.
package transfer
