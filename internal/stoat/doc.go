// Package stoat is a minimal client for the Stoat (Revolt) HTTP API and its
// Autumn file host, covering exactly the surface a migration run needs. It
// implements the transfer.Gateway interface.
package stoat
