// Package main provides the entry point for StoatBridge, a web-based wizard
// that migrates a Discord server to a Stoat instance. It runs a JSON API on
// the Fiber framework, scans the source server through the Discord REST API,
// lets the operator edit the migration plan, and rebuilds the structure on
// the target through the Stoat API. Gorm handles persistence of accounts,
// settings and run history.
package main
