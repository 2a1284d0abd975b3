// Package permset translates Discord's 64-bit permission model into the
// Stoat (Revolt-family) 32-bit allow/deny model.
//
// The translation is deliberately lossy: Discord bits with no Stoat
// counterpart are dropped, and the Administrator bit expands to every known
// Stoat bit instead of a partial decomposition. All functions are pure.
package permset
