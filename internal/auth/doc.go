// Package auth provides local database authentication for the web UI.
//
// LocalProvider handles username/password authentication against the local
// database with Argon2id password hashing, plus the usual account management
// operations (create, password change/reset, activate/deactivate).
//
// This is a single-tenant tool: any authenticated user may run migrations,
// so there is no role or permission model.
//
// Example usage:
//
//	provider := auth.NewLocalProvider(db)
//	user, err := provider.Authenticate(username, password)
package auth
