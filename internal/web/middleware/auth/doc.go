// Package auth provides the authentication middleware for the JSON API.
//
// The middleware validates the session cookie on every request under /api
// and rejects unauthenticated calls with a 401 JSON body. The login and
// health endpoints stay public. Validated user data is added to
// fiber.Locals for handlers further down the chain.
//
// Usage:
//
//	app.Use(authmiddleware.Middleware)
package auth
