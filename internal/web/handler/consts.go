package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// APIPrefix is the base path of the JSON API.
	APIPrefix = "/api"

	// SessionCookie is the name of the session cookie.
	SessionCookie = "session"

	// ErrNilACDFatalLogMsg is used if app or cfg or db var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or db is nil"
)
