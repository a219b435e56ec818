package core

// Logger is any service that can log messages.
// args may hold errors, maps of extra data and the Actor performing the request.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Actor identifies the caller of an operation, as asserted by the identity provider.
type Actor struct {
	ID    string
	Name  string
	Email string
}
