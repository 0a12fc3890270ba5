package core

// Logger is implemented by the app's log services.
// args may hold an error, extra fields (map[string]interface{}) and the authenticated Person.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the caller a log entry is about.
type Person struct {
	ID       string
	Username string
	Email    string
}
