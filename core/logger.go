package core

// Logger reports messages and errors. Args may carry errors, extra data maps and a LogUser.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// LogUser identifies the caller a log entry is about.
type LogUser struct {
	ID string
}
