// Package logging provides loggers for the rest of the codebase.
package logging

// Logger is an interface used by all code to output logs.
type Logger interface {
	Debugf(msg string, args ...interface{})
	Debugw(msg string, keyValuePairs ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
}

// LoggerForModuleFunc returns a logger for a given module.
type LoggerForModuleFunc func(module string) Logger
