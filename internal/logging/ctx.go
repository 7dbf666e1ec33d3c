package logging

import "context"

type contextKey string

const loggerKey contextKey = "logger"

// WithLogger returns a derived context with associated logger.
func WithLogger(ctx context.Context, l LoggerForModuleFunc) context.Context {
	if l == nil {
		l = getNullLogger
	}

	return context.WithValue(ctx, loggerKey, l)
}

// Module returns an accessor function that retrieves the logger for the given
// module from the context.
func Module(module string) func(ctx context.Context) Logger {
	return func(ctx context.Context) Logger {
		if l, ok := ctx.Value(loggerKey).(LoggerForModuleFunc); ok {
			return l(module)
		}

		return getNullLogger(module)
	}
}
