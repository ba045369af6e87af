package txo

// Logger is the logging surface this module writes to. Adapters under
// logger/ bridge it to concrete logging backends.
type Logger interface {
	Info(msg string)
	Debug(msg string)
	Warn(msg string)
	Error(msg string, err error)
}

// Loggable is implemented by components that accept an injected logger, so
// constructors can fan the configured logger out to their collaborators.
type Loggable interface {
	SetLogger(Logger)
}

// NopLogger discards everything. It is the default until a logger is
// configured.
type NopLogger struct{}

var _ Logger = (*NopLogger)(nil)

func (*NopLogger) Debug(msg string) {} //nolint:all

func (*NopLogger) Warn(msg string) {} //nolint:all

func (*NopLogger) Error(msg string, err error) {} //nolint:all

func (*NopLogger) Info(msg string) {} //nolint:all
