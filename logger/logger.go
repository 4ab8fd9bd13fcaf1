package logger

// Logger is the structured logger every component receives by injection.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]any) {}
func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Warn(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}

// New picks the backend for a format: "console" for colored local output,
// anything else for production JSON.
func New(format, level string) Logger {
	if format == "console" {
		return NewConsoleLogger(level)
	}
	return NewZapLogger(level)
}
