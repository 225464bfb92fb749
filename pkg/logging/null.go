package logging

import "context"

// NullLogger is what engines and the diff service log to when logging is
// off (the config default, or --quiet) or when a caller passes a nil Logger
// (see OrNull)
type NullLogger struct{}

func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (*NullLogger) Debug(context.Context, string, Fields) {}

func (*NullLogger) Info(context.Context, string, Fields) {}

func (*NullLogger) Warn(context.Context, string, Fields) {}

func (*NullLogger) Error(context.Context, string, error, Fields) {}

// WithFields ignores fields; the run_id and engine tags have nowhere to go
func (l *NullLogger) WithFields(Fields) Logger {
	return l
}

// Close has no sink to flush
func (*NullLogger) Close() error {
	return nil
}
