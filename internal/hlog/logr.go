package hlog

import (
	"github.com/go-logr/logr"
)

// LogrSink adapts a Logger to logr.LogSink, so dependencies that only know
// how to log through logr (e.g. client-go-style libraries, SDK transports)
// end up on the same Core and formatting as the rest of bake.
type LogrSink struct {
	logger Logger
	name   string
}

func NewLogr(l Logger) logr.Logger {
	return logr.New(&LogrSink{logger: l})
}

func (s *LogrSink) Init(info logr.RuntimeInfo) {}

func (s *LogrSink) Enabled(level int) bool {
	return s.logger.IsLevelEnabled(levelFromLogr(level))
}

func (s *LogrSink) Info(level int, msg string, kv ...any) {
	l := s.logger
	if s.name != "" {
		kv = append([]any{"logger", s.name}, kv...)
	}
	l.With(kv...).logs(levelFromLogr(level), msg)
}

func (s *LogrSink) Error(err error, msg string, kv ...any) {
	kv = append(kv, "error", err)
	if s.name != "" {
		kv = append([]any{"logger", s.name}, kv...)
	}
	s.logger.With(kv...).logs(ErrorLevel, msg)
}

func (s *LogrSink) WithValues(kv ...any) logr.LogSink {
	return &LogrSink{logger: s.logger.With(kv...), name: s.name}
}

func (s *LogrSink) WithName(name string) logr.LogSink {
	n := name
	if s.name != "" {
		n = s.name + "." + name
	}
	return &LogrSink{logger: s.logger, name: n}
}

// levelFromLogr maps logr's zero-is-info, higher-is-more-verbose V-levels
// onto our InfoLevel/DebugLevel/TraceLevel scale.
func levelFromLogr(level int) Level {
	switch {
	case level <= 0:
		return InfoLevel
	case level == 1:
		return DebugLevel
	default:
		return TraceLevel
	}
}

var _ logr.LogSink = (*LogrSink)(nil)
