package hlog

import (
	"fmt"
	"os"
	"time"
)

func NewLogger(core Core) Logger {
	return Logger{core: core}
}

// Logger is a cheap-to-copy handle onto a Core, with attached fields.
type Logger struct {
	core   Core
	fields []Field
}

func (l Logger) logf(lvl Level, f string, args ...any) {
	if !l.core.Enabled(lvl) {
		return
	}
	l.logs(lvl, fmt.Sprintf(f, args...))
}

func (l Logger) log(lvl Level, args ...any) {
	if !l.core.Enabled(lvl) {
		return
	}
	l.logs(lvl, fmt.Sprint(args...))
}

func (l Logger) logs(lvl Level, s string) {
	err := l.core.Log(Entry{
		Timestamp: time.Now(),
		Level:     lvl,
		Message:   s,
		Fields:    l.fields,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "hlog: error logging: %v\n", err)
	}
}

func (l Logger) Trace(args ...any)                 { l.log(TraceLevel, args...) }
func (l Logger) Tracef(f string, args ...any)       { l.logf(TraceLevel, f, args...) }
func (l Logger) Debug(args ...any)                 { l.log(DebugLevel, args...) }
func (l Logger) Debugf(f string, args ...any)       { l.logf(DebugLevel, f, args...) }
func (l Logger) Info(args ...any)                  { l.log(InfoLevel, args...) }
func (l Logger) Infof(f string, args ...any)        { l.logf(InfoLevel, f, args...) }
func (l Logger) Warn(args ...any)                  { l.log(WarnLevel, args...) }
func (l Logger) Warnf(f string, args ...any)        { l.logf(WarnLevel, f, args...) }
func (l Logger) Error(args ...any)                 { l.log(ErrorLevel, args...) }
func (l Logger) Errorf(f string, args ...any)       { l.logf(ErrorLevel, f, args...) }

func (l Logger) Fatal(args ...any) {
	l.log(FatalLevel, args...)
	os.Exit(1)
}

func (l Logger) Fatalf(f string, args ...any) {
	l.logf(FatalLevel, f, args...)
	os.Exit(1)
}

// With returns a copy of l with additional fields attached to every entry.
func (l Logger) With(kv ...any) Logger {
	if len(kv)%2 != 0 {
		panic("hlog: With() requires an even number of key/value arguments")
	}

	fields := make([]Field, len(l.fields), len(l.fields)+len(kv)/2)
	copy(fields, l.fields)

	for i := 0; i < len(kv); i += 2 {
		key, _ := kv[i].(string)
		fields = append(fields, Field{Key: key, Value: kv[i+1]})
	}

	l.fields = fields
	return l
}

func (l Logger) IsLevelEnabled(lvl Level) bool {
	return l.core.Enabled(lvl)
}
