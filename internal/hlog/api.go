package hlog

func Trace(args ...any) { Default().Trace(args...) }

func Tracef(f string, args ...any) { Default().Tracef(f, args...) }

func Debug(args ...any) { Default().Debug(args...) }

func Debugf(f string, args ...any) { Default().Debugf(f, args...) }

func Info(args ...any) { Default().Info(args...) }

func Infof(f string, args ...any) { Default().Infof(f, args...) }

func Warn(args ...any) { Default().Warn(args...) }

func Warnf(f string, args ...any) { Default().Warnf(f, args...) }

func Error(args ...any) { Default().Error(args...) }

func Errorf(f string, args ...any) { Default().Errorf(f, args...) }

func Fatal(args ...any) { Default().Fatal(args...) }

func Fatalf(f string, args ...any) { Default().Fatalf(f, args...) }

func With(kv ...any) Logger { return Default().With(kv...) }
