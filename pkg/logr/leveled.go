package logr

// Leveled 适配 retryablehttp.LeveledLogger
// HTTP 层的 Debug/Info 都降到 V(2)，避免淹没传输阶段的日志
type Leveled struct {
	Logger Logger
}

func (l Leveled) Error(msg string, keysAndValues ...any) {
	l.Logger.Error(nil, msg, keysAndValues...)
}

func (l Leveled) Warn(msg string, keysAndValues ...any) {
	l.Logger.Info(msg, keysAndValues...)
}

func (l Leveled) Info(msg string, keysAndValues ...any) {
	l.Logger.V(2).Info(msg, keysAndValues...)
}

func (l Leveled) Debug(msg string, keysAndValues ...any) {
	l.Logger.V(2).Info(msg, keysAndValues...)
}
