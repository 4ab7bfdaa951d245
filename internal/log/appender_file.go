package log

import "gopkg.in/natefinch/lumberjack.v2"

// AddFileAppender adds a size/age-rotated file writer to m, backed by
// lumberjack.
func (m *MultiWriter) AddFileAppender(opt FileAppenderOptions) *MultiWriter {
	m.writers = append(m.writers, &lumberjack.Logger{
		Filename: opt.Filename,
		MaxSize: opt.MaxSize,
		MaxBackups: opt.MaxBackups,
		MaxAge: opt.MaxAge,
		Compress: opt.Compress,
	})
	return m
}

func fileAppenderOptFromMap(opts map[string]interface{}) FileAppenderOptions {
	var out FileAppenderOptions
	if v, ok := opts["filename"].(string); ok {
		out.Filename = v
	}
	if v, ok := opts["maxsize"].(int); ok {
		out.MaxSize = v
	}
	if v, ok := opts["maxbackups"].(int); ok {
		out.MaxBackups = v
	}
	if v, ok := opts["maxage"].(int); ok {
		out.MaxAge = v
	}
	if v, ok := opts["compress"].(bool); ok {
		out.Compress = v
	}
	return out
}
