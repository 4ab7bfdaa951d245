package log

// LoggerConfig is netqualctl's logging configuration: level, a mini-template
// output pattern or a set of fan-out appenders.
type LoggerConfig struct {
	Level string `yaml:"level"`
	Pattern string `yaml:"pattern"`
	Time string `yaml:"time"`
	Appenders []AppenderConfig `yaml:"appenders,omitempty"`
	Formatter *FormatterConfig `yaml:"formatter,omitempty"`
}

// AppenderConfig selects one destination logrus fans output out to
// (stdout, a rotated file,...). Options is type-specific; see
// fileAppenderOptFromMap.
type AppenderConfig struct {
	Type string `yaml:"type"`
	Options map[string]interface{} `yaml:"options,omitempty"`
}

// FormatterConfig selects logrus-prefixed-formatter's colorized text output
// instead of the mini-template Pattern formatter.
type FormatterConfig struct {
	EnableColors bool `yaml:"enable_colors,omitempty"`
	FullTimestamp bool `yaml:"full_timestamp,omitempty"`
	DisableSorting bool `yaml:"disable_sorting,omitempty"`
}

// FileAppenderOptions configures a rotated log file (lumberjack-backed).
type FileAppenderOptions struct {
	Filename string `yaml:"filename"`
	MaxSize int `yaml:"maxsize,omitempty"` // MB
	MaxAge int `yaml:"maxage,omitempty"` // days
	MaxBackups int `yaml:"maxbackups,omitempty"`
	Compress bool `yaml:"compress,omitempty"`
}

// LokiAppenderOptions lists the options of a "loki" appender, which ships
// logs to a Grafana Loki push endpoint. The appender reads these options
// from AppenderConfig.Options into a LokiConfig (lokiOptFromMap); this
// struct is not used on that path.
type LokiAppenderOptions struct {
	Endpoint string `yaml:"endpoint"`
	Labels map[string]string `yaml:"labels,omitempty"`
	BatchSize int `yaml:"batchsize,omitempty"`
	FlushInterval string `yaml:"flushinterval,omitempty"`
}
