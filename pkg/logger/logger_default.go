package logger

import "sync"

type LoggerArg struct {
	Key   string
	Value string
}

type GlobalLoggerConfig struct {
	Args   []LoggerArg
	Config LoggerConfig
}

var (
	defaultLogger     *Logger
	onceLogger        sync.Once
	initializedLogger bool
)

func InitDefaultLogger(config GlobalLoggerConfig) {
	onceLogger.Do(func() {
		fields := make(map[string]string, len(config.Args))
		for _, arg := range config.Args {
			fields[arg.Key] = arg.Value
		}
		defaultLogger = NewFromConfig(config.Config).WithFields(fields)
		initializedLogger = true
	})
}

func Default() *Logger {
	if !initializedLogger {
		panic("default logger not initialized: call InitDefaultLogger() first")
	}
	return defaultLogger
}
