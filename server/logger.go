package server

import (
	"log"
	"os"
)

// Logger provides leveled logging with errors routed to stderr.
type Logger struct {
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	error *log.Logger
	fatal *log.Logger
}

// AppLogger is the global logger instance for the server.
var AppLogger *Logger

// NewLogger creates a new leveled logger.
func NewLogger() *Logger {
	return &Logger{
		debug: log.New(os.Stdout, "[DEBUG] ", log.LstdFlags|log.Lshortfile),
		info:  log.New(os.Stdout, "[INFO]  ", log.LstdFlags|log.Lshortfile),
		warn:  log.New(os.Stdout, "[WARN]  ", log.LstdFlags|log.Lshortfile),
		error: log.New(os.Stderr, "[ERROR] ", log.LstdFlags|log.Lshortfile),
		fatal: log.New(os.Stderr, "[FATAL] ", log.LstdFlags|log.Lshortfile),
	}
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.debug.Printf(format, v...)
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.info.Printf(format, v...)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.warn.Printf(format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.error.Printf(format, v...)
}

// Fatal logs the message and exits the process.
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.fatal.Printf(format, v...)
	os.Exit(1)
}
