package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

type LogLevel int

const (
	ERROR LogLevel = iota
	WARN
	INFO
	DEBUG
	TRACE
)

var (
	Error = log.New(io.Discard, "ERROR: ", flags)
	Warn  = log.New(io.Discard, "WARN:  ", flags)
	Info  = log.New(io.Discard, "INFO:  ", flags)
	Debug = log.New(io.Discard, "DEBUG: ", flags)
	Trace = log.New(io.Discard, "TRACE: ", flags)
)

const flags = log.Ldate | log.Ltime | log.Lshortfile

func StringToLogLevel(value string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return ERROR
	case "warn":
		return WARN
	case "info":
		return INFO
	case "debug":
		return DEBUG
	case "trace":
		return TRACE
	}
	return INFO
}

func (s LogLevel) String() string {
	switch s {
	case ERROR:
		return "ERROR"
	case WARN:
		return "WARN"
	case INFO:
		return "INFO"
	case DEBUG:
		return "DEBUG"
	case TRACE:
		return "TRACE"
	}
	return "UNKNOWN"
}

// Initialize points every logger at or above logLevel to w and silences the rest.
// A nil w means stderr; stdout belongs to the tools' own output.
func Initialize(logLevel LogLevel, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	writerFor := func(level LogLevel) io.Writer {
		if logLevel >= level {
			return w
		}
		return io.Discard
	}

	Error.SetOutput(writerFor(ERROR))
	Warn.SetOutput(writerFor(WARN))
	Info.SetOutput(writerFor(INFO))
	Debug.SetOutput(writerFor(DEBUG))
	Trace.SetOutput(writerFor(TRACE))
}
