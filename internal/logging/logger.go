package logging

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	// LogPath is the folder the rotating log file is written to.
	LogPath  string
	FileName string
	Debug    bool
	// Console mirrors log lines to ConsoleOut. Debug lines are only
	// mirrored when Debug is set.
	Console    bool
	ConsoleOut io.Writer
}

// cliHook for logging Info level and above to the CLI.
type cliHook struct {
	out    io.Writer
	levels []log.Level
}

func newCliHook(out io.Writer, debug bool) *cliHook {
	levels := []log.Level{log.InfoLevel, log.WarnLevel, log.ErrorLevel, log.FatalLevel, log.PanicLevel}
	if debug {
		levels = append(levels, log.DebugLevel)
	}

	return &cliHook{out: out, levels: levels}
}

func (h *cliHook) Levels() []log.Level {
	return h.levels
}

func (h *cliHook) Fire(entry *log.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}
	_, err = io.WriteString(h.out, line)
	return err
}

// Setup configures the standard logrus logger with a rotating file and,
// optionally, a console hook.
func Setup(opts Options) *lumberjack.Logger {
	fileName := opts.FileName
	if fileName == "" {
		fileName = "current_log.log"
	}

	// Rotating file logger setup
	lumberjackLogger := &lumberjack.Logger{
		Filename:   filepath.ToSlash(filepath.Join(opts.LogPath, fileName)),
		MaxSize:    5, // in MB
		MaxBackups: 10,
		MaxAge:     30,   // in days
		Compress:   true, // compress old log files
	}

	log.SetFormatter(&log.JSONFormatter{
		TimestampFormat: time.RFC1123Z,
	})
	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	log.SetOutput(lumberjackLogger)

	if opts.Console {
		out := opts.ConsoleOut
		if out == nil {
			out = os.Stderr
		}
		log.AddHook(newCliHook(out, opts.Debug))
	}

	return lumberjackLogger
}

// CreateLogger returns an entry of the standard logger tagged with the
// component name.
func CreateLogger(name string) *log.Entry {
	return log.WithField("from", name)
}

func StructFields(data interface{}) log.Fields {
	fields := log.Fields{}

	// Use reflection to iterate through the struct's fields and add them to the fields map
	val := reflect.ValueOf(data)
	typ := reflect.TypeOf(data)

	if val.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fields
	}

	for i := 0; i < val.NumField(); i++ {
		if !typ.Field(i).IsExported() {
			continue
		}
		fieldName := typ.Field(i).Name
		fieldValue := val.Field(i).Interface()
		fields[fieldName] = fieldValue
	}

	return fields
}
