package loggy

import (
	"fmt"
	"os"
	"strings"
	"time"
)

var ECHO bool = false
var LogFolder string = "./logs/"

var logFile *os.File
var loggers map[int]*Logger
var app string = "cpm8"

type Logger struct {
	id int
}

func Get(id int) *Logger {
	if loggers == nil {
		loggers = make(map[int]*Logger)
	}
	l, ok := loggers[id]
	if !ok {
		l = &Logger{id: id}
		loggers[id] = l
	}
	return l
}

// SetApp changes the filename stem used for the shared log file. Only has
// an effect before the first line is written.
func SetApp(name string) {
	if name != "" {
		app = name
	}
}

func file() *os.File {
	if logFile == nil {
		os.MkdirAll(LogFolder, 0755)
		filename := fmt.Sprintf("%s_%s.log", app, fts())
		logFile, _ = os.Create(LogFolder + filename)
	}
	return logFile
}

func ts() string {
	t := time.Now()
	return fmt.Sprintf(
		"%.4d/%.2d/%.2d %.2d:%.2d:%.2d",
		t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
	)
}

func fts() string {
	t := time.Now()
	return fmt.Sprintf(
		"%.4d%.2d%.2d%.2d%.2d%.2d",
		t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
	)
}

func (l *Logger) llogf(designator string, format string, v ...interface{}) {

	format = fmt.Sprintf("%s %s [%d] :: %s", ts(), designator, l.id, format)

	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}

	line := fmt.Sprintf(format, v...)

	if f := file(); f != nil {
		f.WriteString(line)
		f.Sync()
	}

	if ECHO {
		os.Stderr.WriteString(line)
	}

}

func (l *Logger) Logf(format string, v ...interface{}) {
	l.llogf("INFO ", format, v...)
}

func (l *Logger) Log(v ...interface{}) {
	l.llogf("INFO ", strings.TrimSpace(strings.Repeat("%v ", len(v))), v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.llogf("ERROR", format, v...)
}

func (l *Logger) Error(v ...interface{}) {
	l.llogf("ERROR", strings.TrimSpace(strings.Repeat("%v ", len(v))), v...)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.llogf("DEBUG", format, v...)
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.llogf("FATAL", format, v...)
}
