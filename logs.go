package voxelvk

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

//Logs bundles the level loggers shared by every core object. Each level can point at its
//own file so an application can keep info, warnings and errors apart.
type Logs struct {
	Info  *log.Logger
	Warn  *log.Logger
	Error *log.Logger
	Debug *log.Logger

	files []*os.File
}

const logFlags = log.Ldate | log.Ltime | log.Lshortfile

//NewLogs opens info_log.txt, warn_log.txt, error_log.txt (and debug_log.txt when debug is
//set) in dir. An empty dir logs every level to stderr.
func NewLogs(dir string, debug bool) (*Logs, error) {
	if dir == "" {
		l := NewWriterLogs(os.Stderr)
		if !debug {
			l.Debug.SetOutput(io.Discard)
		}
		return l, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}

	var logs Logs
	open := func(name string) (io.Writer, error) {
		file, err := os.OpenFile(logPath(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", name)
		}
		logs.files = append(logs.files, file)
		return file, nil
	}

	info_file, err := open("info_log.txt")
	if err != nil {
		logs.Close()
		return nil, err
	}
	warn_file, err := open("warn_log.txt")
	if err != nil {
		logs.Close()
		return nil, err
	}
	error_file, err := open("error_log.txt")
	if err != nil {
		logs.Close()
		return nil, err
	}
	debug_file := io.Discard
	if debug {
		if debug_file, err = open("debug_log.txt"); err != nil {
			logs.Close()
			return nil, err
		}
	}

	logs.Info = log.New(info_file, "INFO: ", logFlags)
	logs.Warn = log.New(warn_file, "WARNING: ", logFlags)
	logs.Error = log.New(error_file, "ERROR: ", logFlags)
	logs.Debug = log.New(debug_file, "DEBUG: ", logFlags)
	return &logs, nil
}

//NewWriterLogs sends every level to w
func NewWriterLogs(w io.Writer) *Logs {
	return &Logs{
		Info:  log.New(w, "INFO: ", logFlags),
		Warn:  log.New(w, "WARNING: ", logFlags),
		Error: log.New(w, "ERROR: ", logFlags),
		Debug: log.New(w, "DEBUG: ", logFlags),
	}
}

//DiscardLogs drops everything
func DiscardLogs() *Logs {
	return NewWriterLogs(io.Discard)
}

//Close closes the log files opened by NewLogs
func (l *Logs) Close() error {
	var first error
	for _, f := range l.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.files = nil
	return first
}

func logPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}
