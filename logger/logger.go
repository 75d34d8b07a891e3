// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package logger holds the leveled logger used by the executor and the
// command line tools.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// timeFormat is UTC with constant width and microsecond resolution.
const timeFormat = "2006-01-02T15:04:05.000000Z07:00"

// Logger is a leveled logger.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

const (
	LevelError = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// LevelPrefix returns the fixed-width tag written before a message.
func LevelPrefix(level int) string {
	return [...]string{"ERROR: ", "WARN:  ", "INFO:  ", "DEBUG: "}[level]
}

// NopLogger discards everything.
var NopLogger Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debugf(format string, v ...interface{}) {}
func (nopLogger) Infof(format string, v ...interface{})  {}
func (nopLogger) Warnf(format string, v ...interface{})  {}
func (nopLogger) Errorf(format string, v ...interface{}) {}

// standardLogger writes timestamped lines up to its verbosity.
type standardLogger struct {
	logger    *log.Logger
	verbosity int
}

type timestamped struct {
	w io.Writer
}

func (t timestamped) Write(p []byte) (int, error) {
	return fmt.Fprintf(t.w, "%v %s", time.Now().UTC().Format(timeFormat), p)
}

func newStandardLogger(w io.Writer, verbosity int) *standardLogger {
	return &standardLogger{logger: log.New(timestamped{w: w}, "", 0), verbosity: verbosity}
}

// NewStandardLogger logs at info level and above.
func NewStandardLogger(w io.Writer) Logger {
	return newStandardLogger(w, LevelInfo)
}

// NewLogger returns a standard logger, or a debug level one if verbose.
func NewLogger(w io.Writer, verbose bool) Logger {
	if verbose {
		return newStandardLogger(w, LevelDebug)
	}
	return newStandardLogger(w, LevelInfo)
}

func (s *standardLogger) printf(level int, format string, v ...interface{}) {
	if level > s.verbosity {
		return
	}
	s.logger.Printf(LevelPrefix(level)+format, v...)
}

func (s *standardLogger) Debugf(format string, v ...interface{}) { s.printf(LevelDebug, format, v...) }
func (s *standardLogger) Infof(format string, v ...interface{})  { s.printf(LevelInfo, format, v...) }
func (s *standardLogger) Warnf(format string, v ...interface{})  { s.printf(LevelWarn, format, v...) }
func (s *standardLogger) Errorf(format string, v ...interface{}) { s.printf(LevelError, format, v...) }

// BufferLogger keeps every message, at any level, for tests to inspect.
type BufferLogger struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewBufferLogger returns an empty BufferLogger.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{}
}

func (b *BufferLogger) write(level int, format string, v ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(&b.buf, LevelPrefix(level)+format+"\n", v...)
}

func (b *BufferLogger) Debugf(format string, v ...interface{}) { b.write(LevelDebug, format, v...) }
func (b *BufferLogger) Infof(format string, v ...interface{})  { b.write(LevelInfo, format, v...) }
func (b *BufferLogger) Warnf(format string, v ...interface{})  { b.write(LevelWarn, format, v...) }
func (b *BufferLogger) Errorf(format string, v ...interface{}) { b.write(LevelError, format, v...) }

// String returns everything logged so far.
func (b *BufferLogger) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
