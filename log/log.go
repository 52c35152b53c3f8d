// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//  http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Package log provides the leveled logger used by the bootstrap workflow and
// the command line tool.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Logger is the standard logger interface.
type Logger interface {
	// SetOut sets the destination for normal output.
	SetOut(io.Writer)
	// SetErr sets the destination for warning and error output.
	SetErr(io.Writer)
	// SetDebug turns debug mode on or off.
	SetDebug(bool)
	// Debug logs debug output.
	Debug(...any)
	// Debugf logs formatted debug output.
	Debugf(string, ...any)
	// Info logs normal priority messages.
	Info(...any)
	// Infof logs formatted normal priority messages.
	Infof(string, ...any)
	// Warn logs warnings.
	Warn(...any)
	// Warnf logs formatted warnings.
	Warnf(string, ...any)
	// Error logs error messages.
	Error(...any)
	// Errorf logs formatted error messages.
	Errorf(string, ...any)
}

var (
	warnPrefix  = color.New(color.FgYellow).SprintFunc()
	errorPrefix = color.New(color.FgRed, color.Bold).SprintFunc()
	debugPrefix = color.New(color.Faint).SprintFunc()
)

type logger struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
	debug  bool
}

var _ Logger = &logger{}

// New returns a new logger instance, writing to standard output and standard
// error. Level prefixes are colorized when the destination is a terminal.
func New() Logger {
	return &logger{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func (l *logger) SetOut(out io.Writer) {
	l.mu.Lock()
	l.stdout = out
	l.mu.Unlock()
}

func (l *logger) SetErr(err io.Writer) {
	l.mu.Lock()
	l.stderr = err
	l.mu.Unlock()
}

func (l *logger) SetDebug(debug bool) {
	l.mu.Lock()
	l.debug = debug
	l.mu.Unlock()
}

func (l *logger) err(prefix, line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintln(l.stderr, prefix, strings.TrimSpace(line))
}

func (l *logger) out(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintln(l.stdout, strings.TrimSpace(line))
}

func (l *logger) debugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *logger) Debug(args ...any) {
	if l.debugEnabled() {
		l.err(debugPrefix("debug:"), fmt.Sprint(args...))
	}
}

func (l *logger) Debugf(format string, args ...any) {
	if l.debugEnabled() {
		l.err(debugPrefix("debug:"), fmt.Sprintf(format, args...))
	}
}

func (l *logger) Info(args ...any) {
	l.out(fmt.Sprint(args...))
}

func (l *logger) Infof(format string, args ...any) {
	l.out(fmt.Sprintf(format, args...))
}

func (l *logger) Warn(args ...any) {
	l.err(warnPrefix("warning:"), fmt.Sprint(args...))
}

func (l *logger) Warnf(format string, args ...any) {
	l.err(warnPrefix("warning:"), fmt.Sprintf(format, args...))
}

func (l *logger) Error(args ...any) {
	l.err(errorPrefix("error:"), fmt.Sprint(args...))
}

func (l *logger) Errorf(format string, args ...any) {
	l.err(errorPrefix("error:"), fmt.Sprintf(format, args...))
}
