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

package log

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapLogger struct {
	level zap.AtomicLevel
	sugar *zap.SugaredLogger
	// owned is false for loggers wrapped with FromZap.
	owned bool
}

var _ Logger = &zapLogger{}

// NewZap returns a Logger that emits JSON lines through zap, to w. Debug
// messages are suppressed until SetDebug(true) is called.
func NewZap(w io.Writer) Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	return &zapLogger{
		level: level,
		sugar: newZap(w, level).Sugar(),
		owned: true,
	}
}

func newZap(w io.Writer, level zap.AtomicLevel) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	return zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), level))
}

// FromZap wraps an existing zap logger. SetOut, SetErr and SetDebug have no
// effect; the wrapped logger's own configuration applies.
func FromZap(l *zap.Logger) Logger {
	return &zapLogger{
		sugar: l.Sugar(),
	}
}

// SetOut replaces the destination of all log lines. zap has a single sink, so
// SetErr is a no-op.
func (l *zapLogger) SetOut(w io.Writer) {
	if !l.owned {
		return
	}
	l.sugar = newZap(w, l.level).Sugar()
}

func (*zapLogger) SetErr(io.Writer) {}

func (l *zapLogger) SetDebug(debug bool) {
	if !l.owned {
		return
	}
	if debug {
		l.level.SetLevel(zapcore.DebugLevel)
		return
	}
	l.level.SetLevel(zapcore.InfoLevel)
}

func (l *zapLogger) Debug(args ...any) { l.sugar.Debug(fmt.Sprint(args...)) }
func (l *zapLogger) Info(args ...any)  { l.sugar.Info(fmt.Sprint(args...)) }
func (l *zapLogger) Warn(args ...any)  { l.sugar.Warn(fmt.Sprint(args...)) }
func (l *zapLogger) Error(args ...any) { l.sugar.Error(fmt.Sprint(args...)) }

func (l *zapLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }
