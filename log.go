// Copyright © 2024 probe-rs contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package dapcore

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the sink the core writes diagnostic spans to. Callers that
// don't want probe traffic on stderr can install a no-op implementation via
// SetLogger; the package default delegates to zerolog so span fields
// (dp, ap, bank) come out as structured key/value pairs instead of a
// formatted string.
type Logger interface {
	Span(name string, fields map[string]any)
	Warn(msg string, fields map[string]any)
}

type zerologLogger struct {
	log zerolog.Logger
}

func (z zerologLogger) Span(name string, fields map[string]any) {
	ev := z.log.Debug().Str("span", name)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(name)
}

func (z zerologLogger) Warn(msg string, fields map[string]any) {
	ev := z.log.Warn()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

var defaultLogger Logger = zerologLogger{log: zerolog.New(os.Stderr).With().Timestamp().Logger()}

var logger = defaultLogger

// SetLogger installs a custom logger; passing nil restores the zerolog
// default.
func SetLogger(impl Logger) {
	if impl == nil {
		logger = defaultLogger
		return
	}
	logger = impl
}

// NopLogger discards everything; useful in tests that don't want span noise.
type NopLogger struct{}

func (NopLogger) Span(string, map[string]any) {}
func (NopLogger) Warn(string, map[string]any) {}
