// Copyright 2019 Gregory Meyer
//
// Permission is hereby granted, free of charge, to any person
// obtaining a copy of this software and associated documentation
// files (the "Software"), to deal in the Software without
// restriction, including without limitation the rights to use, copy,
// modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS
// BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN
// ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package logging sets up the process-wide structured logger. Styled on
// streamspace's internal/logger/logger.go (zerolog, a global Logger plus
// Component child loggers), generalized from that package's fixed env
// var and format to spec.md §6's "read SRM_LOG, falling back to info
// with a message on parse failure."
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// EnvVar is this runtime's analogue of Rust's RUST_LOG (spec.md §6).
const EnvVar = "SRM_LOG"

// Log is the process-wide logger, valid only after Init.
var Log zerolog.Logger

// Init configures the global logger level from the EnvVar environment
// variable. An unset variable selects info; an unparseable value also
// falls back to info and logs an explanatory message.
func Init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	Log = zerolog.New(os.Stderr).With().Timestamp().Logger()

	raw, set := os.LookupEnv(EnvVar)
	level := zerolog.InfoLevel
	if set {
		parsed, err := zerolog.ParseLevel(raw)
		if err != nil {
			Log.Info().
				Str("env", EnvVar).
				Str("value", raw).
				Msg("couldn't parse log level, defaulting to info")
		} else {
			level = parsed
		}
	}

	zerolog.SetGlobalLevel(level)
}

// Component returns a child logger tagged with name, used for a node's
// or subsystem's log output (original_source/src/static_core.rs logs
// through each node's own name as the tracing target).
func Component(name string) zerolog.Logger {
	return Log.With().Str("component", name).Logger()
}
