// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package trace contains a minimal, always-compiled-in debug tracer for
// the decoder's hot path.
//
// Unlike a general logging façade, this is deliberately narrow: it exists
// so that a developer chasing a miscompiled protocol DB or a rollback bug
// can set NETDECODE_TRACE and see every field/protocol transition the
// engine makes, with zero cost when unset. Hosts that want real
// structured logging own that themselves; this package is not it.
package trace

import (
	"fmt"
	"os"
	"regexp"
	"sync"
)

var (
	once    sync.Once
	enabled bool
	pattern *regexp.Regexp
)

func init() {
	once.Do(load)
}

func load() {
	v, ok := os.LookupEnv("NETDECODE_TRACE")
	if !ok || v == "" {
		return
	}
	enabled = true
	if v != "1" && v != "true" {
		pattern = regexp.MustCompile(v)
	}
}

// Enabled reports whether tracing is turned on for this process.
func Enabled() bool {
	return enabled
}

// Log writes a trace line to stderr, gated by [Enabled] and, if set, by
// the NETDECODE_TRACE regexp filter matching the formatted line.
func Log(op, format string, args ...any) {
	if !enabled {
		return
	}
	line := fmt.Sprintf("[%s] "+format, append([]any{op}, args...)...)
	if pattern != nil && !pattern.MatchString(line) {
		return
	}
	fmt.Fprintln(os.Stderr, line)
}

// Assert panics with a formatted message if cond is false.
//
// Unlike [Log], assertions always run: they guard invariants whose
// violation means the protocol DB or the decoder itself is broken, not
// just truncated input, and silently limping on would corrupt the
// DetailTree.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("netdecode: internal assertion failed: "+format, args...))
	}
}
