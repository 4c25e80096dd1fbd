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

package protodb

import (
	"regexp"
	"sync"

	"golang.org/x/sync/singleflight"
)

// regexCache memoizes pattern -> compiled regexp across concurrent
// [Builder] runs.
//
// Large protocol DBs (and variant DBs built from shared fragment
// libraries, e.g. a family of "HTTP-like" protocols) tend to reuse the
// same handful of regex patterns (line terminators, token delimiters)
// across many fields. Since a DB is read-only and may be shared across
// decoder instances once built, but is commonly *built* by several
// goroutines compiling sibling DBs at process start, this cache avoids
// redundant regexp.Compile calls and the resulting bursts of garbage
// without requiring callers to coordinate explicitly.
var regexCache struct {
	group singleflight.Group
	mu    sync.RWMutex
	byPat map[string]*regexp.Regexp
}

func init() {
	regexCache.byPat = make(map[string]*regexp.Regexp)
}

// CompileRegex compiles pattern via the shared, process-wide regex
// cache, for callers outside [Builder] (e.g. the Expression Evaluator's
// hasstring/extractstring, which compile a StringLit pattern found on an
// operand node rather than a field's own precompiled regex).
func CompileRegex(pattern string) (*regexp.Regexp, error) {
	return compileRegex(pattern)
}

// compileRegex compiles pattern, reusing a previous compilation if any
// goroutine (in this process) has already compiled the identical
// pattern string.
func compileRegex(pattern string) (*regexp.Regexp, error) {
	regexCache.mu.RLock()
	if re, ok := regexCache.byPat[pattern]; ok {
		regexCache.mu.RUnlock()
		return re, nil
	}
	regexCache.mu.RUnlock()

	v, err, _ := regexCache.group.Do(pattern, func() (any, error) {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		regexCache.mu.Lock()
		regexCache.byPat[pattern] = re
		regexCache.mu.Unlock()
		return re, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*regexp.Regexp), nil
}
