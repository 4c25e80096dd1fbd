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

package expr

import (
	"regexp"

	"buf.build/go/netdecode/internal/lookup"
	"buf.build/go/netdecode/internal/protodb"
	"buf.build/go/netdecode/internal/status"
)

// compileRegex compiles an ad hoc pattern (e.g. hasstring/extractstring's
// StringLit argument) through the shared protodb regex cache, so repeated
// evaluation of the same call operand across many packets never recompiles.
func (c *Context) compileRegex(pattern string) (*regexp.Regexp, error) {
	return protodb.CompileRegex(pattern)
}

// evalLookupKeys evaluates one expr per key slot of t, matching each
// key's declared kind (number vs buffer), used by checklookuptable/
// updatelookuptable.
func evalLookupKeys(ctx *Context, t *lookup.Table, keyExprs []protodb.Ref) ([]lookup.Value, status.Code, *status.Error) {
	if len(keyExprs) != len(t.Keys) {
		c, e := status.Fail(status.DBInconsistency, 0, "lookup table key arity mismatch")
		return nil, c, e
	}
	keys := make([]lookup.Value, len(keyExprs))
	for i, ex := range keyExprs {
		switch t.Keys[i].Kind {
		case lookup.Number:
			n, code, err := EvalNumber(ctx, ex)
			if code != status.OK {
				return nil, code, err
			}
			keys[i] = lookup.Value{Number: n}
		default:
			b, code, err := EvalBuffer(ctx, ex)
			if code != status.OK {
				return nil, code, err
			}
			keys[i] = lookup.Value{Buffer: b}
		}
	}
	return keys, status.OK, nil
}
