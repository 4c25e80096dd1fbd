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

// Package status holds the tri-state status codes shared by every
// component that can partially succeed: the field decoder, the
// expression evaluator, and the variable/lookup-table store all return
// one of these alongside a typed *Error.
package status

import (
	"errors"
	"fmt"
)

// Code is the tri-state outcome of an operation.
type Code uint8

const (
	OK Code = iota
	Warning
	Failure
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case Warning:
		return "warning"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Kind is the closed error taxonomy.
type Kind uint8

const (
	Truncation Kind = iota
	MissingFieldReference
	ExpressionTypeMismatch
	DBInconsistency
	PluginError
	ResourceExhaustion
	SpeculativeFailure
)

var causes = [...]error{
	Truncation:             errors.New("truncated field"),
	MissingFieldReference:  errors.New("protofield reference not yet decoded"),
	ExpressionTypeMismatch: errors.New("expression type mismatch"),
	DBInconsistency:        errors.New("protocol db inconsistency"),
	PluginError:            errors.New("plugin reported an error"),
	ResourceExhaustion:     errors.New("resource exhausted"),
	SpeculativeFailure:     errors.New("speculative decode failed"),
}

func (k Kind) String() string {
	if err := causes[k]; err != nil {
		return err.Error()
	}
	return "unknown"
}

// Error is returned alongside a [Warning] or [Failure] status: a small
// closed Kind enum plus an offset and a free-form detail string.
type Error struct {
	Kind   Kind
	Offset int
	Detail string
}

// Unwrap implements error unwrapping via [errors.Unwrap].
func (e *Error) Unwrap() error {
	return causes[e.Kind]
}

// Error implements [error].
func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("netdecode: %v at offset %d/%#x", e.Kind, e.Offset, e.Offset)
	}
	return fmt.Sprintf("netdecode: %v at offset %d/%#x: %s", e.Kind, e.Offset, e.Offset, e.Detail)
}

// New builds an *Error for the given kind/offset/detail.
func New(kind Kind, offset int, detail string) *Error {
	return &Error{Kind: kind, Offset: offset, Detail: detail}
}

// Truncated is shorthand for a Warning-level truncation error.
func Truncated(offset int, detail string) (Code, *Error) {
	return Warning, New(Truncation, offset, detail)
}

// Fail is shorthand for a Failure-level error of the given kind.
func Fail(kind Kind, offset int, detail string) (Code, *Error) {
	return Failure, New(kind, offset, detail)
}
