/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package docerr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// ConfigurationError reports a structural problem that is detectable without I/O:
// missing collection names, malformed path templates, wrong placeholder counts,
// incompatible audit fields and undecodable single documents.
type ConfigurationError struct {
	Op  string
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Op != "" {
		b.WriteString(" [")
		b.WriteString(e.Op)
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// StoreError wraps every failure surfaced by the store collaborator, including
// cancellation, together with the operation that produced it.
type StoreError struct {
	Op         string
	Collection string
	DocumentID string
	Cause      Cause
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error [%s]: %s: %v", e.Op, e.Target(), e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Target returns "collection" or "collection=id" for log lines.
func (e *StoreError) Target() string {
	if e.DocumentID == "" {
		return e.Collection
	}
	return e.Collection + "=" + e.DocumentID
}

// Configuration builds a ConfigurationError.
func Configuration(op, msg string, err error) error {
	return &ConfigurationError{Op: op, Msg: msg, Err: err}
}

// Configurationf builds a ConfigurationError with a formatted message.
func Configurationf(op, format string, args ...interface{}) error {
	return &ConfigurationError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Store wraps err into a StoreError. A nil err yields nil and an existing
// StoreError is returned untouched so wrapping stays idempotent.
func Store(op, collection, documentID string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{
		Op:         op,
		Collection: collection,
		DocumentID: documentID,
		Cause:      Classify(err),
		Err:        err,
	}
}

func KindOf(err error) Kind {
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return KindConfiguration
	}
	var se *StoreError
	if errors.As(err, &se) {
		return KindStore
	}
	return KindUnknown
}

func IsConfiguration(err error) bool { return KindOf(err) == KindConfiguration }

func IsStore(err error) bool { return KindOf(err) == KindStore }

// CauseOf returns the classified cause of a StoreError, CauseUnknown otherwise.
func CauseOf(err error) Cause {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Cause
	}
	return CauseUnknown
}
