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

package store

import (
	"fmt"
	"time"

	"github.com/tomoncle/docstore/types"
)

// Snapshot is a document as read from a store. Exists is false for missing
// documents; Fields is then nil.
type Snapshot struct {
	Ref        DocumentRef
	Fields     types.JsonObject
	Exists     bool
	CreateTime time.Time
	UpdateTime time.Time
}

// Missing returns the snapshot of an absent document.
func Missing(ref DocumentRef) *Snapshot {
	return &Snapshot{Ref: ref}
}

// DataTo decodes the fields into v, which must be a pointer.
func (s *Snapshot) DataTo(v interface{}) error {
	if s == nil || !s.Exists {
		return fmt.Errorf("document %s does not exist", s.ref())
	}
	return Decode(s.Fields, v)
}

func (s *Snapshot) ref() string {
	if s == nil {
		return "<nil>"
	}
	return s.Ref.Path()
}

// WriteResult is returned by writes.
type WriteResult struct {
	UpdateTime time.Time
}
