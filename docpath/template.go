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

package docpath

import (
	"strings"

	"github.com/tomoncle/docstore/docerr"
	"github.com/tomoncle/docstore/store"
)

const (
	msgInvalidFormat = "invalid path format"
	msgArgumentCount = "wrong argument count"
)

// Segment is one "/"-delimited part of a template.
type Segment struct {
	Name        string
	Placeholder bool
}

func (s Segment) String() string {
	if s.Placeholder {
		return "{" + s.Name + "}"
	}
	return s.Name
}

// Template is a parsed collection path such as "users/{userId}/orders".
// Segments alternate collection and document roles starting with a collection.
type Template struct {
	raw      string
	segments []Segment
}

// Parse splits raw on "/". Segments wrapped in braces are placeholders; empty
// segments are ignored. Role checks happen in Resolve.
func Parse(raw string) Template {
	t := Template{raw: raw}
	for _, part := range strings.Split(raw, store.Separator) {
		if part == "" {
			continue
		}
		if len(part) >= 2 && strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			t.segments = append(t.segments, Segment{Name: part[1 : len(part)-1], Placeholder: true})
			continue
		}
		t.segments = append(t.segments, Segment{Name: part})
	}
	return t
}

func (t Template) String() string { return t.raw }

func (t Template) Segments() []Segment {
	return append([]Segment(nil), t.segments...)
}

// Placeholders counts the values Resolve consumes.
func (t Template) Placeholders() int {
	n := 0
	for _, s := range t.segments {
		if s.Placeholder {
			n++
		}
	}
	return n
}

// Resolve substitutes vars into the placeholders, in order, and returns the
// collection the template names. A literal in a document position is used as
// a fixed document id. The number of vars must match the placeholder count.
func (t Template) Resolve(vars ...string) (store.CollectionRef, error) {
	var (
		coll    store.CollectionRef
		doc     store.DocumentRef
		inColl  bool
		nextVar int
		err     error
	)
	for _, seg := range t.segments {
		if !inColl {
			// expecting a collection
			if seg.Placeholder {
				return store.CollectionRef{}, t.fail(msgInvalidFormat, nil)
			}
			if doc.IsZero() {
				coll, err = store.Collection(seg.Name)
			} else {
				coll, err = doc.Collection(seg.Name)
			}
			if err != nil {
				return store.CollectionRef{}, t.fail(msgInvalidFormat, err)
			}
			inColl = true
			continue
		}
		id := seg.Name
		if seg.Placeholder {
			if nextVar >= len(vars) || strings.TrimSpace(vars[nextVar]) == "" {
				return store.CollectionRef{}, t.fail(msgArgumentCount, nil)
			}
			id = vars[nextVar]
			nextVar++
		}
		if doc, err = coll.Doc(id); err != nil {
			return store.CollectionRef{}, t.fail(msgInvalidFormat, err)
		}
		inColl = false
	}
	if !inColl {
		return store.CollectionRef{}, t.fail(msgInvalidFormat, nil)
	}
	if nextVar != len(vars) {
		return store.CollectionRef{}, t.fail(msgArgumentCount, nil)
	}
	return coll, nil
}

func (t Template) fail(msg string, err error) error {
	return docerr.Configuration("resolve", msg+" "+quote(t.raw), err)
}

func quote(s string) string { return `"` + s + `"` }

// Resolve parses template and resolves it against vars.
func Resolve(template string, vars ...string) (store.CollectionRef, error) {
	return Parse(template).Resolve(vars...)
}
