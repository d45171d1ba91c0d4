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
	"strings"

	"github.com/tomoncle/docstore/docerr"
)

const Separator = "/"

// CollectionRef addresses a collection: "users" or "users/u1/orders".
type CollectionRef struct {
	path string
}

// DocumentRef addresses a document: "users/u1" or "users/u1/orders/o1".
type DocumentRef struct {
	path string
}

func validName(op, kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return docerr.Configurationf(op, "%s name must not be blank", kind)
	}
	if strings.Contains(name, Separator) {
		return docerr.Configurationf(op, "%s name %q must not contain %q", kind, name, Separator)
	}
	return nil
}

// Collection returns the top-level collection called name.
func Collection(name string) (CollectionRef, error) {
	if err := validName("collection", "collection", name); err != nil {
		return CollectionRef{}, err
	}
	return CollectionRef{path: name}, nil
}

// ParseCollectionPath parses an odd number of non-empty segments.
func ParseCollectionPath(p string) (CollectionRef, error) {
	segs, err := splitPath("collection", p)
	if err != nil {
		return CollectionRef{}, err
	}
	if len(segs)%2 == 0 {
		return CollectionRef{}, docerr.Configurationf("collection", "path %q does not name a collection", p)
	}
	return CollectionRef{path: strings.Join(segs, Separator)}, nil
}

// ParseDocumentPath parses an even number of non-empty segments.
func ParseDocumentPath(p string) (DocumentRef, error) {
	segs, err := splitPath("document", p)
	if err != nil {
		return DocumentRef{}, err
	}
	if len(segs)%2 != 0 {
		return DocumentRef{}, docerr.Configurationf("document", "path %q does not name a document", p)
	}
	return DocumentRef{path: strings.Join(segs, Separator)}, nil
}

func splitPath(op, p string) ([]string, error) {
	p = strings.Trim(strings.TrimSpace(p), Separator)
	if p == "" {
		return nil, docerr.Configurationf(op, "path must not be blank")
	}
	segs := strings.Split(p, Separator)
	for i, s := range segs {
		if strings.TrimSpace(s) == "" {
			return nil, docerr.Configurationf(op, "path %q has an empty segment at position %d", p, i)
		}
	}
	return segs, nil
}

func (c CollectionRef) IsZero() bool { return c.path == "" }

func (c CollectionRef) Path() string { return c.path }

func (c CollectionRef) String() string { return c.path }

// ID is the collection's own name, the last path segment.
func (c CollectionRef) ID() string {
	return c.path[strings.LastIndex(c.path, Separator)+1:]
}

// Parent returns the owning document of a sub-collection.
func (c CollectionRef) Parent() (DocumentRef, bool) {
	i := strings.LastIndex(c.path, Separator)
	if i < 0 {
		return DocumentRef{}, false
	}
	return DocumentRef{path: c.path[:i]}, true
}

// Doc returns the document id inside c.
func (c CollectionRef) Doc(id string) (DocumentRef, error) {
	if c.IsZero() {
		return DocumentRef{}, docerr.Configurationf("document", "collection reference is empty")
	}
	if err := validName("document", "document", id); err != nil {
		return DocumentRef{}, err
	}
	return DocumentRef{path: c.path + Separator + id}, nil
}

func (d DocumentRef) IsZero() bool { return d.path == "" }

func (d DocumentRef) Path() string { return d.path }

func (d DocumentRef) String() string { return d.path }

func (d DocumentRef) ID() string {
	return d.path[strings.LastIndex(d.path, Separator)+1:]
}

// Parent returns the collection holding d.
func (d DocumentRef) Parent() CollectionRef {
	i := strings.LastIndex(d.path, Separator)
	if i < 0 {
		return CollectionRef{}
	}
	return CollectionRef{path: d.path[:i]}
}

// Collection returns the sub-collection name under d.
func (d DocumentRef) Collection(name string) (CollectionRef, error) {
	if d.IsZero() {
		return CollectionRef{}, docerr.Configurationf("collection", "document reference is empty")
	}
	if err := validName("collection", "collection", name); err != nil {
		return CollectionRef{}, err
	}
	return CollectionRef{path: d.path + Separator + name}, nil
}

// Contains reports whether p is d itself or lies underneath it.
func (d DocumentRef) Contains(p string) bool {
	return p == d.path || strings.HasPrefix(p, d.path+Separator)
}
