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

package types

import "fmt"

// DefaultPageLimit is the page size used when neither the request nor the
// caller supplies one.
const DefaultPageLimit = 20

// PageRequest describes an offset page. Both values are optional; nil means
// "use the fallback".
type PageRequest struct {
	limit  *int
	offset *int
}

// NewPageRequest constructs a PageRequest with both limit and offset set.
func NewPageRequest(limit int, offset int) *PageRequest {
	return &PageRequest{limit: &limit, offset: &offset}
}

// NewLimitRequest constructs a PageRequest with only a limit.
func NewLimitRequest(limit int) *PageRequest {
	return &PageRequest{limit: &limit}
}

// NewOffsetRequest constructs a PageRequest with only an offset.
func NewOffsetRequest(offset int) *PageRequest {
	return &PageRequest{offset: &offset}
}

// NewDefaultPageRequest constructs a PageRequest with neither value set.
func NewDefaultPageRequest() *PageRequest {
	return &PageRequest{}
}

func (p *PageRequest) HasLimit() bool { return p != nil && p.limit != nil }

func (p *PageRequest) HasOffset() bool { return p != nil && p.offset != nil }

// GetLimit returns the requested limit or fallback when unset. Negative values
// are clamped to zero.
func (p *PageRequest) GetLimit(fallback int) int {
	if !p.HasLimit() {
		return fallback
	}
	if *p.limit < 0 {
		return 0
	}
	return *p.limit
}

// GetOffset returns the requested offset or 0 when unset.
func (p *PageRequest) GetOffset() int {
	if !p.HasOffset() || *p.offset < 0 {
		return 0
	}
	return *p.offset
}

func (p *PageRequest) String() string {
	limit, offset := "default", "0"
	if p.HasLimit() {
		limit = fmt.Sprintf("%d", *p.limit)
	}
	if p.HasOffset() {
		offset = fmt.Sprintf("%d", *p.offset)
	}
	return fmt.Sprintf("limit=%s offset=%s", limit, offset)
}

// Page holds a page of decoded items and the window that produced it.
type Page[T any] struct {
	Limit  int
	Offset int
	Items  []*T
}

// NewPage constructs a page container.
func NewPage[T any](limit int, offset int, items []*T) *Page[T] {
	if items == nil {
		items = make([]*T, 0)
	}
	return &Page[T]{Limit: limit, Offset: offset, Items: items}
}

// HasNext reports whether a full page was returned, meaning another page may exist.
func (p *Page[T]) HasNext() bool {
	return p.Limit > 0 && len(p.Items) == p.Limit
}

// Next returns the request for the following page.
func (p *Page[T]) Next() *PageRequest {
	return NewPageRequest(p.Limit, p.Offset+len(p.Items))
}
