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

package entity

import "time"

// Collectioner names the collection template of an entity, e.g. "users/{}/orders".
// It is the only required accessor.
type Collectioner interface {
	CollectionName() string
}

// Identifiable exposes the document id field. A nil or empty id means a
// random one is generated on save.
type Identifiable interface {
	DocumentID() *string
}

// Ordered names the field used as the default sort key for pages.
type Ordered interface {
	OrderField() string
}

// CreationStamped exposes the field stamped on first save. The returned value
// must be a *time.Time or **time.Time.
type CreationStamped interface {
	CreatedAtField() any
}

// UpdateStamped exposes the field stamped on every save. Same types as CreationStamped.
type UpdateStamped interface {
	UpdatedAtField() any
}

// Model is embeddable and provides the document id accessor.
type Model struct {
	ID string `json:"id,omitempty"`
}

func (m *Model) DocumentID() *string { return &m.ID }

// Timestamps is embeddable and provides both audit accessors.
type Timestamps struct {
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (t *Timestamps) CreatedAtField() any { return &t.CreatedAt }

func (t *Timestamps) UpdatedAtField() any { return &t.UpdatedAt }
