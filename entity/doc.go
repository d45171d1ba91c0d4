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

// Package entity resolves per-type document metadata: collection template,
// id field, default order field and audit timestamp fields.
//
// Metadata comes from small interfaces implemented on the entity pointer.
// Embedded types contribute their methods through promotion, so an accessor
// declared on the outer type wins over one from an embedded type:
//
//	type Order struct {
//		entity.Model
//		entity.Timestamps
//		Total int64 `json:"total"`
//	}
//
//	func (*Order) CollectionName() string { return "users/{}/orders" }
//	func (*Order) OrderField() string     { return "total" }
package entity
