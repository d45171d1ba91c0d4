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

// Package audit stamps creation and update timestamps on entities before they
// are written.
package audit

import (
	"time"

	"github.com/tomoncle/docstore/docerr"
	"github.com/tomoncle/docstore/entity"
)

// Apply stamps e with now. The creation field is only set when existed is
// false; the update field is always set. Types without the fields are left
// untouched.
func Apply[T any](d *entity.Descriptor[T], e *T, existed bool, now time.Time) error {
	if !existed {
		if err := stamp(d.TypeName(), "createdAt", d.CreatedAt(e), now); err != nil {
			return err
		}
	}
	return stamp(d.TypeName(), "updatedAt", d.UpdatedAt(e), now)
}

func stamp(typeName, role string, field any, now time.Time) error {
	switch f := field.(type) {
	case nil:
		return nil
	case *time.Time:
		if f == nil {
			return docerr.Configurationf("audit", "%s %s accessor returned a nil pointer", typeName, role)
		}
		*f = now
	case **time.Time:
		if f == nil {
			return docerr.Configurationf("audit", "%s %s accessor returned a nil pointer", typeName, role)
		}
		t := now
		*f = &t
	default:
		return docerr.Configurationf("audit", "%s %s field must be *time.Time or **time.Time, got %T", typeName, role, field)
	}
	return nil
}
