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
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tomoncle/docstore/types"
)

// Encode converts an entity into document fields using its json tags.
// Numbers are kept as json.Number so integers survive unchanged.
func Encode(v interface{}) (types.JsonObject, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	fields := make(types.JsonObject)
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("encode %T: not an object: %w", v, err)
	}
	return fields, nil
}

// Decode fills v, a pointer, from document fields.
func Decode(fields types.JsonObject, v interface{}) error {
	b, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
