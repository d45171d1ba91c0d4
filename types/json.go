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

import (
	"bytes"
	"database/sql/driver"
	"errors"

	"github.com/goccy/go-json"
)

// JsonObject holds the field map of a stored document. It is persisted as JSON
// text in SQL columns.
type JsonObject map[string]interface{}

// Clone returns a shallow copy so callers cannot alias stored state.
func (j JsonObject) Clone() JsonObject {
	if j == nil {
		return nil
	}
	out := make(JsonObject, len(j))
	for k, v := range j {
		out[k] = v
	}
	return out
}

// Value implements driver.Valuer for JsonObject. Text is used instead of bytes
// so the column can be a plain text type on every dialect.
func (j JsonObject) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JsonObject.
func (j *JsonObject) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*j = make(JsonObject)
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("type assertion must be []byte or string")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	out := make(JsonObject)
	if err := dec.Decode(&out); err != nil {
		return err
	}
	*j = out
	return nil
}
