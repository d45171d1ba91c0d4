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

package fsstore

import (
	"time"

	"cloud.google.com/go/firestore"
	"github.com/goccy/go-json"
	"github.com/tomoncle/docstore/store"
	"github.com/tomoncle/docstore/types"
)

func convert(snap *firestore.DocumentSnapshot) (*store.Snapshot, error) {
	ref, err := store.ParseDocumentPath(relativePath(snap.Ref))
	if err != nil {
		return nil, err
	}
	return fromFirestore(ref, snap), nil
}

// relativePath rebuilds "coll/doc/..." from a document reference.
func relativePath(ref *firestore.DocumentRef) string {
	path := ref.ID
	for ref.Parent != nil {
		path = ref.Parent.ID + store.Separator + path
		ref = ref.Parent.Parent
		if ref == nil {
			break
		}
		path = ref.ID + store.Separator + path
	}
	return path
}

func fromFirestore(ref store.DocumentRef, snap *firestore.DocumentSnapshot) *store.Snapshot {
	if snap == nil || !snap.Exists() {
		return store.Missing(ref)
	}
	fields := make(types.JsonObject)
	for k, v := range snap.Data() {
		fields[k] = fromValue(v)
	}
	return &store.Snapshot{
		Ref:        ref,
		Fields:     fields,
		Exists:     true,
		CreateTime: snap.CreateTime,
		UpdateTime: snap.UpdateTime,
	}
}

// fromValue maps Firestore-only types onto their JSON shape.
func fromValue(v interface{}) interface{} {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case *firestore.DocumentRef:
		return relativePath(x)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, e := range x {
			out[k] = fromValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = fromValue(e)
		}
		return out
	default:
		return v
	}
}

func toFirestore(fields types.JsonObject) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = toValue(v)
	}
	return out
}

// toValue turns json.Number into int64 or float64, which Firestore can store.
func toValue(v interface{}) interface{} {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case types.JsonObject:
		return toFirestore(x)
	case map[string]interface{}:
		return toFirestore(x)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = toValue(e)
		}
		return out
	default:
		return v
	}
}
