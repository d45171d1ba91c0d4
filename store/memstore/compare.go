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

package memstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// value classes, ordered the way mixed-type sorts place them
const (
	classNull = iota
	classBool
	classNumber
	classTime
	classString
	classOther
)

func classify(v interface{}) int {
	switch x := v.(type) {
	case nil:
		return classNull
	case bool:
		return classBool
	case json.Number, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return classNumber
	case time.Time, *time.Time:
		return classTime
	case string:
		if _, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return classTime
		}
		return classString
	default:
		return classOther
	}
}

// compare orders two field values: nulls first, then booleans, numbers,
// timestamps, strings. Timestamps encoded as RFC 3339 strings compare as times.
func compare(a, b interface{}) int {
	ca, cb := classify(a), classify(b)
	if ca != cb {
		return ca - cb
	}
	switch ca {
	case classNull:
		return 0
	case classBool:
		return cmpBool(cast.ToBool(a), cast.ToBool(b))
	case classNumber:
		return cmpFloat(cast.ToFloat64(num(a)), cast.ToFloat64(num(b)))
	case classTime:
		return toTime(a).Compare(toTime(b))
	case classString:
		return strings.Compare(a.(string), b.(string))
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

func equal(a, b interface{}) bool {
	return compare(a, b) == 0
}

func toTime(v interface{}) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case *time.Time:
		if x != nil {
			return *x
		}
	case string:
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return t
		}
	}
	return cast.ToTime(v)
}

// num passes json.Number to cast through its string form.
func num(v interface{}) interface{} {
	if n, ok := v.(json.Number); ok {
		return n.String()
	}
	return v
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
