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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/docstore/docerr"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		template string
		vars     []string
		want     string
	}{
		{"orders", nil, "orders"},
		{"/orders/", nil, "orders"},
		{"users/{}/orders", []string{"u1"}, "users/u1/orders"},
		{"users/{userId}/orders", []string{"u1"}, "users/u1/orders"},
		{"a/{}/b/{}/c", []string{"1", "2"}, "a/1/b/2/c"},
		{"tenants/acme/users", nil, "tenants/acme/users"},
	}
	for _, c := range cases {
		got, err := Resolve(c.template, c.vars...)
		require.NoError(t, err, c.template)
		assert.Equal(t, c.want, got.Path(), c.template)
	}
}

func TestResolveFailures(t *testing.T) {
	cases := []struct {
		template string
		vars     []string
		msg      string
	}{
		{"users/{}/orders", nil, "wrong argument count"},
		{"users/{}/orders", []string{" "}, "wrong argument count"},
		{"a/{}/b/{}/c", []string{"1"}, "wrong argument count"},
		{"users/{userId}/orders", []string{"u1", "extra"}, "wrong argument count"},
		{"orders", []string{"x"}, "wrong argument count"},
		{"{}/orders", []string{"u1"}, "invalid path format"},
		{"users/{}/{}", []string{"u1", "x"}, "invalid path format"},
		{"users/{}", []string{"u1"}, "invalid path format"},
		{"", nil, "invalid path format"},
		{"users/u1/orders/o1", nil, "invalid path format"},
	}
	for _, c := range cases {
		_, err := Resolve(c.template, c.vars...)
		require.Error(t, err, c.template)
		assert.True(t, docerr.IsConfiguration(err), c.template)
		assert.Contains(t, err.Error(), c.msg, c.template)
	}
}

func TestResolveVarWithSeparator(t *testing.T) {
	_, err := Resolve("users/{}/orders", "u1/x")
	assert.True(t, docerr.IsConfiguration(err))
}

func TestParse(t *testing.T) {
	tpl := Parse("users/{userId}/orders/{orderId}/items")
	assert.Equal(t, 2, tpl.Placeholders())
	segs := tpl.Segments()
	require.Len(t, segs, 5)
	assert.True(t, segs[1].Placeholder)
	assert.Equal(t, "userId", segs[1].Name)
	assert.Equal(t, "{orderId}", segs[3].String())
	assert.Equal(t, "users/{userId}/orders/{orderId}/items", tpl.String())
}
