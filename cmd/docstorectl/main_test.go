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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/docstore"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "store:\n  driver: sql\n  sql:\n    type: sqlite\n    dbname: " + filepath.Join(dir, "docs") + "\n"
	p := filepath.Join(dir, "docstore.yaml")
	require.NoError(t, os.WriteFile(p, []byte(cfg), 0o600))
	t.Cleanup(func() { _ = docstore.Close() })
	return p
}

func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func lines(s string) []map[string]any {
	var docs []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(s), "\n") {
		if l == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(l), &m); err == nil {
			docs = append(docs, m)
		}
	}
	return docs
}

func TestDocumentCommands(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, cfg, "put", "users/u1", `{"name":"ann","age":31}`)
	require.NoError(t, err)
	_, err = run(t, cfg, "put", "users/u2", `{"name":"bob","age":40}`)
	require.NoError(t, err)
	_, err = run(t, cfg, "put", "users/u1/orders/o1", `{"total":5}`)
	require.NoError(t, err)
	_, err = run(t, cfg, "put", "users/{}/orders/{}", `{"total":7}`, "--var", "u1", "--var", "o2")
	require.NoError(t, err)

	out, err := run(t, cfg, "get", "users/u1")
	require.NoError(t, err)
	doc := lines(out)
	require.Len(t, doc, 1)
	assert.Equal(t, "users/u1", doc[0]["path"])
	assert.Equal(t, "ann", doc[0]["fields"].(map[string]any)["name"])

	out, err = run(t, cfg, "list", "users/{}/orders", "--var", "u1", "--order-by", "total", "--desc")
	require.NoError(t, err)
	docs := lines(out)
	require.Len(t, docs, 2)
	assert.Equal(t, "users/u1/orders/o2", docs[0]["path"])
	assert.Equal(t, "users/u1/orders/o1", docs[1]["path"])

	out, err = run(t, cfg, "list", "users", "--where", "age=31")
	require.NoError(t, err)
	docs = lines(out)
	require.Len(t, docs, 1)
	assert.Equal(t, "users/u1", docs[0]["path"])

	out, err = run(t, cfg, "list", "users", "--order-by", "age", "--limit", "1", "--offset", "1")
	require.NoError(t, err)
	docs = lines(out)
	require.Len(t, docs, 1)
	assert.Equal(t, "users/u2", docs[0]["path"])

	out, err = run(t, cfg, "delete", "users/u1", "--recursive")
	require.NoError(t, err)
	assert.Equal(t, 3.0, lines(out)[0]["deleted"])

	_, err = run(t, cfg, "get", "users/u1")
	assert.ErrorContains(t, err, "not found")

	_, err = run(t, cfg, "delete", "users/u2")
	require.NoError(t, err)
	out, err = run(t, cfg, "list", "users")
	require.NoError(t, err)
	assert.Empty(t, lines(out))
}

func TestCommandErrors(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, cfg, "put", "users/u1", `[1,2]`)
	assert.Error(t, err)

	_, err = run(t, cfg, "list", "users", "--where", "age")
	assert.ErrorContains(t, err, "field=value")

	_, err = run(t, cfg, "get", "users/{}")
	assert.ErrorContains(t, err, "--var")

	_, err = run(t, cfg, "get", "users")
	assert.Error(t, err)

	_, err = run(t, filepath.Join(t.TempDir(), "missing.yaml"), "get", "users/u1")
	assert.Error(t, err)
}

func TestPublishCommand(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, cfg, "publish", "events", "hello", "--attr", "origin=cli")
	require.NoError(t, err)
	res := lines(out)
	require.Len(t, res, 1)
	assert.Equal(t, "events", res[0]["topic"])
	assert.NotEmpty(t, res[0]["id"])

	_, err = run(t, cfg, "publish", "events", "hello", "--attr", "broken")
	assert.ErrorContains(t, err, "key=value")
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, int64(31), parseValue("31"))
	assert.Equal(t, 2.5, parseValue("2.5"))
	assert.Equal(t, true, parseValue("true"))
	assert.Nil(t, parseValue("null"))
	assert.Equal(t, "ann", parseValue(`"ann"`))
	assert.Equal(t, "ann", parseValue("ann"))
	assert.Equal(t, "1 2", parseValue("1 2"))
}
