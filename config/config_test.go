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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/docstore/docerr"
	"github.com/tomoncle/docstore/pubsub"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "sqlite", cfg.Store.SQL.Type)
	assert.Equal(t, 20, cfg.Repository.DefaultPageLimit)
	assert.Equal(t, "uuid", cfg.Repository.IDStrategy)
	assert.Equal(t, pubsub.DriverGoChannel, cfg.PubSub.Driver)
	assert.Equal(t, uint(3), cfg.PubSub.PublishRetries)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestParseExpandsEnvironment(t *testing.T) {
	t.Setenv("DOCSTORE_TEST_DB", "orders")
	t.Setenv("DOCSTORE_TEST_BROKERS", "k1:9092,k2:9092")

	cfg, err := Parse([]byte(`
store:
  driver: sql
  sql:
    type: postgres
    host: db.internal
    port: 5432
    dbname: ${DOCSTORE_TEST_DB}
    conn_max_lifetime: 10m
pubsub:
  driver: kafka
  brokers: ${DOCSTORE_TEST_BROKERS}
  publish_retry_delay: 250ms
repository:
  default_page_limit: 50
  id_strategy: ulid
logging:
  level: debug
  format: json
metrics:
  enabled: true
`))
	require.NoError(t, err)
	assert.Equal(t, DriverSQL, cfg.Store.Driver)
	assert.Equal(t, "postgres", cfg.Store.SQL.Type)
	assert.Equal(t, "orders", cfg.Store.SQL.DBName)
	assert.Equal(t, 10*time.Minute, cfg.Store.SQL.ConnMaxLifetime)
	assert.Equal(t, 100, cfg.Store.SQL.MaxOpenConns, "unset keys keep their defaults")
	assert.Equal(t, "k1:9092,k2:9092", cfg.PubSub.Brokers)
	assert.Equal(t, 250*time.Millisecond, cfg.PubSub.PublishRetryDelay)
	assert.Equal(t, "docstore", cfg.PubSub.ConsumerGroup)
	assert.Equal(t, 50, cfg.Repository.DefaultPageLimit)
	assert.Equal(t, "ulid", cfg.Repository.IDStrategy)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestParseRejectsInvalidInput(t *testing.T) {
	cases := map[string]string{
		"unknown driver":     "store:\n  driver: redis\n",
		"unknown key":        "store:\n  drivr: memory\n",
		"bad id strategy":    "repository:\n  id_strategy: serial\n",
		"bad page limit":     "repository:\n  default_page_limit: -1\n",
		"firestore project":  "store:\n  driver: firestore\n",
		"kafka brokers":      "pubsub:\n  driver: kafka\n",
		"sql type":           "store:\n  driver: sql\n  sql:\n    type: oracle\n",
		"malformed yaml":     "store: [",
		"bad logging format": "logging:\n  format: xml\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(text))
			require.Error(t, err)
			assert.True(t, docerr.IsConfiguration(err), err.Error())
		})
	}
}

func TestInactiveDriverSectionsAreNotValidated(t *testing.T) {
	cfg, err := Parse([]byte("store:\n  driver: memory\n  sql:\n    type: oracle\n"))
	require.NoError(t, err)
	assert.Equal(t, "oracle", cfg.Store.SQL.Type)

	cfg, err = Parse([]byte("store:\n  driver: firestore\n  firestore:\n    project_id: demo\n"))
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Store.Firestore.ProjectID)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: sql\n  sql:\n    type: sqlite\n    dbname: \":memory:\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Store.SQL.DBName)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, docerr.IsConfiguration(err))
	assert.Panics(t, func() { MustLoad(filepath.Join(dir, "missing.yaml")) })

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
}
