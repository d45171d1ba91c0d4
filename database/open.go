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

package database

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/tomoncle/docstore/utils"
)

// SupportedTypes lists the connection types accepted by Open.
var SupportedTypes = []string{TypeMySQL, TypePostgres, TypePgx, TypeSQLite}

// Open applies DB_* environment overrides to cfg, connects, and when migrate
// is set creates the registered tables. The returned manager owns the pool.
func Open(ctx context.Context, cfg *ConnectionConfig, migrate bool) (Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	cfg.Type = NormalizeType(cfg.Type)
	if !slices.Contains(SupportedTypes, cfg.Type) {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, SupportedTypes)
	}
	OverrideFromEnv(cfg)

	dm := NewDatabaseManager(cfg)
	if err := dm.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Type, err)
	}
	if migrate {
		if err := dm.RunMigrations(ctx); err != nil {
			_ = dm.Disconnect()
			return nil, fmt.Errorf("failed to migrate %s database: %w", cfg.Type, err)
		}
	}
	GetLogger().Info("database ready", "type", cfg.Type, "dbname", cfg.DBName)
	return dm, nil
}

// OverrideFromEnv overrides cfg from DB_* environment variables. Durations are
// given in seconds.
func OverrideFromEnv(cfg *ConnectionConfig) {
	cfg.Host = utils.EnvDefaultString("DB_HOST", cfg.Host)
	cfg.Port = utils.EnvDefaultInt("DB_PORT", cfg.Port)
	cfg.Username = utils.EnvDefaultString("DB_USERNAME", cfg.Username)
	cfg.Password = utils.EnvDefaultString("DB_PASSWORD", cfg.Password)
	cfg.DBName = utils.EnvDefaultString("DB_NAME", cfg.DBName)
	cfg.SSLMode = utils.EnvDefaultString("DB_SSLMODE", cfg.SSLMode)

	cfg.MaxIdleConns = utils.EnvDefaultInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns)
	cfg.MaxOpenConns = utils.EnvDefaultInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns)
	cfg.ConnMaxLifetime = envSeconds("DB_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime)

	cfg.EnableReconnect = utils.EnvDefaultBool("DB_ENABLE_RECONNECT", cfg.EnableReconnect)
	cfg.ReconnectInterval = envSeconds("DB_RECONNECT_INTERVAL", cfg.ReconnectInterval)

	cfg.EnableQueryLog = utils.EnvDefaultBool("DB_ENABLE_QUERY_LOG", cfg.EnableQueryLog)
	cfg.EnableTracing = utils.EnvDefaultBool("DB_ENABLE_TRACING", cfg.EnableTracing)
}

func envSeconds(key string, def time.Duration) time.Duration {
	n := utils.EnvDefaultInt(key, -1)
	if n < 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
