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
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

// opener knows the database/sql driver, DSN format and bun dialect of one
// connection type.
type opener struct {
	driver  string
	dsn     func(cfg *ConnectionConfig) string
	dialect func() schema.Dialect
}

var openers = map[string]opener{
	TypeMySQL: {
		driver:  "mysql",
		dsn:     mysqlDSN,
		dialect: func() schema.Dialect { return mysqldialect.New() },
	},
	TypePostgres: {
		driver:  "postgres",
		dsn:     postgresDSN,
		dialect: func() schema.Dialect { return pgdialect.New() },
	},
	TypePgx: {
		driver:  "pgx",
		dsn:     postgresDSN,
		dialect: func() schema.Dialect { return pgdialect.New() },
	},
	TypeSQLite: {
		driver:  sqliteshim.ShimName,
		dsn:     func(cfg *ConnectionConfig) string { return SQLiteDSN(cfg.DBName) },
		dialect: func() schema.Dialect { return sqlitedialect.New() },
	},
}

// open returns the pool and bun handle for cfg without contacting the server.
func open(cfg *ConnectionConfig) (*sql.DB, *bun.DB, error) {
	o, ok := openers[NormalizeType(cfg.Type)]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	sqlDB, err := sql.Open(o.driver, o.dsn(cfg))
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, o.dialect()), nil
}

func mysqlDSN(cfg *ConnectionConfig) string {
	c := mysql.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(portOr(cfg.Port, 3306)))
	c.DBName = cfg.DBName
	c.ParseTime = true
	c.Loc = time.Local
	c.Timeout = cfg.ConnectTimeout
	c.ReadTimeout = cfg.ReadTimeout
	c.WriteTimeout = cfg.WriteTimeout
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

// postgresDSN builds a URL understood by both lib/pq and pgx.
func postgresDSN(cfg *ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	if cfg.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(portOr(cfg.Port, 5432))),
		Path:     "/" + cfg.DBName,
		RawQuery: q.Encode(),
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String()
}

func portOr(port, def int) int {
	if port > 0 {
		return port
	}
	return def
}

// SQLiteDSN maps a database name to a sqlite DSN: "name" becomes "name.db",
// while ":memory:" and "file:" URIs are used as given.
func SQLiteDSN(name string) string {
	if name == ":memory:" || strings.HasPrefix(name, "file:") {
		return name
	}
	return name + ".db"
}
