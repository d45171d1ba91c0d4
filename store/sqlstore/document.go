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

package sqlstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/tomoncle/docstore/database"
	"github.com/tomoncle/docstore/store"
	"github.com/tomoncle/docstore/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const tableName = "docstore_documents"

// Document is the row layout of every stored document.
type Document struct {
	bun.BaseModel `bun:"table:docstore_documents,alias:d"`

	Path       string           `bun:"path,pk,type:varchar(767)"`
	Collection string           `bun:"collection,notnull,type:varchar(767)"`
	DocID      string           `bun:"doc_id,notnull,type:varchar(255)"`
	Fields     types.JsonObject `bun:"fields,type:text"`
	CreatedAt  time.Time        `bun:"created_at,notnull"`
	UpdatedAt  time.Time        `bun:"updated_at,notnull"`
}

func init() {
	database.RegisterTable((*Document)(nil), 100)
}

var _ database.SQLIndexer = (*Document)(nil)

// CreateIndexes adds the collection index used by queries.
func (*Document) CreateIndexes(ctx context.Context, db bun.IDB) error {
	q := db.NewCreateIndex().
		Model((*Document)(nil)).
		Index("idx_docstore_documents_collection").
		Column("collection")
	if db.Dialect().Name() != dialect.MySQL {
		_, err := q.IfNotExists().Exec(ctx)
		return err
	}
	_, err := q.Exec(ctx)
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1061 {
		return nil
	}
	return err
}

func (d *Document) snapshot() (*store.Snapshot, error) {
	ref, err := store.ParseDocumentPath(d.Path)
	if err != nil {
		return nil, err
	}
	fields := d.Fields
	if fields == nil {
		fields = types.JsonObject{}
	}
	return &store.Snapshot{
		Ref:        ref,
		Fields:     fields,
		Exists:     true,
		CreateTime: d.CreatedAt,
		UpdateTime: d.UpdatedAt,
	}, nil
}

// fieldExpr renders a JSON field lookup. asValue selects a native SQL value,
// used for ordering, instead of JSON text, used for equality.
func fieldExpr(name dialect.Name, field string, asValue bool) (string, []interface{}) {
	switch name {
	case dialect.PG:
		// jsonb values order natively
		return "(?TableAlias.fields::jsonb -> ?)", []interface{}{field}
	case dialect.MySQL:
		return "JSON_EXTRACT(?TableAlias.fields, ?)", []interface{}{jsonPath(field)}
	default:
		if asValue {
			return "(?TableAlias.fields ->> ?)", []interface{}{jsonPath(field)}
		}
		return "(?TableAlias.fields -> ?)", []interface{}{jsonPath(field)}
	}
}

// equalExpr compares a JSON field with the JSON encoding of a value.
func equalExpr(name dialect.Name, field string, encoded string) (string, []interface{}) {
	expr, args := fieldExpr(name, field, false)
	switch name {
	case dialect.PG:
		return expr + " = ?::jsonb", append(args, encoded)
	case dialect.MySQL:
		return expr + " = CAST(? AS JSON)", append(args, encoded)
	default:
		return expr + " = ?", append(args, encoded)
	}
}

func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}
