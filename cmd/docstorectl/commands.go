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
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/tomoncle/docstore"
	"github.com/tomoncle/docstore/docpath"
	"github.com/tomoncle/docstore/store"
	"github.com/tomoncle/docstore/types"
)

type document struct {
	Path       string           `json:"path"`
	CreateTime *time.Time       `json:"createTime,omitempty"`
	UpdateTime *time.Time       `json:"updateTime,omitempty"`
	Fields     types.JsonObject `json:"fields"`
}

func toDocument(s *store.Snapshot) document {
	d := document{Path: s.Ref.Path(), Fields: s.Fields}
	if !s.CreateTime.IsZero() {
		d.CreateTime = &s.CreateTime
	}
	if !s.UpdateTime.IsZero() {
		d.UpdateTime = &s.UpdateTime
	}
	return d
}

func (c *cli) print(v any) error {
	var (
		b   []byte
		err error
	)
	if c.pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(b))
	return err
}

// collection resolves a collection template such as "users/{}/orders".
func (c *cli) collection(raw string) (store.CollectionRef, error) {
	return docpath.Resolve(strings.Trim(raw, "/"), c.vars...)
}

// document resolves a document path whose last segment is the id. A "{}" id
// takes the last --var.
func (c *cli) document(raw string) (store.DocumentRef, error) {
	dir, id := path.Split(strings.Trim(raw, "/"))
	vars := c.vars
	if id == "{}" {
		if len(vars) == 0 {
			return store.DocumentRef{}, fmt.Errorf("path %s needs a --var for the document id", raw)
		}
		id, vars = vars[len(vars)-1], vars[:len(vars)-1]
	}
	coll, err := docpath.Resolve(strings.TrimSuffix(dir, "/"), vars...)
	if err != nil {
		return store.DocumentRef{}, err
	}
	return coll.Doc(id)
}

func currentStore() (store.Store, error) {
	s := docstore.GetStore()
	if s == nil {
		return nil, docstore.ErrNotInitialized
	}
	return s, nil
}

func (c *cli) putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <document-path> <json>",
		Short: "Create or replace a document with a JSON object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := c.document(args[0])
			if err != nil {
				return err
			}
			var fields types.JsonObject
			dec := json.NewDecoder(bytes.NewReader([]byte(args[1])))
			dec.UseNumber()
			if err := dec.Decode(&fields); err != nil {
				return fmt.Errorf("document body must be a JSON object: %w", err)
			}
			s, err := currentStore()
			if err != nil {
				return err
			}
			res, err := s.Set(cmd.Context(), ref, fields).Get(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(map[string]any{"path": ref.Path(), "updateTime": res.UpdateTime})
		},
	}
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <document-path>",
		Short: "Print a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := c.document(args[0])
			if err != nil {
				return err
			}
			s, err := currentStore()
			if err != nil {
				return err
			}
			snap, err := s.Get(cmd.Context(), ref).Get(cmd.Context())
			if err != nil {
				return err
			}
			if snap == nil || !snap.Exists {
				return fmt.Errorf("document %s not found", ref.Path())
			}
			return c.print(toDocument(snap))
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	var (
		limit, offset int
		orderBy       string
		desc          bool
		where         []string
	)
	cmd := &cobra.Command{
		Use:   "list <collection-path>",
		Short: "Print the documents of a collection, one JSON object per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := c.collection(args[0])
			if err != nil {
				return err
			}
			q := store.NewQuery(coll)
			for _, w := range where {
				field, value, ok := strings.Cut(w, "=")
				if !ok || field == "" {
					return fmt.Errorf("--where %q must look like field=value", w)
				}
				q = q.WhereEqual(field, parseValue(value))
			}
			if orderBy != "" {
				dir := types.Asc
				if desc {
					dir = types.Desc
				}
				q = q.OrderBy(orderBy, dir)
			}
			if limit >= 0 {
				q = q.Limit(limit)
			}
			if offset > 0 {
				q = q.Offset(offset)
			}
			s, err := currentStore()
			if err != nil {
				return err
			}
			it := s.Documents(cmd.Context(), q)
			defer it.Stop()
			for {
				snap, err := it.Next()
				if errors.Is(err, store.ErrDone) {
					return nil
				}
				if err != nil {
					return err
				}
				if err := c.print(toDocument(snap)); err != nil {
					return err
				}
			}
		},
	}
	cmd.Flags().IntVar(&limit, "limit", -1, "maximum number of documents, negative for all")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of documents to skip")
	cmd.Flags().StringVar(&orderBy, "order-by", "", "field to order by")
	cmd.Flags().BoolVar(&desc, "desc", false, "order descending")
	cmd.Flags().StringArrayVar(&where, "where", nil, "equality filter field=value, repeatable; JSON values are decoded")
	return cmd
}

// parseValue decodes JSON literals and keeps anything else as a string.
func parseValue(raw string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return v
}

func (c *cli) deleteCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "delete <document-path>",
		Short: "Delete a document, optionally with every document beneath it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := c.document(args[0])
			if err != nil {
				return err
			}
			s, err := currentStore()
			if err != nil {
				return err
			}
			if recursive {
				n, err := s.RecursiveDelete(cmd.Context(), ref).Get(cmd.Context())
				if err != nil {
					return err
				}
				return c.print(map[string]any{"path": ref.Path(), "deleted": n})
			}
			if _, err := s.Delete(cmd.Context(), ref).Get(cmd.Context()); err != nil {
				return err
			}
			return c.print(map[string]any{"path": ref.Path(), "deleted": 1})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "also delete every sub-collection document")
	return cmd
}

func (c *cli) publishCmd() *cobra.Command {
	var attrs []string
	cmd := &cobra.Command{
		Use:   "publish <topic> <message>",
		Short: "Publish a text message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			attributes := make(map[string]string, len(attrs))
			for _, a := range attrs {
				k, v, ok := strings.Cut(a, "=")
				if !ok || k == "" {
					return fmt.Errorf("--attr %q must look like key=value", a)
				}
				attributes[k] = v
			}
			p, err := docstore.NewPublisher()
			if err != nil {
				return err
			}
			id, err := p.Publish(cmd.Context(), args[0], []byte(args[1]), attributes).Get(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(map[string]any{"topic": args[0], "id": id})
		},
	}
	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "message attribute key=value, repeatable")
	return cmd
}
