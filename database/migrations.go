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
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

// AppliedMigration is the tracking row written for every applied step.
type AppliedMigration struct {
	bun.BaseModel `bun:"table:docstore_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	Description string    `bun:"description"`
	AppliedAt   time.Time `bun:"applied_at"`
}

// StepFunc runs inside the transaction of its step.
type StepFunc func(ctx context.Context, db bun.IDB) error

// Step is one versioned schema change. Versions are ordered as strings.
type Step struct {
	Version     string
	Name        string
	Description string
	Up          StepFunc
	Down        StepFunc
}

// Migrator creates the registered tables and applies versioned steps once.
type Migrator struct {
	db     *bun.DB
	logger Logger

	mu    sync.Mutex
	steps []Step
}

func NewMigrator(db *bun.DB, logger Logger) *Migrator {
	if logger == nil {
		logger = GetLogger()
	}
	return &Migrator{db: db, logger: logger}
}

// Add queues steps for the next Up call.
func (m *Migrator) Add(steps ...Step) *Migrator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, steps...)
	return m
}

// Up creates missing tables, then applies every pending step in version order.
// Set BUNDEBUG_MIGRATION to keep the slow query hook active meanwhile.
func (m *Migrator) Up(ctx context.Context) error {
	if m.db == nil {
		return errNotConnected
	}
	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		EnableBunSqlSilent(true)
		defer EnableBunSqlSilent(false)
	}

	created, err := m.createTables(ctx)
	if err != nil {
		return err
	}
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	pending := slices.DeleteFunc(m.snapshot(), func(s Step) bool { return applied[s.Version] })
	slices.SortStableFunc(pending, func(a, b Step) int { return cmp.Compare(a.Version, b.Version) })
	for _, step := range pending {
		if err := m.apply(ctx, step); err != nil {
			return fmt.Errorf("migration %s failed: %w", step.Version, err)
		}
	}
	m.logger.Info("database schema is up to date", "tables", created, "applied", len(pending))
	return nil
}

func (m *Migrator) snapshot() []Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.steps)
}

func (m *Migrator) createTables(ctx context.Context) (int, error) {
	models := append([]any{(*AppliedMigration)(nil)}, Tables()...)
	for _, model := range models {
		if _, err := m.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return 0, fmt.Errorf("create table for %T: %w", model, err)
		}
		if indexer, ok := model.(SQLIndexer); ok {
			if err := indexer.CreateIndexes(ctx, m.db); err != nil {
				return 0, fmt.Errorf("create indexes for %T: %w", model, err)
			}
		}
	}
	return len(models), nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[string]bool, error) {
	var versions []string
	if err := m.db.NewSelect().Model((*AppliedMigration)(nil)).Column("version").Scan(ctx, &versions); err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(versions))
	for _, v := range versions {
		set[v] = true
	}
	return set, nil
}

func (m *Migrator) apply(ctx context.Context, step Step) error {
	if step.Up == nil {
		return fmt.Errorf("step %q has no up function", step.Name)
	}
	err := m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := step.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&AppliedMigration{
			Version:     step.Version,
			Name:        step.Name,
			Description: step.Description,
			AppliedAt:   time.Now(),
		}).Exec(ctx)
		return err
	})
	if err == nil {
		m.logger.Info("migration applied", "version", step.Version, "name", step.Name)
	}
	return err
}

// Applied lists the tracking rows by ascending version.
func (m *Migrator) Applied(ctx context.Context) ([]AppliedMigration, error) {
	var rows []AppliedMigration
	err := m.db.NewSelect().Model(&rows).Order("version ASC").Scan(ctx)
	return rows, err
}

// Down reverts one applied step and drops its tracking row.
func (m *Migrator) Down(ctx context.Context, version string) error {
	steps := m.snapshot()
	i := slices.IndexFunc(steps, func(s Step) bool { return s.Version == version })
	if i < 0 {
		return fmt.Errorf("unknown migration version: %s", version)
	}
	step := steps[i]
	if step.Down == nil {
		return fmt.Errorf("migration %s has no down step", version)
	}
	return m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := step.Down(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*AppliedMigration)(nil)).Where("version = ?", version).Exec(ctx)
		return err
	})
}
