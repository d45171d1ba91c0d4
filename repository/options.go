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

package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/tomoncle/docstore/async"
	"github.com/tomoncle/docstore/docerr"
	"github.com/tomoncle/docstore/types"
	"github.com/tomoncle/docstore/utils"
)

// IDGenerator returns a new document id for entities saved without one.
type IDGenerator func() string

// UUIDGenerator produces random UUIDv4 strings.
func UUIDGenerator() string { return uuid.NewString() }

// ULIDGenerator produces lexicographically sortable ULIDs.
func ULIDGenerator() string { return ulid.Make().String() }

// Supported id strategies.
const (
	IDStrategyUUID = "uuid"
	IDStrategyULID = "ulid"
)

// GeneratorFor maps an id strategy name onto its generator.
func GeneratorFor(strategy string) (IDGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", IDStrategyUUID:
		return UUIDGenerator, nil
	case IDStrategyULID:
		return ULIDGenerator, nil
	default:
		return nil, docerr.Configurationf("repository", "unknown id strategy %q", strategy)
	}
}

type options struct {
	template     string
	newID        IDGenerator
	clock        func() time.Time
	logger       utils.Logger
	bridge       *async.Bridge
	defaultLimit int
}

func defaultOptions() *options {
	return &options{
		newID:        UUIDGenerator,
		clock:        time.Now,
		logger:       utils.NewLogger("REPOSITORY"),
		bridge:       async.Default(),
		defaultLimit: types.DefaultPageLimit,
	}
}

type Option func(*options)

// WithTemplate overrides the collection template declared by the entity type.
func WithTemplate(template string) Option {
	return func(o *options) { o.template = template }
}

func WithIDGenerator(fn IDGenerator) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithClock sets the time source used for audit timestamps.
func WithClock(fn func() time.Time) Option {
	return func(o *options) {
		if fn != nil {
			o.clock = fn
		}
	}
}

func WithLogger(l utils.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithBridge(b *async.Bridge) Option {
	return func(o *options) {
		if b != nil {
			o.bridge = b
		}
	}
}

// WithDefaultLimit sets the FindPage limit used when a request carries none.
func WithDefaultLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.defaultLimit = n
		}
	}
}
