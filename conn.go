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

package docstore

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tomoncle/docstore/async"
	"github.com/tomoncle/docstore/config"
	"github.com/tomoncle/docstore/docerr"
	"github.com/tomoncle/docstore/metrics"
	"github.com/tomoncle/docstore/pubsub"
	"github.com/tomoncle/docstore/repository"
	"github.com/tomoncle/docstore/store"
	"github.com/tomoncle/docstore/store/fsstore"
	"github.com/tomoncle/docstore/store/memstore"
	"github.com/tomoncle/docstore/store/sqlstore"
	"github.com/tomoncle/docstore/utils"
)

var (
	globalMu        sync.RWMutex
	globalConfig    *config.Config
	globalStore     store.Store
	globalBridge    *async.Bridge
	globalTransport *pubsub.Transport

	metricsOnce     sync.Once
	storeMetrics    *metrics.StoreMetrics
	dispatchMetrics *metrics.DispatchMetrics

	logger = utils.NewLogger("DOCSTORE")
)

// ErrNotInitialized is returned by the globals before Init succeeds.
var ErrNotInitialized = docerr.Configuration("docstore", "not initialized, call docstore.Init first", nil)

// Init opens the configured store and makes it the global one. A previous
// global store is closed first.
func Init(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.Logging.Apply()

	bridge := async.Default()
	if cfg.Metrics.Enabled {
		metricsOnce.Do(func() {
			storeMetrics = metrics.NewStoreMetrics(prometheus.DefaultRegisterer)
			dispatchMetrics = metrics.NewDispatchMetrics(prometheus.DefaultRegisterer)
		})
		bridge = async.NewBridge(async.WithMetrics(storeMetrics))
	}

	s, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	if err := Close(); err != nil {
		logger.Warn("closing previous store failed", "error", err)
	}

	globalMu.Lock()
	globalConfig = cfg
	globalStore = s
	globalBridge = bridge
	globalMu.Unlock()
	logger.Info("docstore initialized", "driver", cfg.Store.Driver)
	return nil
}

// OpenStore builds the store selected by cfg.Driver without touching the globals.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return memstore.New(memstore.WithLogger(utils.NewLogger("MEMSTORE"))), nil
	case config.DriverSQL:
		sqlCfg := cfg.SQL
		return sqlstore.Open(ctx, &sqlCfg, sqlstore.WithLogger(utils.NewLogger("SQLSTORE")))
	case config.DriverFirestore:
		return fsstore.Open(ctx, cfg.Firestore, fsstore.WithLogger(utils.NewLogger("FSSTORE")))
	default:
		return nil, docerr.Configurationf("docstore", "unsupported store driver %q", cfg.Driver)
	}
}

// GetStore returns the global store, or nil before Init.
func GetStore() store.Store {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalStore
}

// GetConfig returns the configuration passed to Init.
func GetConfig() *config.Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// RepositoryOptions translates the global configuration into repository options.
func RepositoryOptions() ([]repository.Option, error) {
	globalMu.RLock()
	cfg, bridge := globalConfig, globalBridge
	globalMu.RUnlock()
	if cfg == nil {
		return nil, ErrNotInitialized
	}
	gen, err := repository.GeneratorFor(cfg.Repository.IDStrategy)
	if err != nil {
		return nil, err
	}
	return []repository.Option{
		repository.WithIDGenerator(gen),
		repository.WithDefaultLimit(cfg.Repository.DefaultPageLimit),
		repository.WithBridge(bridge),
	}, nil
}

// GetTransport returns the global message transport, creating it on first use.
func GetTransport() (*pubsub.Transport, error) {
	t, _, _, err := transport()
	return t, err
}

func transport() (*pubsub.Transport, *config.Config, *async.Bridge, error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalConfig == nil {
		return nil, nil, nil, ErrNotInitialized
	}
	if globalTransport == nil {
		t, err := pubsub.NewTransport(globalConfig.PubSub, utils.NewLogger("WATERMILL"))
		if err != nil {
			return nil, nil, nil, err
		}
		globalTransport = t
	}
	return globalTransport, globalConfig, globalBridge, nil
}

// NewPublisher returns a publisher over the global transport.
func NewPublisher() (*pubsub.Publisher, error) {
	t, cfg, bridge, err := transport()
	if err != nil {
		return nil, err
	}
	return pubsub.NewPublisher(t.Publisher,
		pubsub.WithPublishBridge(bridge),
		pubsub.WithPublishRetry(cfg.PubSub.PublishRetries, cfg.PubSub.PublishRetryDelay),
	), nil
}

// NewDispatcher returns a dispatcher over the global transport with listeners
// registered.
func NewDispatcher(listeners ...pubsub.Listener) (*pubsub.Dispatcher, error) {
	t, cfg, _, err := transport()
	if err != nil {
		return nil, err
	}
	opts := []pubsub.DispatcherOption{pubsub.WithHandlerTimeout(cfg.PubSub.HandlerTimeout)}
	if cfg.Metrics.Enabled {
		opts = append(opts, pubsub.WithDispatchMetrics(dispatchMetrics))
	}
	d := pubsub.NewDispatcher(t.Subscriber, opts...)
	if err := d.Register(listeners...); err != nil {
		return nil, err
	}
	return d, nil
}

// Close releases the global store and transport.
func Close() error {
	globalMu.Lock()
	s, t := globalStore, globalTransport
	globalStore, globalTransport, globalConfig, globalBridge = nil, nil, nil, nil
	globalMu.Unlock()

	var first error
	if t != nil {
		first = t.Close()
	}
	if s != nil {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
