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

// Package config loads the docstore configuration from YAML.
//
// Loading reads an optional .env file, expands ${VAR} references in the YAML
// text, applies `default` tags and validates the result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/tomoncle/docstore/database"
	"github.com/tomoncle/docstore/docerr"
	"github.com/tomoncle/docstore/pubsub"
	"github.com/tomoncle/docstore/store/fsstore"
	"github.com/tomoncle/docstore/utils"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory    = "memory"
	DriverSQL       = "sql"
	DriverFirestore = "firestore"
)

type Config struct {
	Store      StoreConfig      `yaml:"store"`
	PubSub     pubsub.Config    `yaml:"pubsub"`
	Logging    LoggingConfig    `yaml:"logging"`
	Repository RepositoryConfig `yaml:"repository"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// StoreConfig selects the document store. Only the section of the selected
// driver is validated.
type StoreConfig struct {
	Driver    string                    `yaml:"driver"    default:"memory" validate:"oneof=memory sql firestore"`
	SQL       database.ConnectionConfig `yaml:"sql"       validate:"-"`
	Firestore fsstore.Config            `yaml:"firestore" validate:"-"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"  default:"info" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `yaml:"format" default:"text" validate:"oneof=text json"`
}

type RepositoryConfig struct {
	DefaultPageLimit int    `yaml:"default_page_limit" default:"20"   validate:"gte=1"`
	IDStrategy       string `yaml:"id_strategy"        default:"uuid" validate:"oneof=uuid ulid"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Apply configures the process-wide loggers.
func (c LoggingConfig) Apply() {
	utils.ConfigureConsoleLogFormat(c.Format)
	utils.ConfigureLogLevel(c.Level)
}

// Default returns a configuration made of defaults only.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the YAML file at path. An empty path yields the defaults, still
// validated. Environment variables from a .env file in the working directory
// are loaded first and do not override variables already set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()
	var data []byte
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, docerr.Configuration("config", "cannot read "+path, err)
		}
		data = raw
	}
	return Parse(data)
}

// MustLoad is like Load but panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Parse decodes YAML text into a validated configuration. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, docerr.Configuration("config", "invalid yaml", err)
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, docerr.Configuration("config", "cannot apply defaults", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg and the section of the selected store driver.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	targets := []any{c}
	switch c.Store.Driver {
	case DriverSQL:
		targets = append(targets, &c.Store.SQL)
	case DriverFirestore:
		targets = append(targets, &c.Store.Firestore)
	}
	var failed []string
	for _, t := range targets {
		err := v.Struct(t)
		if err == nil {
			continue
		}
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return docerr.Configuration("config", "validation failed", err)
		}
		for _, fe := range errs {
			tag := fe.Tag()
			if fe.Param() != "" {
				tag += "=" + fe.Param()
			}
			failed = append(failed, fmt.Sprintf("%s: %s", fe.Namespace(), tag))
		}
	}
	if len(failed) > 0 {
		return docerr.Configurationf("config", "invalid fields -> %s", strings.Join(failed, ", "))
	}
	return nil
}
