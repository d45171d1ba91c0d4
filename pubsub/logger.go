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

package pubsub

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/tomoncle/docstore/utils"
)

var _ watermill.LoggerAdapter = (*loggerAdapter)(nil)

// loggerAdapter adapts a docstore logger to the watermill logger.
type loggerAdapter struct {
	base   utils.Logger
	fields watermill.LogFields
}

func NewLoggerAdapter(l utils.Logger) watermill.LoggerAdapter {
	if l == nil {
		l = utils.NewLogger("WATERMILL")
	}
	return &loggerAdapter{base: l}
}

func (l *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.base.Error(msg, append(l.keyValues(fields), "error", err)...)
}

func (l *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	l.base.Info(msg, l.keyValues(fields)...)
}

func (l *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	l.base.Debug(msg, l.keyValues(fields)...)
}

func (l *loggerAdapter) Trace(msg string, fields watermill.LogFields) {
	l.base.Debug(msg, l.keyValues(fields)...)
}

func (l *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &loggerAdapter{base: l.base, fields: l.fields.Add(fields)}
}

func (l *loggerAdapter) keyValues(fields watermill.LogFields) []interface{} {
	all := l.fields.Add(fields)
	kv := make([]interface{}, 0, len(all)*2)
	for k, v := range all {
		kv = append(kv, k, v)
	}
	return kv
}
