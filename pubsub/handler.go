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
	"context"
	"fmt"

	"github.com/tomoncle/docstore/docerr"
)

// HandleFunc is the normalized handler every binding is reduced to.
type HandleFunc func(ctx context.Context, msg *Message) error

// Binding attaches a handler to one or more subscriptions.
type Binding struct {
	Name          string
	Subscriptions []string
	Handler       any
}

// Listener groups the bindings of one component.
type Listener interface {
	Bindings() []Binding
}

// Bindings is a static Listener.
type Bindings []Binding

func (b Bindings) Bindings() []Binding { return b }

// Adapt reduces h to a HandleFunc. Text parameters receive the payload decoded
// as a string.
func Adapt(h any) (HandleFunc, error) {
	switch fn := h.(type) {
	case nil:
		return nil, docerr.Configuration("pubsub", "handler is nil", nil)
	case HandleFunc:
		return fn, nil
	case func(context.Context, *Message) error:
		return fn, nil
	case func(context.Context, string) error:
		return func(ctx context.Context, msg *Message) error {
			return fn(ctx, msg.Text())
		}, nil
	case func(context.Context, *Message, string) error:
		return func(ctx context.Context, msg *Message) error {
			return fn(ctx, msg, msg.Text())
		}, nil
	case func(context.Context, string, *Message) error:
		return func(ctx context.Context, msg *Message) error {
			return fn(ctx, msg.Text(), msg)
		}, nil
	default:
		return nil, docerr.Configurationf("pubsub",
			"handler %T not allowed, only a message and a text parameter after the context", h)
	}
}

func (b Binding) validate() (HandleFunc, error) {
	name := b.Name
	if name == "" {
		name = fmt.Sprintf("%T", b.Handler)
	}
	if len(b.Subscriptions) == 0 {
		return nil, docerr.Configurationf("pubsub", "binding %s has no subscriptions", name)
	}
	for _, s := range b.Subscriptions {
		if s == "" {
			return nil, docerr.Configurationf("pubsub", "binding %s has an empty subscription", name)
		}
	}
	fn, err := Adapt(b.Handler)
	if err != nil {
		return nil, docerr.Configuration("pubsub", "binding "+name, err)
	}
	return fn, nil
}
