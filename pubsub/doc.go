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

// Package pubsub dispatches messages from watermill subscriptions to listener
// handlers and publishes messages through the async bridge.
//
// A Listener declares its bindings, each naming one or more subscriptions and a
// handler in one of the accepted shapes:
//
//	func(ctx context.Context, msg *pubsub.Message) error
//	func(ctx context.Context, text string) error
//	func(ctx context.Context, msg *pubsub.Message, text string) error
//	func(ctx context.Context, text string, msg *pubsub.Message) error
//
// A handler returning nil acknowledges the message; an error or a panic nacks
// it so the transport redelivers.
package pubsub
