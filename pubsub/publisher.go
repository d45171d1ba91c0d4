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
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/avast/retry-go/v4"
	"github.com/code19m/errx"
	"github.com/tomoncle/docstore/async"
	"github.com/tomoncle/docstore/docerr"
	"github.com/tomoncle/docstore/utils"
)

// Publisher sends messages to topics. Every publish runs through the async
// bridge, so failures surface as store errors naming the topic.
type Publisher struct {
	publisher message.Publisher
	bridge    *async.Bridge
	logger    utils.Logger
	attempts  uint
	delay     time.Duration
	clock     func() time.Time
}

type PublisherOption func(*Publisher)

func WithPublishBridge(b *async.Bridge) PublisherOption {
	return func(p *Publisher) {
		if b != nil {
			p.bridge = b
		}
	}
}

func WithPublishLogger(l utils.Logger) PublisherOption {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPublishRetry sets how often a failed publish is attempted and the base
// delay between attempts.
func WithPublishRetry(attempts uint, delay time.Duration) PublisherOption {
	return func(p *Publisher) {
		if attempts > 0 {
			p.attempts = attempts
		}
		if delay >= 0 {
			p.delay = delay
		}
	}
}

func WithPublishClock(fn func() time.Time) PublisherOption {
	return func(p *Publisher) {
		if fn != nil {
			p.clock = fn
		}
	}
}

func NewPublisher(pub message.Publisher, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		publisher: pub,
		bridge:    async.Default(),
		logger:    utils.NewLogger("PUBSUB"),
		attempts:  3,
		delay:     100 * time.Millisecond,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends data with attrs to topic. The future resolves to the message id.
func (p *Publisher) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) *async.Future[string] {
	if topic == "" {
		return async.Failed[string](docerr.Configuration("publish", "topic is empty", nil))
	}
	if p.publisher == nil {
		return async.Failed[string](docerr.Configuration("publish", "publisher has no transport", nil))
	}
	op := async.Operation{Name: "publish", Collection: topic}
	return async.Submit(ctx, p.bridge, op, func(ctx context.Context) *async.Future[string] {
		return async.Go(ctx, func(ctx context.Context) (string, error) {
			return p.send(ctx, topic, data, attrs)
		})
	})
}

// PublishText sends a text payload without attributes.
func (p *Publisher) PublishText(ctx context.Context, topic, text string) *async.Future[string] {
	return p.Publish(ctx, topic, []byte(text), nil)
}

func (p *Publisher) send(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	msg := message.NewMessage(watermill.NewUUID(), data)
	for k, v := range attrs {
		msg.Metadata.Set(k, v)
	}
	msg.Metadata.Set(PublishTimeKey, p.clock().UTC().Format(time.RFC3339Nano))
	msg.SetContext(ctx)

	err := retry.Do(
		func() error {
			return p.publisher.Publish(topic, msg)
		},
		retry.Attempts(p.attempts),
		retry.Delay(p.delay),
		retry.MaxJitter(10*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Warn("retrying publish", "topic", topic, "id", msg.UUID,
				"attempt", n+1, "max_attempts", p.attempts, "error", err)
		}),
		retry.Context(ctx),
	)
	if err != nil {
		return "", errx.Wrap(err, errx.WithDetails(errx.D{"topic": topic, "message_id": msg.UUID}))
	}
	p.logger.Debug("message published", "topic", topic, "id", msg.UUID)
	return msg.UUID, nil
}
