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
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wkafka "github.com/ThreeDotsLabs/watermill-kafka/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/code19m/errx"
	"github.com/samber/lo"
	"github.com/tomoncle/docstore/docerr"
	"github.com/tomoncle/docstore/utils"
)

// Supported transport drivers.
const (
	DriverGoChannel = "gochannel"
	DriverKafka     = "kafka"
)

// Config selects and tunes the message transport.
type Config struct {
	Driver            string        `yaml:"driver"              default:"gochannel" validate:"oneof=gochannel kafka"`
	Brokers           string        `yaml:"brokers"             validate:"required_if=Driver kafka"`
	ConsumerGroup     string        `yaml:"consumer_group"      default:"docstore"`
	OutputBuffer      int64         `yaml:"output_buffer"       default:"64"`
	PublishRetries    uint          `yaml:"publish_retries"     default:"3"`
	PublishRetryDelay time.Duration `yaml:"publish_retry_delay" default:"100ms"`
	HandlerTimeout    time.Duration `yaml:"handler_timeout"     default:"30s"`
}

// Transport holds the watermill publisher and subscriber of one driver.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	closers    []func() error
}

// NewTransport builds the publisher and subscriber for cfg.Driver. The
// gochannel driver shares one in-process instance between both sides.
func NewTransport(cfg Config, logger utils.Logger) (*Transport, error) {
	adapter := NewLoggerAdapter(logger)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverGoChannel:
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: cfg.OutputBuffer}, adapter)
		return &Transport{Publisher: ch, Subscriber: ch, closers: []func() error{ch.Close}}, nil
	case DriverKafka:
		return newKafkaTransport(cfg, adapter)
	default:
		return nil, docerr.Configurationf("pubsub", "unsupported transport driver %q", cfg.Driver)
	}
}

func newKafkaTransport(cfg Config, logger watermill.LoggerAdapter) (*Transport, error) {
	brokers := lo.Compact(lo.Map(strings.Split(cfg.Brokers, ","), func(b string, _ int) string {
		return strings.TrimSpace(b)
	}))
	if len(brokers) == 0 {
		return nil, docerr.Configuration("pubsub", "kafka driver requires brokers", nil)
	}
	publisher, err := wkafka.NewPublisher(brokers, wkafka.DefaultMarshaler{}, wkafka.DefaultSaramaSyncPublisherConfig(), logger)
	if err != nil {
		return nil, errx.Wrap(err)
	}
	subscriber, err := wkafka.NewSubscriber(
		wkafka.SubscriberConfig{
			Brokers:       brokers,
			ConsumerGroup: cfg.ConsumerGroup,
		},
		wkafka.DefaultSaramaSubscriberConfig(),
		wkafka.DefaultMarshaler{},
		logger,
	)
	if err != nil {
		_ = publisher.Close()
		return nil, errx.Wrap(err)
	}
	return &Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
		closers:    []func() error{subscriber.Close, publisher.Close},
	}, nil
}

// Close releases the transport.
func (t *Transport) Close() error {
	var first error
	for _, c := range t.closers {
		if err := c(); err != nil && first == nil {
			first = errx.Wrap(err)
		}
	}
	t.closers = nil
	return first
}
