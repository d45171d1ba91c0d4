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
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
)

// PublishTimeKey is the metadata key carrying the publish time in RFC3339Nano.
const PublishTimeKey = "publish_time"

// Message is the delivery handed to handlers.
type Message struct {
	ID           string
	Data         []byte
	Attributes   map[string]string
	Subscription string
	PublishTime  time.Time
}

// Text returns the payload as a string.
func (m *Message) Text() string {
	return string(m.Data)
}

func fromWatermill(subscription string, msg *message.Message) *Message {
	attrs := make(map[string]string, len(msg.Metadata))
	for k, v := range msg.Metadata {
		if k == PublishTimeKey {
			continue
		}
		attrs[k] = v
	}
	published, err := time.Parse(time.RFC3339Nano, msg.Metadata.Get(PublishTimeKey))
	if err != nil {
		published = time.Now()
	}
	return &Message{
		ID:           msg.UUID,
		Data:         msg.Payload,
		Attributes:   attrs,
		Subscription: subscription,
		PublishTime:  published,
	}
}
