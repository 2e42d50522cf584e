package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultMQTTTopic is the topic certificate events are published on.
const DefaultMQTTTopic = "petconnect/certificates/issued"

// mqttQoS is at-least-once; consumers must deduplicate on certificate_id.
const mqttQoS byte = 1

const mqttPublishTimeout = 10 * time.Second

// MQTTSink publishes events as JSON to an MQTT topic.
type MQTTSink struct {
	client mqtt.Client
	topic  string
}

func NewMQTTSink(client mqtt.Client, topic string) *MQTTSink {
	if topic == "" {
		topic = DefaultMQTTTopic
	}

	return &MQTTSink{
		client: client,
		topic:  topic,
	}
}

func (s *MQTTSink) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	// paho tokens do not take a context, so bound the wait explicitly.
	token := s.client.Publish(s.topic, mqttQoS, false, data)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("timed out publishing to topic %s", s.topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", s.topic, err)
	}

	return nil
}
