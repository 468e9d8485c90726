package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgoulah/poemcast/internal/config"
	"github.com/jgoulah/poemcast/pkg/models"
)

const mqttPublishTimeout = 10 * time.Second

// MQTT publishes each poem as a retained JSON message, e.g. for home displays
type MQTT struct {
	client mqtt.Client
	topic  string
}

// MQTTPayload is the message body published to <prefix>/poem
type MQTTPayload struct {
	Text      string `json:"text"`
	Theme     string `json:"theme,omitempty"`
	Engine    string `json:"engine"`
	Model     string `json:"model"`
	RunID     string `json:"run_id"`
	CreatedAt string `json:"created_at"`
}

// NewMQTT connects to the configured broker
func NewMQTT(cfg config.MQTTConfig, topicPrefix string) (*MQTT, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	// Configure MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID("poemcast")
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	// Create and connect client
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return newMQTTWithClient(client, topicPrefix), nil
}

func newMQTTWithClient(client mqtt.Client, topicPrefix string) *MQTT {
	return &MQTT{client: client, topic: PoemTopic(topicPrefix)}
}

// PoemTopic returns the topic poems are published to
func PoemTopic(prefix string) string {
	return prefix + "/poem"
}

func (m *MQTT) Name() string { return "mqtt" }

// Publish sends the poem and returns the topic it was published to
func (m *MQTT) Publish(ctx context.Context, poem models.Poem) (string, error) {
	payload := MQTTPayload{
		Text:      poem.Text,
		Theme:     poem.Theme,
		Engine:    poem.Engine,
		Model:     poem.Model,
		RunID:     poem.RunID,
		CreatedAt: poem.CreatedAt.UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}

	token := m.client.Publish(m.topic, 1, true, body)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(mqttPublishTimeout):
		return "", fmt.Errorf("publishing to %s: timed out", m.topic)
	}
	if err := token.Error(); err != nil {
		return "", fmt.Errorf("publishing to %s: %w", m.topic, err)
	}
	return m.topic, nil
}

// Close disconnects from the MQTT broker
func (m *MQTT) Close() {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
	}
}
