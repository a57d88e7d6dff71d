package publish

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/muurk/watering/internal/logging"
)

// Publisher delivers one message to a topic.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker      string // e.g. tcp://localhost:1883
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Timeout     time.Duration // connect and publish wait
}

// MQTTClient publishes over an eclipse paho connection. The broker marks the
// bridge offline through the last will when the connection drops.
type MQTTClient struct {
	client  mqtt.Client
	timeout time.Duration
	online  string
}

// DialMQTT connects to the broker and announces the bridge online.
func DialMQTT(cfg MQTTConfig) (*MQTTClient, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	online := cfg.TopicPrefix + "/online"

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetWill(online, "false", 1, true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		logging.Info("Connected to MQTT broker", zap.String("broker", cfg.Broker))
		c.Publish(online, 1, true, "true")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logging.Warn("MQTT connection lost", zap.String("broker", cfg.Broker), zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		// ConnectRetry keeps trying in the background
		logging.Warn("MQTT broker not reachable yet, retrying in background", zap.String("broker", cfg.Broker))
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Broker, err)
	}

	return &MQTTClient{client: client, timeout: cfg.Timeout, online: online}, nil
}

// Publish sends payload with QoS 1.
func (c *MQTTClient) Publish(topic string, payload []byte, retained bool) error {
	token := c.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// Close marks the bridge offline and disconnects.
func (c *MQTTClient) Close() {
	if c.client.IsConnected() {
		c.client.Publish(c.online, 1, true, "false").WaitTimeout(c.timeout)
	}
	c.client.Disconnect(250)
}
