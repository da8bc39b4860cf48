package ingest

import (
	"context"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/config"
)

// MQTTConsumer feeds telemetry published by the E3 gateway into the same
// ingest path as POST /dados. Payloads are identical (bulk or single,
// optionally base64-wrapped).
type MQTTConsumer struct {
	client mqtt.Client
	svc    *Service
	logger *zap.Logger
	topic  string
	qos    byte
}

func NewMQTTConsumer(cfg *config.MQTTConfig, svc *Service, logger *zap.Logger) *MQTTConsumer {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	return &MQTTConsumer{
		client: mqtt.NewClient(opts),
		svc:    svc,
		logger: logger,
		topic:  cfg.Topic,
		qos:    cfg.QoS,
	}
}

// Start connects and subscribes. Ingest errors are logged per message;
// a bad payload must not take the subscription down.
func (c *MQTTConsumer) Start() error {
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	handler := func(client mqtt.Client, msg mqtt.Message) {
		result, err := c.svc.Ingest(context.Background(), msg.Payload())
		if err != nil {
			c.logger.Warn("Rejected MQTT telemetry payload",
				zap.String("topic", msg.Topic()),
				zap.Error(err),
			)
			return
		}
		c.logger.Debug("Ingested MQTT telemetry payload",
			zap.String("topic", msg.Topic()),
			zap.String("mode", result.Mode),
		)
	}

	if token := c.client.Subscribe(c.topic, c.qos, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", c.topic, token.Error())
	}

	c.logger.Info("MQTT telemetry consumer started", zap.String("topic", c.topic))
	return nil
}

// Stop disconnects from the broker.
func (c *MQTTConsumer) Stop() {
	c.client.Disconnect(250)
}
