package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	paho "github.com/eclipse/paho.mqtt.golang"
)

type MQTTPublisher struct {
	client paho.Client
	topic  string
}

func NewMQTTPublisher(broker string, topic string) (*MQTTPublisher, error) {
	if topic == "" {
		topic = DEFAULT_TOPIC
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("thermostat-server").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &MQTTPublisher{
		client: client,
		topic:  topic,
	}, nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, event thermostat.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 1, relay transitions should reach the subscribers
	token := p.client.Publish(p.topic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
