// Package notify delivers requester-facing status messages. Delivery is
// outbound only and fire-and-forget; the dispatch engine logs and swallows
// any failure reported from here.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/dixie/callvehicle/infra/logger"
)

// Config defines the connection parameters for the MQTT notifier.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "callvehicle-notifier"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "callvehicle/notify"
	}
}

// Message is the wire format published per notification.
type Message struct {
	MessageID   string `json:"message_id"`
	RequesterID string `json:"requester_id"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTNotifier publishes notifications to a per-requester topic.
type MQTTNotifier struct {
	cli    pahoClient
	prefix string
	qos    byte
	log    logger.Logger
}

// NewMQTTNotifier connects to the broker.
func NewMQTTNotifier(cfg Config) (*MQTTNotifier, error) {
	cfg.SetDefaults()
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	log := logger.New("mqtt_notifier")
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &MQTTNotifier{cli: cli, prefix: cfg.TopicPrefix, qos: cfg.QoS, log: log}, nil
}

// Send publishes the message to <prefix>/<requesterID>.
func (n *MQTTNotifier) Send(requesterID, text string) error {
	msg := Message{
		MessageID:   uuid.NewString(),
		RequesterID: requesterID,
		Text:        text,
		Timestamp:   time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/%s", n.prefix, requesterID)
	token := n.cli.Publish(topic, n.qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	n.log.Debugf("sent notification %s to %s", msg.MessageID, topic)
	return nil
}

// Disconnect gracefully closes the MQTT connection.
func (n *MQTTNotifier) Disconnect() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}
