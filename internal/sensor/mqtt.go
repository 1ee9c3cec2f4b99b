package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/dbmeter/internal/processing"
)

// ErrNoSample is returned when no fresh level has arrived since the last read.
var ErrNoSample = errors.New("no fresh sample")

// MQTTConfig holds configuration for the MQTT sensor source
type MQTTConfig struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	Topic      string        // e.g. "sensor/+/level"
	StaleAfter time.Duration // levels older than this are ignored
}

// levelMessage is the JSON payload a remote microphone node publishes.
// Plain numeric payloads are accepted as well.
type levelMessage struct {
	DeviceID string  `json:"device_id"`
	Level    float64 `json:"level"`
}

// MQTTSource reads raw levels published by a remote microphone node.
type MQTTSource struct {
	config    MQTTConfig
	newClient func(*mqtt.ClientOptions) mqtt.Client
	now       func() time.Time

	mu       sync.Mutex
	client   mqtt.Client
	level    float64
	received time.Time
	fresh    bool
	revoked  bool
}

var _ processing.SensorSource = (*MQTTSource)(nil)

// NewMQTTSource creates a source; the broker is contacted on RequestCapability.
func NewMQTTSource(config MQTTConfig) *MQTTSource {
	if config.StaleAfter <= 0 {
		config.StaleAfter = 2 * time.Second
	}
	return &MQTTSource{
		config:    config,
		newClient: mqtt.NewClient,
		now:       time.Now,
	}
}

// RequestCapability connects and subscribes. Failure is reported as a denial.
func (s *MQTTSource) RequestCapability(ctx context.Context) bool {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.config.Broker)
	opts.SetClientID(s.config.ClientID)
	opts.SetUsername(s.config.Username)
	opts.SetPassword(s.config.Password)
	opts.SetAutoReconnect(false)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(s.onConnectionLost)

	client := s.newClient(opts)
	if token := client.Connect(); !waitToken(ctx, token) {
		log.Warn().Err(token.Error()).Str("broker", s.config.Broker).Msg("MQTT sensor: failed to connect")
		return false
	}

	if token := client.Subscribe(s.config.Topic, 0, s.handleMessage); !waitToken(ctx, token) {
		log.Warn().Err(token.Error()).Str("topic", s.config.Topic).Msg("MQTT sensor: failed to subscribe")
		client.Disconnect(250)
		return false
	}

	s.mu.Lock()
	s.client = client
	s.fresh = false
	s.revoked = false
	s.mu.Unlock()

	log.Info().Str("broker", s.config.Broker).Str("topic", s.config.Topic).Msg("MQTT sensor: subscribed")
	return true
}

// ReadInstant returns the latest level once. A level is consumed by the read
// that returns it so a silent node produces skipped ticks, not repeated samples.
func (s *MQTTSource) ReadInstant(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.revoked {
		return 0, processing.ErrCapabilityRevoked
	}
	if !s.fresh || s.now().Sub(s.received) > s.config.StaleAfter {
		return 0, ErrNoSample
	}
	s.fresh = false
	return s.level, nil
}

// Release unsubscribes and disconnects.
func (s *MQTTSource) Release() error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client == nil {
		return nil
	}
	if client.IsConnected() {
		if token := client.Unsubscribe(s.config.Topic); token.WaitTimeout(time.Second) && token.Error() != nil {
			log.Warn().Err(token.Error()).Msg("MQTT sensor: failed to unsubscribe")
		}
	}
	client.Disconnect(250)
	log.Info().Msg("MQTT sensor: disconnected")
	return nil
}

func (s *MQTTSource) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	level, err := parseLevel(msg.Payload())
	if err != nil {
		log.Warn().Err(err).Str("topic", msg.Topic()).Msg("MQTT sensor: ignoring malformed payload")
		return
	}

	s.mu.Lock()
	s.level = level
	s.received = s.now()
	s.fresh = true
	s.mu.Unlock()
}

func (s *MQTTSource) onConnectionLost(_ mqtt.Client, err error) {
	log.Warn().Err(err).Msg("MQTT sensor: connection lost")
	s.mu.Lock()
	s.revoked = true
	s.mu.Unlock()
}

// parseLevel accepts {"level": -42.5} or a bare number.
func parseLevel(payload []byte) (float64, error) {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return 0, errors.New("empty payload")
	}
	if strings.HasPrefix(text, "{") {
		var msg levelMessage
		if err := json.Unmarshal([]byte(text), &msg); err != nil {
			return 0, fmt.Errorf("failed to parse level message: %w", err)
		}
		return msg.Level, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse level: %w", err)
	}
	return v, nil
}

func waitToken(ctx context.Context, token mqtt.Token) bool {
	select {
	case <-token.Done():
		return token.Error() == nil
	case <-ctx.Done():
		return false
	}
}
