package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/breezehub/breeze-core/internal/infrastructure/config"
)

const (
	// connectTimeout bounds the initial broker handshake.
	connectTimeout = 10 * time.Second

	// opTimeout bounds publish, subscribe and unsubscribe token waits.
	opTimeout = 5 * time.Second

	// disconnectQuiesceMs is how long paho may spend flushing in-flight
	// messages during a graceful disconnect.
	disconnectQuiesceMs = 1000

	keepAliveInterval = 60 * time.Second

	maxQoS        = 2
	tlsMinVersion = tls.VersionTLS12
)

// buildClientOptions translates Breeze MQTT configuration into paho options.
// Sessions are always clean: subscription state lives in the Client's own
// table and is replayed on reconnect, so broker-side session persistence
// would only duplicate deliveries.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAliveInterval).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// configureLWT registers the retained last-will message the broker publishes
// if the daemon dies without calling Close. Consumers watching
// breeze/system/status can tell a crash ("unexpected_disconnect") from a
// clean shutdown ("graceful_shutdown").
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	will := statusMessage(clientID, "offline", "unexpected_disconnect")
	opts.SetBinaryWill(Topics{}.SystemStatus(), []byte(will), 1, true)
}

// statusPayload is the JSON shape published on the system status topic.
type statusPayload struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func statusMessage(clientID, status, reason string) string {
	b, _ := json.Marshal(statusPayload{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return string(b)
}

func buildOnlinePayload(clientID string) string {
	return statusMessage(clientID, "online", "")
}

func buildOfflinePayload(clientID string) string {
	return statusMessage(clientID, "offline", "graceful_shutdown")
}
