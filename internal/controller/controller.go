package controller

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/breezehub/breeze-core/internal/profile"
)

// Controller kinds, matched case-insensitively against a profile's
// supportedController value.
const (
	KindMQTT   = "mqtt"
	KindLOOKin = "lookin"
	KindREST   = "rest"
)

const (
	// defaultPacketDelay paces multi-packet payloads. IR transmitters ignore
	// packets that arrive while the previous blast is still replaying.
	defaultPacketDelay = 500 * time.Millisecond

	defaultHTTPTimeout = 10 * time.Second
)

// Controller transmits command payloads to a physical IR/RF transmitter.
type Controller interface {
	Send(ctx context.Context, payload profile.CommandPayload) error
}

// Publisher is the slice of the MQTT client the MQTT transport needs.
type Publisher interface {
	PublishString(topic string, payload string, qos byte, retained bool) error
}

// Deps carries transport collaborators. Publisher is required for the MQTT
// kind; HTTPClient and BearerToken apply to the HTTP kinds and are optional.
type Deps struct {
	Publisher   Publisher
	HTTPClient  *http.Client
	BearerToken string
}

// New builds the transport for a controller kind.
//
// Parameters:
//   - kind: the profile's supportedController value (case-insensitive)
//   - encoding: the profile's commandsEncoding value, passed through to
//     transports whose wire format names the encoding
//   - controllerData: transport address; an MQTT topic, a LOOKin device
//     host, or a REST endpoint URL
//   - delay: pause between consecutive packets (default 500ms when <= 0)
//
// Returns:
//   - Controller: the transport
//   - error: ErrUnsupportedController for unknown kinds, or a configuration
//     error when required fields are missing
func New(kind, encoding, controllerData string, delay time.Duration, deps Deps) (Controller, error) {
	if controllerData == "" {
		return nil, fmt.Errorf("controller: controller data is required")
	}
	if delay <= 0 {
		delay = defaultPacketDelay
	}

	switch strings.ToLower(kind) {
	case KindMQTT:
		if deps.Publisher == nil {
			return nil, fmt.Errorf("controller: mqtt kind requires a publisher")
		}
		return &mqttController{
			topic:     controllerData,
			delay:     delay,
			publisher: deps.Publisher,
		}, nil
	case KindLOOKin:
		return &lookinController{
			host:     controllerData,
			encoding: encoding,
			delay:    delay,
			client:   httpClient(deps),
		}, nil
	case KindREST:
		return &restController{
			url:      controllerData,
			encoding: encoding,
			token:    deps.BearerToken,
			delay:    delay,
			client:   httpClient(deps),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedController, kind)
	}
}

func httpClient(deps Deps) *http.Client {
	if deps.HTTPClient != nil {
		return deps.HTTPClient
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// pause waits the inter-packet delay, honouring cancellation.
func pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
