package controller

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/breezehub/breeze-core/internal/profile"
)

// lookinController drives a LOOKin Remote device over its local HTTP API.
// Each packet is one GET against the device's ir command route.
type lookinController struct {
	host     string
	encoding string
	delay    time.Duration
	client   *http.Client
}

func (l *lookinController) Send(ctx context.Context, payload profile.CommandPayload) error {
	for i, packet := range payload.Packets {
		if i > 0 {
			if err := pause(ctx, l.delay); err != nil {
				return err
			}
		}
		if err := l.sendPacket(ctx, packet); err != nil {
			return fmt.Errorf("%w: packet %d/%d to %s: %v",
				ErrSendFailed, i+1, len(payload.Packets), l.host, err)
		}
	}
	return nil
}

func (l *lookinController) sendPacket(ctx context.Context, packet string) error {
	target := fmt.Sprintf("http://%s/commands/ir/%s/%s",
		l.host, lookinEncodingPath(l.encoding), url.PathEscape(packet))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("device returned %d", resp.StatusCode)
	}
	return nil
}

// lookinEncodingPath maps a profile encoding to the device's route segment.
// LOOKin names the ProntoHEX route prontohex; everything else is the
// lowered encoding name (raw, nec, ...).
func lookinEncodingPath(encoding string) string {
	enc := strings.ToLower(encoding)
	if enc == "pronto" {
		return "prontohex"
	}
	return enc
}
