package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/breezehub/breeze-core/internal/profile"
)

// restController POSTs packets as JSON to a network transmitter's HTTP
// endpoint (ESP-style firmware exposing a send route).
type restController struct {
	url      string
	encoding string
	token    string
	delay    time.Duration
	client   *http.Client
}

type restCommand struct {
	Command  string `json:"command"`
	Encoding string `json:"encoding"`
}

func (r *restController) Send(ctx context.Context, payload profile.CommandPayload) error {
	for i, packet := range payload.Packets {
		if i > 0 {
			if err := pause(ctx, r.delay); err != nil {
				return err
			}
		}
		if err := r.sendPacket(ctx, packet); err != nil {
			return fmt.Errorf("%w: packet %d/%d to %s: %v",
				ErrSendFailed, i+1, len(payload.Packets), r.url, err)
		}
	}
	return nil
}

func (r *restController) sendPacket(ctx context.Context, packet string) error {
	body, err := json.Marshal(restCommand{Command: packet, Encoding: r.encoding})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return nil
}
