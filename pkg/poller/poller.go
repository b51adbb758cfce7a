// Package poller reads the local sensors and posts the readings to the thermostat server.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/sensor"
)

var ErrNoReadings = errors.New("no sensor could be read")

type (
	Poller struct {
		sensors sensor.Sensors
		client  *http.Client
		url     string
		apiKey  string
	}

	// readingPayload matches the server ingest body. Temperature is in Celsius.
	readingPayload struct {
		Temperature *float64 `json:"temperature,omitempty"`
		Humidity    *float64 `json:"humidity,omitempty"`
	}
)

func New(sensors sensor.Sensors, serverURL string, apiKey string) *Poller {
	return &Poller{
		sensors: sensors,
		client:  &http.Client{Timeout: 10 * time.Second},
		url:     strings.TrimRight(serverURL, "/") + "/v1/temperatures",
		apiKey:  apiKey,
	}
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	slog.Debug(">>Run", "interval", interval)
	defer slog.Debug("<<Run")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := p.PollOnce(ctx); err != nil {
			slog.Error("failed to report readings, will try again", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) PollOnce(ctx context.Context) error {
	var payload readingPayload

	tr := p.sensors.ReadTemperature()
	if tr.Err != nil {
		slog.Warn("failed to read the temperature, will try again", "name", tr.Name, "error", tr.Err)
	} else {
		payload.Temperature = &tr.Value
	}

	hr := p.sensors.ReadHumidity()
	if hr.Err != nil {
		slog.Warn("failed to read the humidity, will try again", "name", hr.Name, "error", hr.Err)
	} else {
		payload.Humidity = &hr.Value
	}

	if payload.Temperature == nil && payload.Humidity == nil {
		return ErrNoReadings
	}

	return p.post(ctx, payload)
}

func (p *Poller) post(ctx context.Context, payload readingPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "ApiKey "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	slog.Debug("readings reported", "temperature", payload.Temperature, "humidity", payload.Humidity)
	return nil
}
