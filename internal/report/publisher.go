// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sky_locator/internal/metrics"
)

// Publisher delivers one payload to a sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, p Payload) error
}

// MQTTPublisher publishes payloads as JSON on a topic.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

// NewMQTTPublisher returns a publisher on an already connected client.
func NewMQTTPublisher(client mqtt.Client, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic}
}

func (m *MQTTPublisher) Name() string { return "mqtt" }

// Publish sends p with QoS 0 and waits for the client to hand it off or
// for ctx to end.
func (m *MQTTPublisher) Publish(ctx context.Context, p Payload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	token := m.client.Publish(m.topic, 0, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", m.topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.topic, err)
	}
	return nil
}

// HTTPPublisher POSTs payloads as JSON to a collection endpoint.
type HTTPPublisher struct {
	url    string
	client *http.Client
}

// NewHTTPPublisher returns a publisher posting to url with the given
// overall request timeout.
func NewHTTPPublisher(url string, timeout time.Duration) *HTTPPublisher {
	return &HTTPPublisher{url: url, client: newHTTPClient(timeout)}
}

func (h *HTTPPublisher) Name() string { return "http" }

// Publish posts p. Any non-2xx response is an error.
func (h *HTTPPublisher) Publish(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", h.url, err)
	}
	defer resp.Body.Close()

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post %s: server responded %s: %s", h.url, resp.Status, bytes.TrimSpace(msg))
	}
	return nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Dispatcher fans a payload out to every publisher without blocking the
// caller. Failures are logged and counted; nothing is retried.
type Dispatcher struct {
	publishers []Publisher
	timeout    time.Duration
	wg         sync.WaitGroup
}

// NewDispatcher returns a dispatcher giving each delivery up to timeout.
func NewDispatcher(timeout time.Duration, pubs ...Publisher) *Dispatcher {
	return &Dispatcher{publishers: pubs, timeout: timeout}
}

// Dispatch starts delivery of p to every publisher and returns immediately.
func (d *Dispatcher) Dispatch(p Payload) {
	for _, pub := range d.publishers {
		d.wg.Add(1)
		go func(pub Publisher) {
			defer d.wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()

			if err := pub.Publish(ctx, p); err != nil {
				metrics.PublishFailures.WithLabelValues(pub.Name()).Inc()
				log.Printf("report: %s delivery of capture %s failed: %v", pub.Name(), p.CaptureID, err)
				return
			}
			log.Printf("report: capture %s sent via %s", p.CaptureID, pub.Name())
		}(pub)
	}
}

// Wait blocks until every started delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
