// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sky_locator/internal/config"
	"github.com/relabs-tech/sky_locator/internal/gps"
	"github.com/relabs-tech/sky_locator/internal/imu"
	"github.com/relabs-tech/sky_locator/internal/report"
)

// RunLocator subscribes to the sensor topics, processes capture requests
// and publishes an estimate for every frame.
func RunLocator() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDLocator).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("locator: connected to MQTT broker at %s", cfg.MQTTBroker)

	loc, err := NewLocator(cfg, newDispatcher(cfg, client))
	if err != nil {
		return err
	}

	if err := subscribeLocator(client, cfg, loc); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           newWebMux(loc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("locator: web server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	}

	log.Println("locator: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// newDispatcher returns the estimate sinks configured in cfg. client may
// be nil when no MQTT connection is available.
func newDispatcher(cfg *config.Config, client mqtt.Client) *report.Dispatcher {
	timeout := time.Duration(cfg.ReportHTTPTimeout) * time.Millisecond

	var pubs []report.Publisher
	if client != nil {
		pubs = append(pubs, report.NewMQTTPublisher(client, cfg.TopicEstimate))
	}
	if cfg.ReportHTTPURL != "" {
		pubs = append(pubs, report.NewHTTPPublisher(cfg.ReportHTTPURL, timeout))
		log.Printf("locator: reporting to %s", cfg.ReportHTTPURL)
	}
	return report.NewDispatcher(timeout, pubs...)
}

func subscribeLocator(client mqtt.Client, cfg *config.Config, loc *Locator) error {
	token := client.Subscribe(cfg.TopicIMU, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var raw imu.IMURaw
		if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
			log.Printf("locator: imu unmarshal error: %v", err)
			return
		}
		loc.HandleIMU(raw)
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("locator: subscribed to %s", cfg.TopicIMU)

	token = client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("locator: gps unmarshal error: %v", err)
			return
		}
		loc.HandleFix(f)
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("locator: subscribed to %s", cfg.TopicGPS)

	// Frames are analyzed one at a time, off the MQTT callback goroutine.
	captures := make(chan *Capture, 4)
	go func() {
		for c := range captures {
			// Errors are already logged and counted by the locator.
			_, _ = loc.ProcessFile(c)
		}
	}()

	token = client.Subscribe(cfg.TopicCapture, 0, func(_ mqtt.Client, msg mqtt.Message) {
		path := strings.TrimSpace(string(msg.Payload()))
		if path == "" {
			return
		}
		select {
		case captures <- loc.BeginCapture(path):
		default:
			log.Printf("locator: busy, dropping capture request for %s", path)
		}
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("locator: subscribed to %s", cfg.TopicCapture)
	return nil
}
