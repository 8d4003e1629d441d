// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sky_locator/internal/config"
	"github.com/relabs-tech/sky_locator/internal/gps"
	"github.com/relabs-tech/sky_locator/internal/report"
)

// RunConsoleMQTT prints every estimate and GPS fix seen on the broker.
func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	estimateToken := client.Subscribe(cfg.TopicEstimate, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p report.Payload
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("console: estimate unmarshal error: %v", err)
			return
		}
		printEstimate(os.Stdout, p)
	})
	estimateToken.Wait()
	if estimateToken.Error() != nil {
		return estimateToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicEstimate)

	gpsToken := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: gps unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[GPS ]  time=%s date=%s lat=%.6f lon=%.6f alt=%.1fm sats=%d validity=%s\n",
			f.Time, f.Date, f.Latitude, f.Longitude, f.Altitude, f.Satellites, f.Validity,
		)
	})
	gpsToken.Wait()
	if gpsToken.Error() != nil {
		return gpsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicGPS)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func printEstimate(w io.Writer, p report.Payload) {
	ts := time.UnixMilli(p.Timestamp).Format("15:04:05")
	object := "not detected"
	if p.ObjectWorldAzimuth != nil && p.ObjectWorldElevation != nil {
		object = fmt.Sprintf("az=%7.2f el=%6.2f", *p.ObjectWorldAzimuth, *p.ObjectWorldElevation)
	}
	where := "location unknown"
	if p.Latitude != nil && p.Longitude != nil {
		where = fmt.Sprintf("lat=%.5f lon=%.5f", *p.Latitude, *p.Longitude)
	}
	fmt.Fprintf(w,
		"[SKY ]  %s %s  OBJECT %s  DEVICE az=%7.2f pitch=%6.2f roll=%6.2f  %s\n",
		ts, p.DeviceID, object, p.DeviceAzimuth, p.DevicePitch, p.DeviceRoll, where,
	)
}
