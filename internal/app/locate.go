// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sky_locator/internal/config"
	"github.com/relabs-tech/sky_locator/internal/orientation"
	"github.com/relabs-tech/sky_locator/internal/vision"
)

// LocateOptions describes a one-shot locate run on a saved image.
type LocateOptions struct {
	Image       string
	Orientation orientation.Orientation
	Publish     bool // send the estimate to the configured sinks
	Analysis    bool // print detector diagnostics instead of the result
}

// RunLocate analyzes a single image with a caller-supplied orientation and
// writes the result as JSON to out.
func RunLocate(cfg *config.Config, opts LocateOptions, out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if opts.Analysis {
		img, err := vision.LoadFrame(opts.Image)
		if err != nil {
			return err
		}
		a, err := vision.NewDetector(detectorParams(cfg)).Analyze(img)
		if err != nil {
			return err
		}
		return enc.Encode(a)
	}

	var client mqtt.Client
	if opts.Publish {
		mqttOpts := mqtt.NewClientOptions().
			AddBroker(cfg.MQTTBroker).
			SetClientID(fmt.Sprintf("%s-once-%d", cfg.MQTTClientIDLocator, time.Now().Unix()))
		client = mqtt.NewClient(mqttOpts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Printf("locate: MQTT unavailable, HTTP only: %v", token.Error())
			client = nil
		} else {
			defer client.Disconnect(250)
		}
	}

	var loc *Locator
	var err error
	if opts.Publish {
		dispatch := newDispatcher(cfg, client)
		defer dispatch.Wait()
		loc, err = NewLocator(cfg, dispatch)
	} else {
		loc, err = NewLocator(cfg, nil)
	}
	if err != nil {
		return err
	}

	o := opts.Orientation
	o.AzimuthDeg = orientation.Normalize360(o.AzimuthDeg)
	if o.Time.IsZero() {
		o.Time = time.Now()
	}

	c := loc.BeginCapture(opts.Image)
	c.Orientation = &o
	res, err := loc.ProcessFile(c)
	if err != nil {
		return err
	}
	return enc.Encode(res)
}
