// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sky_locator/internal/config"
	"github.com/relabs-tech/sky_locator/internal/report"
)

// displayData holds the latest estimate for the screen.
type displayData struct {
	mu       sync.RWMutex
	estimate report.Payload
	have     bool
}

func (d *displayData) set(p report.Payload) {
	d.mu.Lock()
	d.estimate = p
	d.have = true
	d.mu.Unlock()
}

func (d *displayData) get() (report.Payload, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.estimate, d.have
}

// RunDisplay shows the latest estimate on an SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on %s", bus)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &displayData{}

	// Connect to MQTT
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicEstimate, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p report.Payload
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("display: estimate unmarshal error: %v", err)
			return
		}
		data.set(p)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicEstimate)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		p, ok := data.get()
		if err := dev.Draw(dev.Bounds(), renderEstimate(p, ok), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

// estimateLines formats up to four 7x13 lines for a 128x64 screen.
func estimateLines(p report.Payload, have bool) []string {
	if !have {
		return []string{"", "Sky locator", "Waiting..."}
	}

	lines := make([]string, 0, 4)
	if p.ObjectWorldAzimuth != nil && p.ObjectWorldElevation != nil {
		lines = append(lines,
			fmt.Sprintf("OBJ AZ %6.1f", *p.ObjectWorldAzimuth),
			fmt.Sprintf("OBJ EL %6.1f", *p.ObjectWorldElevation),
		)
	} else {
		lines = append(lines, "No object", "")
	}

	az := fmt.Sprintf("DEV AZ %6.1f", p.DeviceAzimuth)
	if !p.AzimuthReliable {
		az += "?"
	}
	lines = append(lines, az, fmt.Sprintf("DEV P  %6.1f", p.DevicePitch))
	return lines
}

func renderEstimate(p report.Payload, have bool) *image1bit.VerticalLSB {
	return renderLines(estimateLines(p, have))
}

func renderSplash() *image1bit.VerticalLSB {
	return renderLines([]string{"", "  Sky locator", "  Point at sun", "  or moon"})
}

func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawBytes([]byte(line))
	}
	return img
}
