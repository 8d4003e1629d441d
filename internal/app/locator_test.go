// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"image"
	"image/color"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sky_locator/internal/config"
	"github.com/relabs-tech/sky_locator/internal/gps"
	"github.com/relabs-tech/sky_locator/internal/imu"
	"github.com/relabs-tech/sky_locator/internal/orientation"
	"github.com/relabs-tech/sky_locator/internal/report"
	"github.com/relabs-tech/sky_locator/internal/vision"
)

// sunFrame is an 800x600 frame with a bright disk of radius 40 at (600,400).
func sunFrame() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 800, 600))
	for y := 360; y <= 440; y++ {
		for x := 560; x <= 640; x++ {
			dx, dy := x-600, y-400
			if dx*dx+dy*dy <= 40*40 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

type memPublisher struct {
	mu   sync.Mutex
	sent []report.Payload
}

func (m *memPublisher) Name() string { return "memory" }

func (m *memPublisher) Publish(_ context.Context, p report.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, p)
	return nil
}

func (m *memPublisher) payloads() []report.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]report.Payload(nil), m.sent...)
}

func newTestLocator(t *testing.T, mutate func(*config.Config)) (*Locator, *memPublisher, *report.Dispatcher) {
	t.Helper()
	cfg := config.Default()
	cfg.DeviceID = "test-device"
	if mutate != nil {
		mutate(cfg)
	}
	pub := &memPublisher{}
	d := report.NewDispatcher(time.Second, pub)
	l, err := NewLocator(cfg, d)
	require.NoError(t, err)
	return l, pub, d
}

// point feeds the attitude until the filter has settled on it.
func point(l *Locator, azimuth, pitch float64) {
	for i := 0; i < 200; i++ {
		l.HandleIMU(imu.FromSamples("mock", orientation.SyntheticSamples(azimuth, pitch, time.Now())))
	}
}

func TestLocatorGoldenFrame(t *testing.T) {
	l, pub, d := newTestLocator(t, nil)
	point(l, 200, 5)

	res, err := l.Process(l.BeginCapture("golden.png"), sunFrame())
	require.NoError(t, err)
	d.Wait()

	assert.True(t, res.OrientationKnown)
	require.NotNil(t, res.Disk)
	require.NotNil(t, res.Offsets)
	assert.InDelta(t, 16.102113751986014, res.Offsets.HorizontalDeg, 1e-6)
	assert.InDelta(t, 7.861193404821713, res.Offsets.VerticalDeg, 1e-6)
	require.True(t, res.Estimate.Detected)
	assert.InDelta(t, 216.10211375198602, res.Estimate.AzimuthDeg, 1e-6)
	assert.InDelta(t, -2.861193404821713, res.Estimate.ElevationDeg, 1e-6)

	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, res.CaptureID, last.CaptureID)

	sent := pub.payloads()
	require.Len(t, sent, 1)
	assert.Equal(t, "test-device", sent[0].DeviceID)
	assert.Equal(t, res.CaptureID, sent[0].CaptureID)
	assert.Nil(t, sent[0].Latitude)
	require.NotNil(t, sent[0].ObjectWorldAzimuth)
	assert.InDelta(t, 216.10211375198602, *sent[0].ObjectWorldAzimuth, 1e-6)
	assert.Equal(t, 60.0, sent[0].CameraFOVHorizontal)
}

func TestLocatorUndetectedResetsEstimate(t *testing.T) {
	l, pub, d := newTestLocator(t, nil)
	point(l, 90, 0)

	_, err := l.Process(l.BeginCapture("sun.png"), sunFrame())
	require.NoError(t, err)

	noise := image.NewGray(image.Rect(0, 0, 100, 100))
	noise.SetGray(50, 50, color.Gray{Y: 200})
	res, err := l.Process(l.BeginCapture("noise.png"), noise)
	require.NoError(t, err)
	d.Wait()

	assert.False(t, res.Estimate.Detected)
	assert.Nil(t, res.Offsets)
	last, _ := l.Last()
	assert.False(t, last.Estimate.Detected, "the previous detection is not carried forward")
	assert.Len(t, pub.payloads(), 1, "no location and no detection sends nothing")
}

func TestLocatorUndetectedWithLocationIsSent(t *testing.T) {
	l, pub, d := newTestLocator(t, nil)
	point(l, 90, 0)
	l.HandleFix(gps.Fix{Validity: "A", Latitude: 40.4, Longitude: -3.7})

	noise := image.NewGray(image.Rect(0, 0, 100, 100))
	noise.SetGray(50, 50, color.Gray{Y: 200})
	_, err := l.Process(l.BeginCapture("noise.png"), noise)
	require.NoError(t, err)
	d.Wait()

	sent := pub.payloads()
	require.Len(t, sent, 1)
	require.NotNil(t, sent[0].Latitude)
	assert.Equal(t, 40.4, *sent[0].Latitude)
	assert.Nil(t, sent[0].ObjectWorldAzimuth)
}

func TestLocatorInputErrors(t *testing.T) {
	l, pub, d := newTestLocator(t, nil)

	_, err := l.Process(l.BeginCapture("dark.png"), image.NewGray(image.Rect(0, 0, 10, 10)))
	assert.ErrorIs(t, err, vision.ErrEmptyFrame)

	_, err = l.ProcessFile(l.BeginCapture("/does/not/exist.jpg"))
	assert.ErrorIs(t, err, vision.ErrDecode)

	d.Wait()
	assert.Empty(t, pub.payloads())
	_, ok := l.Last()
	assert.False(t, ok)
}

func TestLocatorSnapshotModes(t *testing.T) {
	t.Run("analysis", func(t *testing.T) {
		l, _, _ := newTestLocator(t, nil)
		point(l, 100, 0)
		c := l.BeginCapture("frame.png")
		point(l, 300, 0)

		res, err := l.Process(c, sunFrame())
		require.NoError(t, err)
		assert.InDelta(t, 300, res.Orientation.AzimuthDeg, 1e-3)
	})

	t.Run("capture", func(t *testing.T) {
		l, _, _ := newTestLocator(t, func(c *config.Config) {
			c.OrientationSnapshot = config.SnapshotAtCapture
		})
		point(l, 100, 0)
		c := l.BeginCapture("frame.png")
		point(l, 300, 0)

		res, err := l.Process(c, sunFrame())
		require.NoError(t, err)
		assert.InDelta(t, 100, res.Orientation.AzimuthDeg, 1e-3)
	})
}

func TestLocatorUnknownOrientation(t *testing.T) {
	l, _, _ := newTestLocator(t, nil)

	res, err := l.Process(l.BeginCapture("frame.png"), sunFrame())
	require.NoError(t, err)
	assert.False(t, res.OrientationKnown)
	require.True(t, res.Estimate.Detected)
	assert.InDelta(t, 16.102113751986014, res.Estimate.AzimuthDeg, 1e-6)
}

func TestLocatorMagnetometerAuto(t *testing.T) {
	l, _, _ := newTestLocator(t, nil)

	for i := 0; i < 100; i++ {
		samples := orientation.SyntheticSamples(150, 10, time.Now())
		l.HandleIMU(imu.FromSamples("mpu9250", samples[:1]))
	}
	o, ok := l.Orientation()
	require.True(t, ok)
	assert.False(t, o.AzimuthReliable)
	assert.InDelta(t, 10, o.PitchDeg, 1e-3)

	point(l, 150, 10)
	o, ok = l.Orientation()
	require.True(t, ok)
	assert.True(t, o.AzimuthReliable)
	assert.InDelta(t, 150, o.AzimuthDeg, 1e-3)
}

func TestLocatorMagnetometerSplitProducers(t *testing.T) {
	l, _, _ := newTestLocator(t, nil)
	start := time.Now()

	// Accelerometer and magnetometer arrive as separate readings.
	for i := 0; i < 200; i++ {
		at := start.Add(time.Duration(i) * 10 * time.Millisecond)
		samples := orientation.SyntheticSamples(150, 10, at)
		l.HandleIMU(imu.FromSamples("mpu9250", samples[:1]))
		l.HandleIMU(imu.FromSamples("hmc5983", samples[1:]))
	}
	o, ok := l.Orientation()
	require.True(t, ok)
	assert.True(t, o.AzimuthReliable)
	assert.InDelta(t, 150, o.AzimuthDeg, 1e-3)

	lastMag := start.Add(199 * 10 * time.Millisecond)
	accelOnly := func(at time.Time) {
		l.HandleIMU(imu.FromSamples("mpu9250", orientation.SyntheticSamples(150, 10, at)[:1]))
	}

	accelOnly(lastMag.Add(time.Second))
	o, _ = l.Orientation()
	assert.True(t, o.AzimuthReliable)

	accelOnly(lastMag.Add(5 * time.Second))
	o, _ = l.Orientation()
	assert.False(t, o.AzimuthReliable)
	assert.Equal(t, 0.0, o.AzimuthDeg)
}

func TestLocatorMagnetometerOff(t *testing.T) {
	l, _, _ := newTestLocator(t, func(c *config.Config) {
		c.Magnetometer = config.MagnetometerOff
	})
	point(l, 150, 10)

	o, ok := l.Orientation()
	require.True(t, ok)
	assert.False(t, o.AzimuthReliable)
	assert.Equal(t, 0.0, o.AzimuthDeg)
}

func TestLocatorAnnotates(t *testing.T) {
	dir := t.TempDir()
	l, _, _ := newTestLocator(t, func(c *config.Config) {
		c.AnnotateDir = dir
	})

	res, err := l.Process(l.BeginCapture("/sdcard/DCIM/sun_01.jpg"), sunFrame())
	require.NoError(t, err)
	require.NotEmpty(t, res.Annotated)
	_, err = os.Stat(res.Annotated)
	assert.NoError(t, err)
}

func TestLocatorSubscribe(t *testing.T) {
	l, _, _ := newTestLocator(t, nil)
	results, unsubscribe := l.Subscribe()

	res, err := l.Process(l.BeginCapture("frame.png"), sunFrame())
	require.NoError(t, err)

	select {
	case got := <-results:
		assert.Equal(t, res.CaptureID, got.CaptureID)
	case <-time.After(time.Second):
		t.Fatal("no result delivered to subscriber")
	}

	unsubscribe()
	unsubscribe()
	_, open := <-results
	assert.False(t, open)
}

func TestNewLocatorRejectsBadGeometry(t *testing.T) {
	cfg := config.Default()
	cfg.CameraFOVHorizontal = 0
	_, err := NewLocator(cfg, nil)
	assert.Error(t, err)
}
