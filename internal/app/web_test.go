// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sky_locator/internal/gps"
	"github.com/relabs-tech/sky_locator/internal/metrics"
	"github.com/relabs-tech/sky_locator/internal/orientation"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// hugePNGHeader is a PNG header declaring 100000x100000 gray pixels and
// no pixel data.
func hugePNGHeader() []byte {
	ihdr := []byte("IHDR\x00\x01\x86\xa0\x00\x01\x86\xa0\x08\x00\x00\x00\x00")
	var b bytes.Buffer
	b.WriteString("\x89PNG\r\n\x1a\n\x00\x00\x00\x0d")
	b.Write(ihdr)
	b.Write(binary.BigEndian.AppendUint32(nil, crc32.ChecksumIEEE(ihdr)))
	return b.Bytes()
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestWebBeforeData(t *testing.T) {
	l, _, _ := newTestLocator(t, nil)
	srv := httptest.NewServer(newWebMux(l))
	defer srv.Close()

	for _, path := range []string{"/api/orientation", "/api/estimate", "/api/location"} {
		status, _ := get(t, srv.URL+path)
		assert.Equal(t, http.StatusServiceUnavailable, status, path)
	}
}

func TestWebOrientationAndLocation(t *testing.T) {
	l, _, _ := newTestLocator(t, nil)
	srv := httptest.NewServer(newWebMux(l))
	defer srv.Close()

	point(l, 45, 12)
	l.HandleFix(gps.Fix{Validity: "A", Latitude: 48.1173, Longitude: 11.5167, Altitude: 545.4, HasAltitude: true})

	status, body := get(t, srv.URL+"/api/orientation")
	require.Equal(t, http.StatusOK, status)
	var o orientation.Orientation
	require.NoError(t, json.Unmarshal(body, &o))
	assert.InDelta(t, 45, o.AzimuthDeg, 1e-3)
	assert.InDelta(t, 12, o.PitchDeg, 1e-3)

	status, body = get(t, srv.URL+"/api/location")
	require.Equal(t, http.StatusOK, status)
	var loc gps.Location
	require.NoError(t, json.Unmarshal(body, &loc))
	assert.Equal(t, 48.1173, loc.Latitude)
	assert.True(t, loc.HasAltitude)
}

func TestWebCapture(t *testing.T) {
	l, _, d := newTestLocator(t, nil)
	srv := httptest.NewServer(newWebMux(l))
	defer srv.Close()
	point(l, 200, 5)

	resp, err := http.Post(srv.URL+"/api/capture?name=IMG_0001.png", "image/png", bytes.NewReader(encodePNG(t, sunFrame())))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	d.Wait()
	assert.Equal(t, "IMG_0001.png", res.Source)
	assert.Equal(t, 800, res.Width)
	require.True(t, res.Estimate.Detected)
	assert.InDelta(t, 216.10211375198602, res.Estimate.AzimuthDeg, 1e-6)

	status, body := get(t, srv.URL+"/api/estimate")
	require.Equal(t, http.StatusOK, status)
	var last Result
	require.NoError(t, json.Unmarshal(body, &last))
	assert.Equal(t, res.CaptureID, last.CaptureID)
}

func TestWebCaptureErrors(t *testing.T) {
	l, _, _ := newTestLocator(t, nil)
	srv := httptest.NewServer(newWebMux(l))
	defer srv.Close()
	errorsBefore := testutil.ToFloat64(metrics.FramesProcessed.WithLabelValues(metrics.OutcomeError))

	resp, err := http.Post(srv.URL+"/api/capture", "image/png", strings.NewReader("not an image"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, errorsBefore+1, testutil.ToFloat64(metrics.FramesProcessed.WithLabelValues(metrics.OutcomeError)))

	resp, err = http.Post(srv.URL+"/api/capture", "image/png", bytes.NewReader(hugePNGHeader()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, errorsBefore+2, testutil.ToFloat64(metrics.FramesProcessed.WithLabelValues(metrics.OutcomeError)))

	dark := encodePNG(t, image.NewGray(image.Rect(0, 0, 16, 16)))
	resp, err = http.Post(srv.URL+"/api/capture", "image/png", bytes.NewReader(dark))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/capture")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebEstimateStream(t *testing.T) {
	l, _, _ := newTestLocator(t, nil)
	srv := httptest.NewServer(newWebMux(l))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/estimates", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		l.subMu.Lock()
		defer l.subMu.Unlock()
		return len(l.subs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	res, err := l.Process(l.BeginCapture("stream.png"), sunFrame())
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Result
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, res.CaptureID, got.CaptureID)
	assert.True(t, got.Estimate.Detected)

	conn.Close()
	assert.Eventually(t, func() bool {
		l.subMu.Lock()
		defer l.subMu.Unlock()
		return len(l.subs) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebMetrics(t *testing.T) {
	l, _, _ := newTestLocator(t, nil)
	srv := httptest.NewServer(newWebMux(l))
	defer srv.Close()

	_, err := l.Process(l.BeginCapture("frame.png"), sunFrame())
	require.NoError(t, err)

	status, body := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "frames_processed_total")
}
