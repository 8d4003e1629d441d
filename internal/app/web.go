// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/sky_locator/internal/metrics"
	"github.com/relabs-tech/sky_locator/internal/vision"
)

// maxUploadBytes bounds POST /api/capture bodies.
const maxUploadBytes = 32 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// newWebMux exposes the locator over HTTP:
//
//	GET  /api/orientation  latest device orientation
//	GET  /api/estimate     result of the latest frame
//	GET  /api/location     last known GPS location
//	POST /api/capture      analyze the image in the request body
//	GET  /ws/estimates     websocket stream of every new result
//	GET  /metrics          Prometheus metrics
func newWebMux(l *Locator) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/orientation", func(w http.ResponseWriter, r *http.Request) {
		o, ok := l.Orientation()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, o)
	})

	mux.HandleFunc("GET /api/estimate", func(w http.ResponseWriter, r *http.Request) {
		res, ok := l.Last()
		if !ok {
			http.Error(w, "no frame processed yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	mux.HandleFunc("GET /api/location", func(w http.ResponseWriter, r *http.Request) {
		loc, ok := l.Location()
		if !ok {
			http.Error(w, "location unknown", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, loc)
	})

	mux.HandleFunc("POST /api/capture", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "upload"
		}
		c := l.BeginCapture(name)

		img, err := vision.DecodeFrame(io.LimitReader(r.Body, maxUploadBytes))
		if err != nil {
			metrics.FramesProcessed.WithLabelValues(metrics.OutcomeError).Inc()
			log.Printf("web: capture %s: %v", c.ID, err)
			status := http.StatusBadRequest
			if errors.Is(err, vision.ErrFrameTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			http.Error(w, err.Error(), status)
			return
		}

		res, err := l.Process(c, img)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, vision.ErrEmptyFrame) {
				status = http.StatusUnprocessableEntity
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	mux.HandleFunc("GET /ws/estimates", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade: %v", err)
			return
		}
		defer conn.Close()

		results, unsubscribe := l.Subscribe()
		defer unsubscribe()

		// The client never sends anything; reading only detects the close.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case res, ok := <-results:
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(res); err != nil {
					log.Printf("web: websocket write: %v", err)
					return
				}
			}
		}
	})

	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}
