// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/roast_meter/internal/calibration"
	"github.com/relabs-tech/roast_meter/internal/engine"
	"github.com/relabs-tech/roast_meter/internal/store"
)

// Status is the read-only engine state served over HTTP.
type Status interface {
	Last() (engine.Result, bool)
	Curve() calibration.Curve
	Calibrated() bool
}

// HistorySource lists committed calibrations.
type HistorySource interface {
	CalibrationHistory(limit int) ([]store.HistoryEntry, error)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSCommand is a console request.
type WSCommand struct {
	Command string `json:"command"`
}

// WSResponse is a console reply. Type is "reply" or "error".
type WSResponse struct {
	Type    string   `json:"type"`
	Command string   `json:"command,omitempty"`
	Lines   []string `json:"lines,omitempty"`
	Message string   `json:"message,omitempty"`
}

type calibrationResponse struct {
	CalibrationMessage
	History []store.HistoryEntry `json:"history,omitempty"`
}

// NewWebHandler serves the JSON API and the websocket command console.
// history may be nil.
func NewWebHandler(status Status, ex Executor, history HistorySource) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/measurement", func(w http.ResponseWriter, r *http.Request) {
		res, ok := status.Last()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		msg := MeasurementMessage{Time: res.Time}
		if res.State == engine.SamplePresent {
			m := res.Measurement
			msg.Present = true
			msg.Mode = res.Mode.String()
			msg.Red, msg.IR, msg.Ratio, msg.RoastIndex = m.Red, m.IR, m.Ratio, m.RoastIndex
		}
		writeJSON(w, msg)
	})

	mux.HandleFunc("GET /api/calibration", func(w http.ResponseWriter, r *http.Request) {
		resp := calibrationResponse{
			CalibrationMessage: CalibrationMessage{
				Time:       time.Now(),
				Calibrated: status.Calibrated(),
				Points:     status.Curve().Points(),
			},
		}
		if history != nil {
			h, err := history.CalibrationHistory(20)
			if err != nil {
				log.Printf("web: calibration history: %v", err)
			}
			resp.History = h
		}
		writeJSON(w, resp)
	})

	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		handleConsoleWS(w, r, ex)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleConsoleWS runs shell commands sent over a websocket, one reply per
// command.
func handleConsoleWS(w http.ResponseWriter, r *http.Request, ex Executor) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	for {
		var msg WSCommand
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("web: websocket read error: %v", err)
			}
			return
		}

		resp := WSResponse{Type: "reply", Command: msg.Command}
		lines, err := ex.Execute(r.Context(), msg.Command)
		if err != nil {
			resp = WSResponse{Type: "error", Command: msg.Command, Message: err.Error()}
		} else {
			resp.Lines = lines
		}

		if err := conn.WriteJSON(resp); err != nil {
			log.Printf("web: websocket write error: %v", err)
			return
		}
	}
}

// NewWebServer wraps handler in a server listening on port.
func NewWebServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
