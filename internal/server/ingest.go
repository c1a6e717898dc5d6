package server

import (
	"net/http"

	log "github.com/echocat/slf4g"
	"github.com/gorilla/websocket"

	"github.com/ayusman/gesturesynth/internal/detector"
)

// IngestHandler accepts detection frames from an external detector, such as
// a browser running MediaPipe, over WebSocket.
type IngestHandler struct {
	push func(detector.DetectionFrame)
}

// NewIngestHandler creates an IngestHandler that hands every decoded frame
// to push.
func NewIngestHandler(push func(detector.DetectionFrame)) *IngestHandler {
	return &IngestHandler{push: push}
}

type ingestError struct {
	Error string `json:"error"`
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("WebSocket upgrade failed.")
		return
	}
	defer conn.Close()

	go func() {
		<-r.Context().Done()
		conn.Close()
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		frame, err := detector.ParseFrame(data)
		if err != nil {
			log.WithError(err).Debug("Rejecting detection frame.")
			if err := conn.WriteJSON(ingestError{Error: err.Error()}); err != nil {
				return
			}
			continue
		}
		h.push(frame)
	}
}
