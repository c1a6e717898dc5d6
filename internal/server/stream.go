package server

import (
	"fmt"
	"net/http"

	"github.com/ayusman/gesturesynth/internal/capture"
)

// StreamHandler serves MJPEG frames from the camera preview.
type StreamHandler struct {
	preview *capture.Preview
}

// NewStreamHandler creates a new StreamHandler for the given preview.
func NewStreamHandler(preview *capture.Preview) *StreamHandler {
	return &StreamHandler{preview: preview}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var seq uint64
	for {
		jpeg, next, err := h.preview.Next(r.Context(), seq)
		if err != nil {
			return
		}
		seq = next

		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
			return
		}
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		if _, err := fmt.Fprint(w, "\r\n"); err != nil {
			return
		}

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
