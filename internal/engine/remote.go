package engine

import (
	"context"
	"fmt"
	"time"

	log "github.com/echocat/slf4g"
	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = time.Second
)

// Remote is an engine hosted by another program and reached over a websocket.
//
// The host announces its parameter table as the first message:
//
//	{"type":"parameters","parameters":[{"id":"0","name":"ipState","value":0,"min":0,"max":1}]}
//
// and afterwards receives one message per write:
//
//	{"type":"set","id":"0","value":1}
type Remote struct {
	url    string
	conn   *websocket.Conn
	params Table
	out    *outbox
}

// DialRemote connects to the engine host at url and waits for its parameter
// table.
func DialRemote(ctx context.Context, url string, queueSize int) (*Remote, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial engine host: %w", err)
	}

	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	_, data, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read parameter table: %w", err)
	}
	params, err := decodeParameters(data)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Time{})

	r := &Remote{
		url:    url,
		conn:   conn,
		params: params,
		out:    newOutbox(queueSize),
	}
	go r.writeLoop()
	go r.readLoop()

	log.With("url", url).
		With("parameters", len(params)).
		Info("Attached to remote engine.")

	return r, nil
}

// Parameters returns the table announced on connect.
func (r *Remote) Parameters() Table {
	return r.params.Clone()
}

// SetParameter queues a write. It never blocks.
func (r *Remote) SetParameter(id ParamID, value float64) error {
	msg, err := encodeSet(id, value)
	if err != nil {
		return err
	}
	return r.out.enqueue(msg)
}

func (r *Remote) Done() <-chan struct{} {
	return r.out.done
}

// Close says goodbye to the host and tears the connection down.
func (r *Remote) Close() error {
	if !r.out.close() {
		return nil
	}
	_ = r.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	return r.conn.Close()
}

func (r *Remote) writeLoop() {
	for {
		select {
		case <-r.out.done:
			return
		case msg := <-r.out.queue:
			_ = r.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := r.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				r.teardown(err)
				return
			}
		}
	}
}

// readLoop drains the connection so control frames are handled and a dead
// host is noticed. Later table announcements are ignored: the table is fixed
// for the lifetime of an attachment.
func (r *Remote) readLoop() {
	for {
		if _, _, err := r.conn.ReadMessage(); err != nil {
			r.teardown(err)
			return
		}
	}
}

func (r *Remote) teardown(err error) {
	if !r.out.close() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.With("url", r.url).
			Info("Remote engine closed the connection.")
	} else {
		log.WithError(err).
			With("url", r.url).
			Warn("Remote engine connection lost.")
	}
	_ = r.conn.Close()
}
