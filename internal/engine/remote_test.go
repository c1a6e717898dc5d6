package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

// fakeHost is an engine host that announces a table and records writes.
type fakeHost struct {
	announce string
	received chan message
	conns    chan *websocket.Conn
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		announce: `{"type":"parameters","parameters":[` +
			`{"id":"s","name":"ipState","min":0,"max":1},` +
			`{"id":"p","name":"ipPitch","min":-1,"max":1}]}`,
		received: make(chan message, 16),
		conns:    make(chan *websocket.Conn, 1),
	}
}

func (h *fakeHost) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := testUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	h.conns <- conn

	if err := conn.WriteMessage(websocket.TextMessage, []byte(h.announce)); err != nil {
		return
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg message
		if json.Unmarshal(data, &msg) == nil {
			h.received <- msg
		}
	}
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestRemote_AnnouncesAndSets(t *testing.T) {
	host := newFakeHost()
	srv := httptest.NewServer(host)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, err := DialRemote(ctx, wsURL(srv), 4)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, ParamID("p"), r.Parameters().Resolve("ipPitch"))

	require.NoError(t, r.SetParameter("p", 0.25))

	select {
	case msg := <-host.received:
		assert.Equal(t, "set", msg.Type)
		assert.Equal(t, ParamID("p"), msg.ID)
		require.NotNil(t, msg.Value)
		assert.Equal(t, 0.25, *msg.Value)
	case <-time.After(5 * time.Second):
		t.Fatal("host never received the write")
	}
}

func TestRemote_HostWithoutTable(t *testing.T) {
	host := newFakeHost()
	host.announce = `{"type":"hello"}`
	srv := httptest.NewServer(host)
	defer srv.Close()

	_, err := DialRemote(context.Background(), wsURL(srv), 4)
	assert.ErrorIs(t, err, ErrNoParameters)
}

func TestRemote_DoneWhenHostLeaves(t *testing.T) {
	host := newFakeHost()
	srv := httptest.NewServer(host)
	defer srv.Close()

	r, err := DialRemote(context.Background(), wsURL(srv), 4)
	require.NoError(t, err)

	conn := <-host.conns
	_ = conn.Close()

	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done not closed after the host went away")
	}
	assert.ErrorIs(t, r.SetParameter("s", 1), ErrClosed)
	assert.NoError(t, r.Close())
}

func TestRemote_CloseIsIdempotent(t *testing.T) {
	host := newFakeHost()
	srv := httptest.NewServer(host)
	defer srv.Close()

	r, err := DialRemote(context.Background(), wsURL(srv), 4)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.NoError(t, r.Close())
	assert.ErrorIs(t, r.SetParameter("s", 1), ErrClosed)
}

func TestConnect_Memory(t *testing.T) {
	a, err := Connect(context.Background(), Config{Kind: KindMemory})
	require.NoError(t, err)
	defer a.Close()

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, KindMemory, a.Kind)
	assert.Equal(t, ParamID("0"), a.Parameters().Resolve("ipState"))
}

func TestConnect_AttachmentIDsDiffer(t *testing.T) {
	a, err := Connect(context.Background(), Config{Kind: KindMemory})
	require.NoError(t, err)
	b, err := Connect(context.Background(), Config{Kind: KindMemory})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestConnect_ConfigErrorsAreNotRetried(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, cfg := range []Config{
		{Kind: "synth9000"},
		{Kind: KindRemote},
		{Kind: KindProcess},
	} {
		_, err := Connect(ctx, cfg)
		assert.Error(t, err, "kind %q", cfg.Kind)
		assert.NoError(t, ctx.Err(), "kind %q should fail without retrying", cfg.Kind)
	}
}

func TestConnect_RetriesUntilHostIsUp(t *testing.T) {
	host := newFakeHost()
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		host.ServeHTTP(w, r)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, err := Connect(ctx, Config{
		Kind:            KindRemote,
		URL:             wsURL(srv),
		InitialInterval: time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
	})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, KindRemote, a.Kind)
}

func TestConnect_StopsWithContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := Connect(ctx, Config{Kind: KindRemote, URL: wsURL(srv), InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond})
	assert.Error(t, err)
}
