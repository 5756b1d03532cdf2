package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pathfinder132/SkillSwap/internal/testutil"
)

// feedServer is a minimal change-feed endpoint: it records subscribe
// frames and can push server frames back.
type feedServer struct {
	t        *testing.T
	upgrader websocket.Upgrader
	frames   chan clientFrame
	conns    chan *websocket.Conn
	auth     chan string
}

func newFeedServer(t *testing.T) (*feedServer, *httptest.Server) {
	fs := &feedServer{
		t:      t,
		frames: make(chan clientFrame, 16),
		conns:  make(chan *websocket.Conn, 1),
		auth:   make(chan string, 1),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.auth <- r.Header.Get("Authorization")
		conn, err := fs.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error("upgrade:", err)
			return
		}
		fs.conns <- conn

		for {
			var frame clientFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			fs.frames <- frame
		}
	}))
	t.Cleanup(srv.Close)

	return fs, srv
}

func (fs *feedServer) waitFrame(t *testing.T) clientFrame {
	t.Helper()
	select {
	case f := <-fs.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for client frame")
		return clientFrame{}
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConn_subscribeAndReceive(t *testing.T) {
	fs, srv := newFeedServer(t)

	conn, err := NewConn(wsURL(srv), "test-token", testutil.TestLogger(t), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "Bearer test-token", <-fs.auth, "expected the access token on the handshake")

	sub, err := conn.Subscribe(TableMatches, nil)
	require.NoError(t, err)

	frame := fs.waitFrame(t)
	assert.Equal(t, "subscribe", frame.Action)
	assert.Equal(t, TableMatches, frame.Table)
	assert.Equal(t, "insert", frame.Event)

	serverConn := <-fs.conns
	payload, err := json.Marshal(serverFrame{
		Ref:    frame.Ref,
		Table:  TableMatches,
		Record: json.RawMessage(`{"id":5,"user_a_id":1,"user_b_id":2,"created_at":"2026-03-01T12:00:00Z"}`),
	})
	require.NoError(t, err)
	require.NoError(t, serverConn.WriteMessage(websocket.TextMessage, payload))

	select {
	case e := <-sub.Events():
		rec, err := DecodeMatch(e)
		require.NoError(t, err)
		assert.Equal(t, 5, rec.Id)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change event")
	}
}

func TestConn_unsubscribeSendsFrame(t *testing.T) {
	fs, srv := newFeedServer(t)

	conn, err := NewConn(wsURL(srv), "test-token", testutil.TestLogger(t), nil)
	require.NoError(t, err)
	defer conn.Close()

	sub, err := conn.Subscribe(TableMessages, &Filter{Column: "conversation_id", Value: 42})
	require.NoError(t, err)

	subFrame := fs.waitFrame(t)
	require.NotNil(t, subFrame.Filter, "expected the filter on the subscribe frame")
	assert.Equal(t, 42, subFrame.Filter.Value)

	sub.Close()

	unsubFrame := fs.waitFrame(t)
	assert.Equal(t, "unsubscribe", unsubFrame.Action)
	assert.Equal(t, subFrame.Ref, unsubFrame.Ref)

	_, open := <-sub.Events()
	assert.False(t, open, "expected the events channel closed after unsubscribe")
}

func TestConn_closeReleasesAllSubscriptions(t *testing.T) {
	_, srv := newFeedServer(t)

	conn, err := NewConn(wsURL(srv), "test-token", testutil.TestLogger(t), nil)
	require.NoError(t, err)

	sub, err := conn.Subscribe(TableMessages, nil)
	require.NoError(t, err)

	conn.Close()

	select {
	case _, open := <-sub.Events():
		assert.False(t, open, "expected the events channel closed on connection close")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for subscription teardown")
	}

	_, err = conn.Subscribe(TableMessages, nil)
	assert.Error(t, err, "expected subscribe on a closed connection to fail")

	// closing twice must not panic
	conn.Close()
}

func TestConn_eventForUnknownRefDropped(t *testing.T) {
	fs, srv := newFeedServer(t)

	conn, err := NewConn(wsURL(srv), "test-token", testutil.TestLogger(t), nil)
	require.NoError(t, err)
	defer conn.Close()

	sub, err := conn.Subscribe(TableMessages, nil)
	require.NoError(t, err)
	fs.waitFrame(t)

	serverConn := <-fs.conns
	payload, err := json.Marshal(serverFrame{
		Ref:    999,
		Table:  TableMessages,
		Record: json.RawMessage(`{"id":1,"conversation_id":2,"sender_id":3,"created_at":"2026-03-01T12:00:00Z"}`),
	})
	require.NoError(t, err)
	require.NoError(t, serverConn.WriteMessage(websocket.TextMessage, payload))

	select {
	case e := <-sub.Events():
		t.Errorf("unexpected event routed to wrong subscription: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}
