package live

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narvarokollen/narvaro/pkg/logger"
)

func TestStreamerStream(t *testing.T) {
	h := NewHub()
	s := NewStreamer([]string{"*"}, logger.Discard())
	topic := EventsTopic("b1")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, initial, err := h.Subscribe(topic, value("initial"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.Stream(w, r, sub, initial)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var snap Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, "initial", snap.Data)

	require.Eventually(t, func() bool { return subscribers(h, topic) == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, h.Publish(topic, value("second")))

	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, "second", snap.Data)
	assert.Equal(t, uint64(1), snap.Version)

	conn.Close()
	assert.Eventually(t, func() bool { return subscribers(h, topic) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStreamerEndsOnClosedTopic(t *testing.T) {
	h := NewHub()
	s := NewStreamer(nil, logger.Discard())
	topic := MembersTopic("b1")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, initial, err := h.Subscribe(topic, value("roster"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.Stream(w, r, sub, initial)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var snap Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	h.CloseTopic(topic)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStreamerRejectsOrigin(t *testing.T) {
	h := NewHub()
	s := NewStreamer([]string{"https://band.example"}, logger.Discard())
	topic := EventsTopic("b1")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, initial, _ := h.Subscribe(topic, value(nil))
		s.Stream(w, r, sub, initial)
	}))
	defer srv.Close()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Eventually(t, func() bool { return subscribers(h, topic) == 0 }, time.Second, 10*time.Millisecond)
}
