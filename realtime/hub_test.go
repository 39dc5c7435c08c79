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
	"go.uber.org/zap/zaptest"
)

func dial(t *testing.T, srv *httptest.Server, topic string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?topic=" + topic
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, h *Hub, topic string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Subscribers(topic) == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishToTopic(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(w, r, r.URL.Query().Get("topic"))
	}))
	defer srv.Close()
	defer h.Close()

	tabA := dial(t, srv, CartTopic("g1"))
	tabB := dial(t, srv, CartTopic("g1"))
	other := dial(t, srv, CartTopic("g2"))
	waitForSubscribers(t, h, CartTopic("g1"), 2)
	waitForSubscribers(t, h, CartTopic("g2"), 1)

	h.Publish(CartTopic("g1"), "carrito_actualizado", map[string]int{"total_items": 3})

	for _, conn := range []*websocket.Conn{tabA, tabB} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev struct {
			Type string         `json:"type"`
			Data map[string]int `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, "carrito_actualizado", ev.Type)
		assert.Equal(t, 3, ev.Data["total_items"])
	}

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "other guests receive nothing")
}

func TestHub_UnsubscribeOnDisconnect(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(w, r, OrdersTopic)
	}))
	defer srv.Close()

	conn := dial(t, srv, OrdersTopic)
	waitForSubscribers(t, h, OrdersTopic, 1)

	conn.Close()
	waitForSubscribers(t, h, OrdersTopic, 0)

	h.Publish(OrdersTopic, "pedido_nuevo", "nobody listens")
}
